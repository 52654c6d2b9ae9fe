// Package httpapi implements the admission layer's HTTP surface:
// /register_testnet, /order, /cancel, /inventory, /admin (spec.md §6).
// Handlers validate request shape, resolve playerid to a player-name,
// enforce the rate limit, then submit a hotpath.Task and await its
// single-shot reply — the only way this package ever touches engine
// state (spec.md §9).
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/0xDub/figgie-tournament-testnet/internal/card"
	"github.com/0xDub/figgie-tournament-testnet/internal/engine"
	"github.com/0xDub/figgie-tournament-testnet/internal/hotpath"
	"github.com/0xDub/figgie-tournament-testnet/internal/names"
	"github.com/0xDub/figgie-tournament-testnet/internal/ratelimit"
	"github.com/0xDub/figgie-tournament-testnet/internal/registry"
	"github.com/0xDub/figgie-tournament-testnet/internal/round"
)

// RoundGate is the subset of round.Controller the admission layer reads
// to short-circuit requests with NO_GAME when no round is active.
type RoundGate interface {
	Active() bool
	RequestStart()
}

var _ RoundGate = (*round.Controller)(nil)

// Server holds the collaborators every handler needs.
type Server struct {
	exec    *hotpath.Executor
	reg     *registry.Registry
	limiter *ratelimit.Limiter
	rounds  RoundGate
}

// New wires a chi.Router exposing every endpoint in spec.md §6, with
// rs/cors permissive CORS (the testnet has no authenticated origins to
// restrict) and zerolog request logging in the teacher's style.
func New(exec *hotpath.Executor, reg *registry.Registry, limiter *ratelimit.Limiter, rounds RoundGate) http.Handler {
	s := &Server{exec: exec, reg: reg, limiter: limiter, rounds: rounds}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Post("/register_testnet", s.handleRegisterTestnet)
	r.Post("/order", s.handleOrder)
	r.Post("/cancel", s.handleCancel)
	r.Post("/inventory", s.handleInventory)
	r.Post("/admin", s.handleAdmin)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("handled request")
	})
}

// writeResponse mirrors the reference server's double-encoded body: the
// HTTP body is a JSON string literal whose contents are themselves the
// serialized Response object (spec.md §6, "JSON string response body
// that itself contains JSON"). Preserved for client wire compatibility.
func writeResponse(w http.ResponseWriter, resp card.Response) {
	inner, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		log.Error().Err(err).Msg("failed to double-encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(outer)
}

// resolvePlayer runs the shared playerid-header -> rate-limit ->
// player-name pipeline common to /order, /cancel, /inventory. It writes
// an error response and returns ok=false if any step fails.
func (s *Server) resolvePlayer(w http.ResponseWriter, r *http.Request) (name string, ok bool) {
	playerID := r.Header.Get("playerid")
	if playerID == "" {
		writeResponse(w, card.Response{
			Status:  card.StatusMissingHeader,
			Message: "Required headers not found, please send 'playerid' header with your request",
		})
		return "", false
	}

	name, found := s.reg.Lookup(playerID)
	if !found {
		writeResponse(w, card.Response{
			Status:  card.StatusUnknownPlayer,
			Message: "Player name not found. Have you sent a post to /register_testnet?",
		})
		return "", false
	}

	if !s.limiter.Allow(name) {
		writeResponse(w, card.Response{
			Status:  card.StatusRateLimit,
			Message: "Settle down there mate, you've reached the request limit. Please wait a second for your limit to reset",
		})
		return "", false
	}

	return name, true
}

func (s *Server) handleRegisterTestnet(w http.ResponseWriter, r *http.Request) {
	playerID := r.Header.Get("playerid")
	if playerID == "" {
		writeResponse(w, card.Response{
			Status:  card.StatusMissingHeader,
			Message: "Required headers not found. Please send 'playerid' in your headers with a random ID. We'll register this playerid into the testnet and send you back a temporary player name",
		})
		return
	}

	name, isNew := s.reg.Register(playerID, names.Generate)
	if isNew {
		done := make(chan struct{})
		s.exec.Submit(func(eng *engine.Engine) {
			eng.RegisterPlayer(name)
			close(done)
		})
		<-done
	}

	writeResponse(w, card.Response{
		Status:  card.StatusSuccess,
		Message: "Temp player name: " + name + ". Testnet will always send out 3 cards of each suit to test with",
	})
}

type orderBody struct {
	Card      string `json:"card"`
	Price     int    `json:"price"`
	Direction string `json:"direction"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if !s.rounds.Active() {
		writeResponse(w, card.Response{
			Status:  card.StatusNoGame,
			Message: "Game hasn't started yet. Sit tight and make sure your websocket connection is up and connected",
		})
		return
	}

	name, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}

	var body orderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResponse(w, card.Response{Status: card.StatusParseError, Message: "Malformed JSON body"})
		return
	}

	suit, ok := card.ParseSuit(body.Card)
	if !ok {
		writeResponse(w, card.Response{
			Status:  card.StatusInvalidCard,
			Message: "For the card, please send either `spade`, `club`, `diamond`, or `heart`",
		})
		return
	}

	direction, ok := card.ParseDirection(body.Direction)
	if !ok {
		writeResponse(w, card.Response{
			Status:  card.StatusInvalidDirection,
			Message: "For the direction, please send either `buy` or `sell`",
		})
		return
	}

	if !card.ValidPrice(body.Price) {
		writeResponse(w, card.Response{
			Status:  card.StatusInvalidPrice,
			Message: "For the price, please send a number between 1 and 99",
		})
		return
	}

	price := body.Price
	order := card.Order{Player: name, Suit: suit, Direction: direction, Price: &price}

	type result struct {
		status  card.Status
		message string
	}
	reply := make(chan result, 1)
	s.exec.Submit(func(eng *engine.Engine) {
		status, msg := eng.ProcessOrder(order)
		reply <- result{status, msg}
	})
	res := <-reply

	writeResponse(w, card.Response{Status: res.status, Message: res.message})
}

type cancelBody struct {
	Card      string `json:"card"`
	Direction string `json:"direction"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.rounds.Active() {
		writeResponse(w, card.Response{
			Status:  card.StatusNoGame,
			Message: "Game hasn't started yet. Sit tight and make sure your websocket connection is up and connected",
		})
		return
	}

	name, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}

	var body cancelBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResponse(w, card.Response{Status: card.StatusParseError, Message: "Malformed JSON body"})
		return
	}

	suit, ok := card.ParseSuit(body.Card)
	if !ok {
		writeResponse(w, card.Response{
			Status:  card.StatusInvalidCard,
			Message: "For the card, please send either `spade`, `club`, `diamond`, or `heart`",
		})
		return
	}

	direction, ok := card.ParseDirection(body.Direction)
	if !ok {
		writeResponse(w, card.Response{
			Status:  card.StatusInvalidDirection,
			Message: "For the direction, please send either `buy` or `sell`",
		})
		return
	}

	order := card.Order{Player: name, Suit: suit, Direction: direction, Price: nil}

	type result struct {
		status  card.Status
		message string
	}
	reply := make(chan result, 1)
	s.exec.Submit(func(eng *engine.Engine) {
		status, msg := eng.ProcessOrder(order)
		reply <- result{status, msg}
	})
	res := <-reply

	writeResponse(w, card.Response{Status: res.status, Message: res.message})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	if !s.rounds.Active() {
		writeResponse(w, card.Response{
			Status:  card.StatusNoGame,
			Message: "Game hasn't started yet. Sit tight and make sure your websocket connection is up and connected",
		})
		return
	}

	name, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}

	type result struct {
		inv   string
		found bool
	}
	reply := make(chan result, 1)
	s.exec.Submit(func(eng *engine.Engine) {
		inv, found := eng.GetInventory(name)
		reply <- result{inv.String(), found}
	})
	res := <-reply

	if !res.found {
		writeResponse(w, card.Response{
			Status:  card.StatusUnknownPlayer,
			Message: "Player name not found. Have you sent a post to /register_testnet?",
		})
		return
	}

	writeResponse(w, card.Response{Status: card.StatusSuccess, Message: res.inv})
}

type adminBody struct {
	Action string `json:"action"`
}

// handleAdmin returns a plain text body rather than the double-encoded
// JSON the other endpoints use, matching the reference implementation's
// distinct admin response shape (spec.md §6).
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	adminID := r.Header.Get("adminid")
	if adminID == "" {
		_, _ = w.Write([]byte("Admin ID not in headers"))
		return
	}
	if adminID != "admin" {
		_, _ = w.Write([]byte("Authentication Failed"))
		return
	}

	var body adminBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_, _ = w.Write([]byte("Invalid action"))
		return
	}

	if body.Action != "start_game" {
		_, _ = w.Write([]byte("Invalid action"))
		return
	}

	s.rounds.RequestStart()
	_, _ = w.Write([]byte("Game started"))
}
