// Package stream implements the streaming channel's subscribe handshake
// and the broadcast.Sink wrapper around a websocket connection
// (spec.md §4.7, §6).
package stream

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/0xDub/figgie-tournament-testnet/internal/broadcast"
	"github.com/0xDub/figgie-tournament-testnet/internal/card"
	"github.com/0xDub/figgie-tournament-testnet/internal/registry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscribeMessage is the one client->server frame the channel expects,
// per connection, before it starts receiving events.
type subscribeMessage struct {
	Action   string `json:"action"`
	PlayerID string `json:"playerid"`
}

// connSink adapts a *websocket.Conn to broadcast.Sink.
type connSink struct {
	conn *websocket.Conn
}

func (s connSink) Send(payload []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Handler upgrades a connection, performs the subscribe handshake, and
// registers the resulting sink with bcast under the resolved player
// name. It blocks reading (and discarding) further frames so gorilla's
// ping/pong and close handling keep running, until the connection dies,
// then unsubscribes.
func Handler(bcast *broadcast.Broadcaster, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		name, ok := handshake(conn, reg)
		if !ok {
			return
		}

		sendWelcome(conn, name)

		bcast.Subscribe(name, connSink{conn: conn})
		defer bcast.Unsubscribe(name)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Debug().Str("player", name).Err(err).Msg("subscriber connection closed")
				return
			}
		}
	}
}

// handshake reads the first frame, expects a subscribe action, and
// replies with the resolved player-name's status. It returns the
// resolved name and whether the handshake succeeded.
func handshake(conn *websocket.Conn, reg *registry.Registry) (string, bool) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	var msg subscribeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		writeResponse(conn, card.Response{Status: card.StatusParseError, Message: "Malformed subscribe frame"})
		return "", false
	}

	if msg.Action != "subscribe" {
		writeResponse(conn, card.Response{
			Status:  card.StatusUnauthorizedAct,
			Message: "The only supported action on this channel is 'subscribe'",
		})
		return "", false
	}

	name, found := reg.Lookup(msg.PlayerID)
	if !found {
		writeResponse(conn, card.Response{
			Status:  card.StatusUnknownPlayer,
			Message: "Player name not found. Have you sent a post to /register_testnet?",
		})
		return "", false
	}

	writeResponse(conn, card.Response{Status: card.StatusSuccess, Message: "subscribed"})
	return name, true
}

func sendWelcome(conn *websocket.Conn, name string) {
	writeResponse(conn, card.Response{
		Status:  card.StatusSuccess,
		Message: "Welcome to the testnet, " + name + "! You'll now receive book updates, trades, and round events on this connection.",
	})
}

func writeResponse(conn *websocket.Conn, resp card.Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal stream response")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Debug().Err(err).Msg("failed to write stream response")
	}
}
