// Package engine implements MatchingEngine: the four CardBooks, the
// ledger, and round state, plus the operations the hotpath executor
// drives (spec.md §4.3, §4.4). An Engine has no internal locking — it is
// owned exclusively by the hotpath goroutine (spec.md §9).
package engine

import (
	"fmt"
	"math/rand"

	"github.com/0xDub/figgie-tournament-testnet/internal/book"
	"github.com/0xDub/figgie-tournament-testnet/internal/broadcast"
	"github.com/0xDub/figgie-tournament-testnet/internal/card"
	"github.com/0xDub/figgie-tournament-testnet/internal/ledger"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// testnetInventory is the flat starting hand every registered testnet
// player receives at round start, regardless of starting_inventory
// totals (spec.md §4.4 step 7).
var testnetInventory = ledger.Inventory{Spades: 3, Clubs: 3, Diamonds: 3, Hearts: 3}

// Engine owns the four suit books, the ledger, and current round state.
type Engine struct {
	books map[card.Suit]*book.CardBook
	ledg  *ledger.Ledger
	bcast *broadcast.Broadcaster
	rng   *rand.Rand

	players   []string
	playerSet map[string]bool

	startingBalance int
	anteAmount      int
	potSeedAmount   int

	commonSuit        card.Suit
	goalSuit          card.Suit
	startingInventory map[card.Suit]int
	pot               int
	ante              int
	roundActive       bool
}

// New returns an Engine with empty books and no registered players.
// seed seeds the per-round randomness (common-suit pick, 8-card-suit
// Bernoulli selection); pass a value derived from time.Now().UnixNano()
// in production and a fixed value in tests for determinism.
func New(startingBalance, anteAmount, potSeedAmount int, bcast *broadcast.Broadcaster, seed int64) *Engine {
	books := make(map[card.Suit]*book.CardBook, 4)
	for _, s := range card.AllSuits() {
		books[s] = book.New()
	}
	return &Engine{
		books:             books,
		ledg:              ledger.New(),
		bcast:             bcast,
		rng:               rand.New(rand.NewSource(seed)),
		playerSet:         make(map[string]bool),
		startingBalance:   startingBalance,
		anteAmount:        anteAmount,
		potSeedAmount:     potSeedAmount,
		startingInventory: make(map[card.Suit]int, 4),
	}
}

// RegisterPlayer adds name to the roster with the default starting
// balance and testnet inventory. Re-registering an existing name is a
// no-op (SPEC_FULL.md's idempotent-registration supplement).
func (e *Engine) RegisterPlayer(name string) {
	if e.playerSet[name] {
		return
	}
	e.playerSet[name] = true
	e.players = append(e.players, name)
	e.ledg.Register(name, e.startingBalance, testnetInventory)
}

// DropAllPlayers clears the roster and all ledger state (spec.md §4.4
// end_game).
func (e *Engine) DropAllPlayers() {
	e.players = nil
	e.playerSet = make(map[string]bool)
	e.ledg.Reset()
}

// HasPlayer reports whether name is registered.
func (e *Engine) HasPlayer(name string) bool {
	return e.playerSet[name]
}

// GetInventory returns name's current inventory and whether name is
// registered.
func (e *Engine) GetInventory(name string) (ledger.Inventory, bool) {
	if !e.playerSet[name] {
		return ledger.Inventory{}, false
	}
	return e.ledg.Inventory(name), true
}

// ProcessOrder validates and applies order, returning the status and a
// human-readable message body (spec.md §4.3). It is the hotpath's sole
// mutation entry point for trading activity.
func (e *Engine) ProcessOrder(order card.Order) (card.Status, string) {
	traceID := uuid.New().String()
	logEvt := log.Debug().Str("trace_id", traceID).Str("order", order.String())

	if !e.playerSet[order.Player] {
		logEvt.Str("status", string(card.StatusUnknownPlayer)).Msg("order rejected")
		return card.StatusUnknownPlayer, "player not registered"
	}

	if order.IsCancel() {
		e.cancel(order)
		logEvt.Str("status", string(card.StatusSuccess)).Msg("cancel applied")
		return card.StatusSuccess, fmt.Sprintf("%s,%s cancelled", order.Suit, order.Direction)
	}

	price := *order.Price
	if !card.ValidPrice(price) {
		logEvt.Str("status", string(card.StatusInvalidPrice)).Msg("order rejected")
		return card.StatusInvalidPrice, "price out of range"
	}

	switch order.Direction {
	case card.Buy:
		if e.ledg.Points(order.Player) < price {
			logEvt.Str("status", string(card.StatusInsufficientFunds)).Msg("order rejected")
			return card.StatusInsufficientFunds, "insufficient points"
		}
	case card.Sell:
		if e.ledg.Inventory(order.Player).Count(order.Suit) < 1 {
			logEvt.Str("status", string(card.StatusNoInventory)).Msg("order rejected")
			return card.StatusNoInventory, "no inventory to sell"
		}
	}

	status, trade := e.match(order, price)
	if status == card.StatusSelfTrade {
		logEvt.Str("status", string(status)).Msg("order rejected")
		return status, "cannot trade against your own quote"
	}

	if trade != nil {
		log.Info().
			Str("trace_id", traceID).
			Str("suit", trade.Suit.String()).
			Int("price", trade.Price).
			Str("buyer", trade.Buyer).
			Str("seller", trade.Seller).
			Msg("trade executed")
	}
	e.bcast.Broadcast(e.marshalUpdate(trade))

	logEvt.Str("status", string(card.StatusSuccess)).Msg("order applied")
	return card.StatusSuccess, fmt.Sprintf("%s,%s,%d", order.Suit, order.Direction, price)
}

func (e *Engine) cancel(order card.Order) {
	b := e.books[order.Suit]
	if order.Direction == card.Buy {
		b.CancelBid(order.Player)
	} else {
		b.CancelAsk(order.Player)
	}
}

// match applies the crossing rule for a limit order at price (spec.md
// §4.3). It returns the resulting status and, on a trade, the record
// used for logging and the Update event's "trade" field. A buy is
// funds-checked in ProcessOrder against its own limit price but, when it
// crosses, is debited the resting ask's price, which is never higher.
func (e *Engine) match(order card.Order, price int) (card.Status, *TradeRecord) {
	b := e.books[order.Suit]

	if order.Direction == card.Buy {
		ask, ok := b.BestAsk()
		if !ok || price < ask.Price {
			b.UpsertBid(price, order.Player)
			return card.StatusSuccess, nil
		}
		if ask.Player == order.Player {
			return card.StatusSelfTrade, nil
		}
		return card.StatusSuccess, e.execute(order.Suit, ask.Price, order.Player, ask.Player)
	}

	bid, ok := b.BestBid()
	if !ok || price > bid.Price {
		b.UpsertAsk(price, order.Player)
		return card.StatusSuccess, nil
	}
	if bid.Player == order.Player {
		return card.StatusSelfTrade, nil
	}
	return card.StatusSuccess, e.execute(order.Suit, bid.Price, bid.Player, order.Player)
}

// execute settles a trade at tradePrice between buyer and seller on
// suit, resets every book's resting quotes, and returns the record for
// the caller to log and broadcast.
func (e *Engine) execute(suit card.Suit, tradePrice int, buyer, seller string) *TradeRecord {
	e.ledg.AddPoints(buyer, -tradePrice)
	e.ledg.AddPoints(seller, tradePrice)
	e.ledg.ChangeInventory(buyer, suit, 1)
	e.ledg.ChangeInventory(seller, suit, -1)

	e.books[suit].SetLastTrade(tradePrice)
	for _, s := range card.AllSuits() {
		e.books[s].ResetQuotes()
	}

	return &TradeRecord{Suit: suit, Price: tradePrice, Buyer: buyer, Seller: seller}
}

// SnapshotBook returns the current Update payload with no trade
// attached, for callers that need the bytes without broadcasting them.
func (e *Engine) SnapshotBook() []byte {
	return e.marshalUpdate(nil)
}

// BroadcastSnapshot composes and sends a book-only Update event to every
// subscriber, used by the hotpath's 5 s idle tick (spec.md §4.5).
func (e *Engine) BroadcastSnapshot() {
	e.bcast.Broadcast(e.marshalUpdate(nil))
}

// StartRound seeds a fresh deal: antes, common/goal suit, starting
// inventory distribution, reset books, and per-player dealing_cards plus
// an initial empty update (spec.md §4.4).
func (e *Engine) StartRound(i int) {
	e.pot = e.potSeedAmount
	e.ante = e.anteAmount
	e.ledg.SnapshotInitialPoints()

	for _, p := range e.players {
		e.ledg.AddPoints(p, -e.ante)
		e.pot += e.ante
	}

	e.commonSuit = card.AllSuits()[e.rng.Intn(4)]
	e.goalSuit = e.commonSuit.GoalSuit()
	e.startingInventory = e.dealInventoryTotals()
	e.roundActive = true

	for _, s := range card.AllSuits() {
		e.books[s].ResetFullBook()
	}

	for _, p := range e.players {
		e.ledg.SetInventory(p, testnetInventory)
		e.bcast.SendTo(p, marshalDealingCards(testnetInventory))
	}

	e.bcast.Broadcast(e.marshalUpdate(nil))

	log.Info().
		Int("round", i).
		Str("common_suit", e.commonSuit.String()).
		Str("goal_suit", e.goalSuit.String()).
		Int("pot", e.pot).
		Msg("round started")
}

// dealInventoryTotals computes the 12/10/10/8 split for the current
// common_suit (spec.md §4.4 step 6): the common suit gets 12, one of
// the remaining three is chosen by a fixed-order Bernoulli walk to get
// 8, and the other two get 10 each. The walk visits [suit_1, suit_2,
// goal_suit] in that order, stopping at the first coin flip that comes
// up lucky; the goal suit is visited last and only gets the 8-card slot
// if neither suit_1 nor suit_2 won the flip first.
func (e *Engine) dealInventoryTotals() map[card.Suit]int {
	totals := map[card.Suit]int{e.commonSuit: 12}

	others := e.commonSuit.DealOrder()
	eightSuit := others[len(others)-1]
	for i, s := range others {
		if i == len(others)-1 {
			break
		}
		if e.rng.Intn(2) == 1 {
			eightSuit = s
			break
		}
	}
	for _, s := range others {
		if s == eightSuit {
			totals[s] = 8
		} else {
			totals[s] = 10
		}
	}
	return totals
}

// EndRound pays goal-suit holdings, then settles the pot. Pot settlement
// walks players in registration order tracking the best (name, count)
// seen so far as "winner" and appending anyone who *matches* that
// running best to "tied". A fresh strictly-higher count replaces winner
// and clears tied. If nobody ever beats the initial (unset, 0) baseline
// — i.e. every player holds zero goal-suit cards — winner stays unset
// and the pot is not paid out at all. If winner is set but tied is
// non-empty, only the players in tied are paid pot/(len(tied)+1) each;
// winner itself receives nothing. This exactly reproduces the reference
// implementation's payout loop, leaked share and all (spec.md §9).
func (e *Engine) EndRound() {
	e.roundActive = false

	winnerName := ""
	winnerCount := 0
	var tied []string

	for _, p := range e.players {
		g := e.ledg.Inventory(p).Count(e.goalSuit)
		e.ledg.AddPoints(p, 10*g)
		e.pot -= 10 * g

		if g >= winnerCount {
			if g == winnerCount {
				tied = append(tied, p)
			} else {
				winnerName = p
				winnerCount = g
				tied = tied[:0]
			}
		}
	}

	switch {
	case winnerName == "":
		// No player holds any goal-suit card; the pot goes unclaimed.
	case len(tied) == 0:
		e.ledg.AddPoints(winnerName, e.pot)
	default:
		share := e.pot / (len(tied) + 1)
		for _, p := range tied {
			e.ledg.AddPoints(p, share)
		}
	}

	e.bcast.Broadcast(e.marshalEndRound())

	log.Info().
		Str("goal_suit", e.goalSuit.String()).
		Int("pot", e.pot).
		Str("winner", winnerName).
		Strs("tied", tied).
		Msg("round ended")
}

// EndGame broadcasts the terminal message. The caller (RoundController)
// follows with DropAllPlayers.
func (e *Engine) EndGame() {
	e.bcast.Broadcast(marshalEndGame("Game over. Thanks for playing."))
	log.Info().Msg("game ended")
}

// RoundActive reports whether a round is currently in progress, for
// diagnostics; admission gates on the RoundController's own
// game_active flag rather than this field (spec.md §5).
func (e *Engine) RoundActive() bool {
	return e.roundActive
}
