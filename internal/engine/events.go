package engine

import (
	"encoding/json"
	"fmt"

	"github.com/0xDub/figgie-tournament-testnet/internal/book"
	"github.com/0xDub/figgie-tournament-testnet/internal/card"
	"github.com/0xDub/figgie-tournament-testnet/internal/ledger"
)

// EventKind is the "kind" discriminator of the streaming envelope
// (spec.md §6).
type EventKind string

const (
	EventDealingCards EventKind = "dealing_cards"
	EventUpdate       EventKind = "update"
	EventEndRound     EventKind = "end_round"
	EventEndGame      EventKind = "end_game"
)

// envelope is the wire shape every server-to-client event is wrapped in:
// {"kind":"<k>","data":<payload>}.
type envelope struct {
	Kind EventKind   `json:"kind"`
	Data interface{} `json:"data"`
}

func marshalEnvelope(kind EventKind, data interface{}) []byte {
	payload, err := json.Marshal(envelope{Kind: kind, Data: data})
	if err != nil {
		// Every Data value here is built from this package's own plain
		// structs; a marshal failure would mean a programming error, not
		// a runtime condition to recover from.
		panic(fmt.Sprintf("engine: failed to marshal %s event: %v", kind, err))
	}
	return payload
}

// bookEntryWire renders a book.BookEntry as the wire's [price, player] pair.
type bookEntryWire book.BookEntry

func (e bookEntryWire) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Price, e.Player})
}

// bookView is one suit's CardBook in wire form: spec.md §6's
// {bids:[[price,player],…], asks:[[price,player],…], last_trade:"<p>"|""}.
type bookView struct {
	Bids      []bookEntryWire `json:"bids"`
	Asks      []bookEntryWire `json:"asks"`
	LastTrade string          `json:"last_trade"`
}

func newBookView(b *book.CardBook) bookView {
	bids := b.Bids()
	asks := b.Asks()
	view := bookView{
		Bids: make([]bookEntryWire, len(bids)),
		Asks: make([]bookEntryWire, len(asks)),
	}
	for i, e := range bids {
		view.Bids[i] = bookEntryWire(e)
	}
	for i, e := range asks {
		view.Asks[i] = bookEntryWire(e)
	}
	if lt, ok := b.LastTrade(); ok {
		view.LastTrade = fmt.Sprintf("%d", lt)
	}
	return view
}

// TradeRecord describes a single execution, for logging and for the
// Update event's "trade" field.
type TradeRecord struct {
	Suit   card.Suit
	Price  int
	Buyer  string
	Seller string
}

func (t TradeRecord) wireString() string {
	return fmt.Sprintf("%s,%d,%s,%s", t.Suit, t.Price, t.Buyer, t.Seller)
}

// updateWire is the Update event's "data" payload (spec.md §6).
type updateWire struct {
	Clubs    bookView `json:"clubs"`
	Diamonds bookView `json:"diamonds"`
	Hearts   bookView `json:"hearts"`
	Spades   bookView `json:"spades"`
	Trade    string   `json:"trade"`
}

func (e *Engine) buildUpdateWire(trade *TradeRecord) updateWire {
	w := updateWire{
		Clubs:    newBookView(e.books[card.Club]),
		Diamonds: newBookView(e.books[card.Diamond]),
		Hearts:   newBookView(e.books[card.Heart]),
		Spades:   newBookView(e.books[card.Spade]),
	}
	if trade != nil {
		w.Trade = trade.wireString()
	}
	return w
}

func (e *Engine) marshalUpdate(trade *TradeRecord) []byte {
	return marshalEnvelope(EventUpdate, e.buildUpdateWire(trade))
}

// playerInventoryWire is one row of end_round's player_inventories array.
type playerInventoryWire struct {
	PlayerName string `json:"player_name"`
	Spades     int    `json:"spades"`
	Clubs      int    `json:"clubs"`
	Diamonds   int    `json:"diamonds"`
	Hearts     int    `json:"hearts"`
}

// playerPointsWire is one row of end_round's player_points array.
type playerPointsWire struct {
	PlayerName string `json:"player_name"`
	Points     int    `json:"points"`
}

// endRoundWire is the end_round event's "data" payload (spec.md §6).
type endRoundWire struct {
	CardCount         map[string]int        `json:"card_count"`
	PlayerInventories []playerInventoryWire `json:"player_inventories"`
	PlayerPoints      []playerPointsWire    `json:"player_points"`
	GoalSuit          string                `json:"goal_suit"`
	CommonSuit        string                `json:"common_suit"`
}

func (e *Engine) marshalEndRound() []byte {
	w := endRoundWire{
		CardCount:  make(map[string]int, len(e.startingInventory)),
		GoalSuit:   e.goalSuit.String(),
		CommonSuit: e.commonSuit.String(),
	}
	for s, n := range e.startingInventory {
		w.CardCount[s.String()+"s"] = n
	}
	for _, name := range e.players {
		inv := e.ledg.Inventory(name)
		w.PlayerInventories = append(w.PlayerInventories, playerInventoryWire{
			PlayerName: name,
			Spades:     inv.Spades,
			Clubs:      inv.Clubs,
			Diamonds:   inv.Diamonds,
			Hearts:     inv.Hearts,
		})
		w.PlayerPoints = append(w.PlayerPoints, playerPointsWire{
			PlayerName: name,
			Points:     e.ledg.Points(name),
		})
	}
	return marshalEnvelope(EventEndRound, w)
}

func marshalDealingCards(inv ledger.Inventory) []byte {
	return marshalEnvelope(EventDealingCards, inv)
}

func marshalEndGame(message string) []byte {
	return marshalEnvelope(EventEndGame, message)
}
