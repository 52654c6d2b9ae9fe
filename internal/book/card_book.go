// Package book implements CardBook: the single-resting-quote-per-player
// order book for one suit (spec.md §4.1).
package book

import "sort"

// BookEntry is one resting quote: a player and the price they are
// quoting.
type BookEntry struct {
	Player string `json:"player"`
	Price  int    `json:"price"`
}

// CardBook holds one suit's resting bids and asks plus the last traded
// price. At most one BookEntry per player per side (spec.md §3).
type CardBook struct {
	bids      []BookEntry
	asks      []BookEntry
	lastTrade *int
}

// New returns an empty CardBook.
func New() *CardBook {
	return &CardBook{
		bids: make([]BookEntry, 0, 8),
		asks: make([]BookEntry, 0, 8),
	}
}

// UpsertBid inserts or overwrites player's resting bid, then re-sorts bids
// descending by price. Ties keep the first inserter's relative position
// (stable sort preserves insertion order for equal prices).
func (b *CardBook) UpsertBid(price int, player string) {
	upsert(&b.bids, price, player)
	sort.SliceStable(b.bids, func(i, j int) bool { return b.bids[i].Price > b.bids[j].Price })
}

// UpsertAsk inserts or overwrites player's resting ask, then re-sorts asks
// ascending by price.
func (b *CardBook) UpsertAsk(price int, player string) {
	upsert(&b.asks, price, player)
	sort.SliceStable(b.asks, func(i, j int) bool { return b.asks[i].Price < b.asks[j].Price })
}

func upsert(entries *[]BookEntry, price int, player string) {
	for i := range *entries {
		if (*entries)[i].Player == player {
			(*entries)[i].Price = price
			return
		}
	}
	*entries = append(*entries, BookEntry{Price: price, Player: player})
}

// CancelBid removes player's resting bid, if any. No-op if absent.
func (b *CardBook) CancelBid(player string) {
	b.bids = cancel(b.bids, player)
}

// CancelAsk removes player's resting ask, if any. No-op if absent.
func (b *CardBook) CancelAsk(player string) {
	b.asks = cancel(b.asks, player)
}

func cancel(entries []BookEntry, player string) []BookEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Player != player {
			out = append(out, e)
		}
	}
	return out
}

// BestBid returns the highest resting bid, if any.
func (b *CardBook) BestBid() (BookEntry, bool) {
	if len(b.bids) == 0 {
		return BookEntry{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the lowest resting ask, if any.
func (b *CardBook) BestAsk() (BookEntry, bool) {
	if len(b.asks) == 0 {
		return BookEntry{}, false
	}
	return b.asks[0], true
}

// Bids returns a copy of the resting bids, best first.
func (b *CardBook) Bids() []BookEntry {
	out := make([]BookEntry, len(b.bids))
	copy(out, b.bids)
	return out
}

// Asks returns a copy of the resting asks, best first.
func (b *CardBook) Asks() []BookEntry {
	out := make([]BookEntry, len(b.asks))
	copy(out, b.asks)
	return out
}

// LastTrade returns the most recent execution price on this suit, if any.
func (b *CardBook) LastTrade() (int, bool) {
	if b.lastTrade == nil {
		return 0, false
	}
	return *b.lastTrade, true
}

// SetLastTrade records p as the suit's most recent execution price.
func (b *CardBook) SetLastTrade(p int) {
	b.lastTrade = &p
}

// ResetQuotes clears bids and asks, preserving last_trade. Called on every
// suit after any trade, on any book (spec.md §4.3 "Why reset all four
// books after a match").
func (b *CardBook) ResetQuotes() {
	b.bids = b.bids[:0]
	b.asks = b.asks[:0]
}

// ResetFullBook clears bids, asks, and last_trade. Called at round start
// (spec.md §4.4 step 8).
func (b *CardBook) ResetFullBook() {
	b.bids = b.bids[:0]
	b.asks = b.asks[:0]
	b.lastTrade = nil
}
