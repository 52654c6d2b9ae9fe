// Package ledger tracks per-player card inventories and point balances
// (spec.md §4.2). It has no internal locking: it is owned exclusively by
// the hotpath goroutine, per spec.md §9's single-ownership design.
package ledger

import (
	"fmt"

	"github.com/0xDub/figgie-tournament-testnet/internal/card"
	"github.com/rs/zerolog/log"
)

// Inventory is a player's card counts across the four suits.
type Inventory struct {
	Spades   int `json:"spades"`
	Clubs    int `json:"clubs"`
	Diamonds int `json:"diamonds"`
	Hearts   int `json:"hearts"`
}

// Count returns the number of cards of s held.
func (inv Inventory) Count(s card.Suit) int {
	switch s {
	case card.Spade:
		return inv.Spades
	case card.Club:
		return inv.Clubs
	case card.Diamond:
		return inv.Diamonds
	case card.Heart:
		return inv.Hearts
	default:
		return 0
	}
}

func (inv *Inventory) add(s card.Suit, delta int) {
	switch s {
	case card.Spade:
		inv.Spades += delta
	case card.Club:
		inv.Clubs += delta
	case card.Diamond:
		inv.Diamonds += delta
	case card.Heart:
		inv.Hearts += delta
	}
}

// String renders "spades,clubs,diamonds,hearts" for /inventory's message
// body (spec.md §6).
func (inv Inventory) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", inv.Spades, inv.Clubs, inv.Diamonds, inv.Hearts)
}

// Ledger holds every registered player's inventory and points.
type Ledger struct {
	inventory     map[string]Inventory
	points        map[string]int
	initialPoints map[string]int
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		inventory:     make(map[string]Inventory),
		points:        make(map[string]int),
		initialPoints: make(map[string]int),
	}
}

// Register creates player with the given starting balance and inventory.
// Re-registering an existing player is a no-op that preserves their
// current state (idempotent registration, see SPEC_FULL.md §1).
func (l *Ledger) Register(player string, startingBalance int, inv Inventory) {
	if _, ok := l.points[player]; ok {
		return
	}
	l.points[player] = startingBalance
	l.inventory[player] = inv
	l.initialPoints[player] = startingBalance
}

// Has reports whether player is registered.
func (l *Ledger) Has(player string) bool {
	_, ok := l.points[player]
	return ok
}

// Points returns player's current point balance.
func (l *Ledger) Points(player string) int {
	return l.points[player]
}

// Inventory returns a copy of player's inventory.
func (l *Ledger) Inventory(player string) Inventory {
	return l.inventory[player]
}

// SetInventory replaces player's entire inventory, used when dealing a
// fresh round (spec.md §4.4 step 7).
func (l *Ledger) SetInventory(player string, inv Inventory) {
	l.inventory[player] = inv
}

// AddPoints adjusts player's point balance by delta, which may be negative
// (ante debits, round-end payouts).
func (l *Ledger) AddPoints(player string, delta int) {
	l.points[player] += delta
}

// ChangeInventory adjusts player's holding of s by delta (+1/-1 on a
// match). Admission is responsible for ensuring sells never underflow
// (spec.md §4.2); if it happens anyway this indicates a bug upstream of
// the ledger and is logged as a fatal-shaped invariant violation rather
// than silently clamped, per spec.md §9.
func (l *Ledger) ChangeInventory(player string, s card.Suit, delta int) {
	inv := l.inventory[player]
	if delta < 0 && inv.Count(s)+delta < 0 {
		log.Error().
			Str("player", player).
			Str("suit", s.String()).
			Int("held", inv.Count(s)).
			Int("delta", delta).
			Msg("inventory underflow: admission should have rejected this sell")
		return
	}
	inv.add(s, delta)
	l.inventory[player] = inv
}

// SnapshotInitialPoints copies the current point balances into
// initial_points, used at round start for end-of-round point-change
// reporting (spec.md §3).
func (l *Ledger) SnapshotInitialPoints() {
	for player, pts := range l.points {
		l.initialPoints[player] = pts
	}
}

// InitialPoints returns player's point balance as of the last
// SnapshotInitialPoints call.
func (l *Ledger) InitialPoints(player string) int {
	return l.initialPoints[player]
}

// Reset clears all ledger state (spec.md §4.4 end_game / drop_all_players).
func (l *Ledger) Reset() {
	l.inventory = make(map[string]Inventory)
	l.points = make(map[string]int)
	l.initialPoints = make(map[string]int)
}
