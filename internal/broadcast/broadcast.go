// Package broadcast fans engine events out to subscribed players
// (spec.md §4.7). The player-name -> Sink map is guarded by a mutex: the
// hotpath goroutine sends through it while network goroutines install
// and remove sinks on subscribe and disconnect, so every method holds the
// lock for its whole map access, including the Sends themselves.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Sink is one subscriber's outbound channel. Implementations (e.g. a
// websocket connection) must be safe to call Send from the hotpath
// goroutine; errors indicate a dead connection.
type Sink interface {
	Send(payload []byte) error
}

// Broadcaster maps player-name to an outbound Sink.
type Broadcaster struct {
	mu    sync.Mutex
	sinks map[string]Sink
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{sinks: make(map[string]Sink)}
}

// Subscribe installs sink as player's outbound channel, replacing any
// prior sink for that player.
func (b *Broadcaster) Subscribe(player string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[player] = sink
}

// Unsubscribe removes player's sink, if any.
func (b *Broadcaster) Unsubscribe(player string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, player)
}

// Broadcast sends payload to every subscribed player. Sinks whose Send
// fails are collected during iteration and removed afterward, matching
// the reference implementation's iterate-then-prune pattern used
// identically for every event kind (spec.md §4.7).
func (b *Broadcaster) Broadcast(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var dead []string
	for player, sink := range b.sinks {
		if err := sink.Send(payload); err != nil {
			log.Warn().Str("player", player).Err(err).Msg("dropping subscriber, send failed")
			dead = append(dead, player)
		}
	}
	for _, player := range dead {
		delete(b.sinks, player)
	}
}

// SendTo sends payload to a single player's sink, if subscribed. Used for
// the per-player dealing_cards event (spec.md §4.4 step 9).
func (b *Broadcaster) SendTo(player string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sink, ok := b.sinks[player]
	if !ok {
		return
	}
	if err := sink.Send(payload); err != nil {
		log.Warn().Str("player", player).Err(err).Msg("dropping subscriber, send failed")
		delete(b.sinks, player)
	}
}
