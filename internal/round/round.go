// Package round implements RoundController: the scheduled task that
// sequences rounds within a game and games within a server's lifetime
// (spec.md §4.6).
package round

import (
	"sync/atomic"
	"time"

	"gopkg.in/tomb.v2"

	"github.com/0xDub/figgie-tournament-testnet/internal/engine"
	"github.com/0xDub/figgie-tournament-testnet/internal/hotpath"
	"github.com/rs/zerolog/log"
)

// Config holds the timing constants a Controller drives rounds with
// (spec.md §6's Constants table).
type Config struct {
	RoundsPerGame int
	RoundDuration time.Duration
	PauseDuration time.Duration
}

// Controller runs the start_round/end_round/end_game cycle against an
// engine via the hotpath executor, exposing a game_active flag the
// admission layer polls (spec.md §5).
type Controller struct {
	cfg  Config
	exec *hotpath.Executor

	active atomic.Bool
	start  chan struct{}
}

// New returns a Controller. Call Run in its own goroutine; call
// RequestStart from the admin "start_game" handler to kick off a game
// cycle if one is not already running.
func New(cfg Config, exec *hotpath.Executor) *Controller {
	return &Controller{
		cfg:   cfg,
		exec:  exec,
		start: make(chan struct{}),
	}
}

// Active reports whether a round is currently in progress. The
// admission layer reads this to short-circuit with NO_GAME when no
// round is live (spec.md §4.6).
func (c *Controller) Active() bool {
	return c.active.Load()
}

// RequestStart signals Run to begin a new game cycle if one isn't
// already underway. A duplicate request while a cycle is in flight is
// dropped silently.
func (c *Controller) RequestStart() {
	select {
	case c.start <- struct{}{}:
	default:
	}
}

// Run waits for start requests and, on each one, drives exactly one
// game cycle to completion before waiting for the next (spec.md §4.6).
func (c *Controller) Run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case <-c.start:
			c.runGame(t)
		}
	}
}

func (c *Controller) runGame(t *tomb.Tomb) {
	log.Info().Int("rounds", c.cfg.RoundsPerGame).Msg("game cycle starting")

	for i := 0; i < c.cfg.RoundsPerGame; i++ {
		if !sleep(t, c.cfg.PauseDuration) {
			return
		}

		c.active.Store(true)
		c.exec.Submit(func(eng *engine.Engine) { eng.StartRound(i) })

		if !sleep(t, c.cfg.RoundDuration) {
			c.active.Store(false)
			return
		}

		c.active.Store(false)
		done := make(chan struct{})
		c.exec.Submit(func(eng *engine.Engine) {
			eng.EndRound()
			close(done)
		})
		select {
		case <-done:
		case <-t.Dying():
			return
		}
	}

	done := make(chan struct{})
	c.exec.Submit(func(eng *engine.Engine) {
		eng.EndGame()
		eng.DropAllPlayers()
		close(done)
	})
	select {
	case <-done:
	case <-t.Dying():
		return
	}

	log.Info().Msg("game cycle finished")
	sleep(t, c.cfg.PauseDuration)
}

// sleep waits for d or t dying, whichever comes first, reporting false
// if the tomb died first so callers can unwind promptly.
func sleep(t *tomb.Tomb, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-t.Dying():
		return false
	}
}
