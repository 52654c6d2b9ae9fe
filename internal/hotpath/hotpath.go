// Package hotpath implements the single-threaded executor that owns the
// matching engine (spec.md §4.5, §5). Every mutation of engine state —
// order processing, round transitions, registration — is submitted as a
// Task and run strictly in submission order by one goroutine.
package hotpath

import (
	"gopkg.in/tomb.v2"

	"github.com/0xDub/figgie-tournament-testnet/internal/engine"
	"github.com/rs/zerolog/log"
	"time"
)

// idleTick is how long the executor waits with no submitted task before
// it broadcasts an unsolicited book snapshot (spec.md §4.5).
const idleTick = 5 * time.Second

// Task is a unit of work given exclusive access to the engine. Tasks
// that need to return a value to their submitter close over their own
// reply channel.
type Task func(eng *engine.Engine)

// Executor runs Tasks against a single Engine, one at a time, in the
// order Submit was called (spec.md §4.5's ordering guarantee).
type Executor struct {
	eng   *engine.Engine
	queue *unboundedQueue
}

// New returns an Executor bound to eng. Call Run in its own goroutine
// to start draining submitted tasks.
func New(eng *engine.Engine) *Executor {
	return &Executor{eng: eng, queue: newUnboundedQueue()}
}

// Submit enqueues task for execution. It never blocks the caller on
// engine availability — only on the (effectively unbounded) queue's
// internal bookkeeping lock, which is held briefly.
func (x *Executor) Submit(task Task) {
	x.queue.push(task)
}

// Run drains the queue until t is dying, applying each task to the
// engine in order. When idleTick elapses with no task dequeued, it
// broadcasts a book snapshot instead (spec.md §4.5's idle-tick branch).
func (x *Executor) Run(t *tomb.Tomb) error {
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()

	log.Info().Msg("hotpath executor starting")
	for {
		select {
		case <-t.Dying():
			log.Info().Msg("hotpath executor stopping")
			return nil
		case task := <-x.queue.out:
			task(x.eng)
			ticker.Reset(idleTick)
		case <-ticker.C:
			x.eng.BroadcastSnapshot()
		}
	}
}
