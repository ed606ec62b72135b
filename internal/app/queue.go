package app

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

// QueueManager owns the FIFO waiting pool for one matching channel.
// A single mutex linearizes join/leave/disconnect and the pairing loop:
// no mutation ever observes a half-updated list, so a connection can
// neither be paired twice nor lost mid-pairing. Arrival order is lock
// acquisition order; ties between simultaneous joins resolve to whichever
// call acquired the lock first.
type QueueManager struct {
	mu      sync.Mutex
	waiting []domain.ConnID
	reg     *Registry
	rooms   *RoomManager
}

func NewQueueManager(reg *Registry, rooms *RoomManager) *QueueManager {
	return &QueueManager{reg: reg, rooms: rooms}
}

// Join appends the connection to the waiting pool. Idempotent: a repeat
// join keeps the original position. Effects surface only via broadcast.
func (q *QueueManager) Join(id domain.ConnID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !lo.Contains(q.waiting, id) {
		q.waiting = append(q.waiting, id)
		q.reg.SetState(id, domain.StateWaiting)
		log.Info().Str("module", "app.queue").Str("conn", string(id)).
			Int("pos", len(q.waiting)).Msg("joined queue")
	}
	q.tryPairLocked()
	q.broadcastLocked()
}

// Leave removes the connection from the pool if present, no-op otherwise.
func (q *QueueManager) Leave(id domain.ConnID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if lo.Contains(q.waiting, id) {
		q.waiting = lo.Without(q.waiting, id)
		q.reg.SetState(id, domain.StateIdle)
		log.Info().Str("module", "app.queue").Str("conn", string(id)).Msg("left queue")
	}
	q.tryPairLocked()
	q.broadcastLocked()
}

// Disconnect is the reconciliation path: same removal as Leave but the
// registry entry is about to disappear, so no state reset is attempted
// beyond dropping the id from the pool.
func (q *QueueManager) Disconnect(id domain.ConnID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if lo.Contains(q.waiting, id) {
		q.waiting = lo.Without(q.waiting, id)
		log.Info().Str("module", "app.queue").Str("conn", string(id)).Msg("disconnected while waiting")
	}
	q.tryPairLocked()
	q.broadcastLocked()
}

// Rebroadcast pushes a fresh status snapshot to everyone. Used on connect
// and after an unregister changes the online count.
func (q *QueueManager) Rebroadcast() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.broadcastLocked()
}

func (q *QueueManager) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// tryPairLocked dequeues the two oldest waiters until fewer than two
// remain. Strict FIFO: arrivals A,B,C,D pair as (A,B) then (C,D).
func (q *QueueManager) tryPairLocked() {
	for len(q.waiting) >= 2 {
		a, b := q.waiting[0], q.waiting[1]
		q.waiting = q.waiting[2:]
		if _, err := q.rooms.Create(a, b); err != nil {
			log.Error().Err(err).Str("module", "app.queue").
				Str("a", string(a)).Str("b", string(b)).Msg("pairing failed")
		}
	}
}

// broadcastLocked emits the aggregate snapshot to every live connection,
// then a positioned update to each waiter. Sends are best-effort; a slow
// receiver is skipped, never waited on.
func (q *QueueManager) broadcastLocked() {
	waiting := len(q.waiting)
	online := q.reg.Count()

	agg := core.QueueUpdate{Type: core.EvtQueueUpdate, Waiting: waiting, Online: online}
	for _, c := range q.reg.Conns() {
		emit(c, agg)
	}

	for i, id := range q.waiting {
		c, ok := q.reg.Conn(id)
		if !ok {
			continue
		}
		pos := i + 1
		emit(c, core.QueueUpdate{Type: core.EvtQueueUpdate, Position: &pos, Waiting: waiting, Online: online})
	}
}
