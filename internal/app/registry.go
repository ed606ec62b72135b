package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

type connEntry struct {
	State        domain.ConnState
	WaitingSince time.Time
	Conn         core.SignalConnection
}

// Registry is the ground truth for "is this id still alive". Every live
// connection is registered exactly once; queue and rooms only reference ids.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*connEntry)}
}

func (r *Registry) Register(id domain.ConnID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{State: domain.StateIdle, Conn: conn}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered")
}

// Unregister is idempotent; removing an unknown id is a no-op.
func (r *Registry) Unregister(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered")
}

func (r *Registry) Exists(id domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) StateOf(id domain.ConnID) (domain.ConnState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return domain.StateIdle, false
	}
	return e.State, true
}

// SetState records the new lifecycle state and stamps the waiting
// timestamp while the connection sits in the queue.
func (r *Registry) SetState(id domain.ConnID, s domain.ConnState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.State = s
	if s == domain.StateWaiting {
		e.WaitingSince = time.Now()
	} else {
		e.WaitingSince = time.Time{}
	}
	return true
}

func (r *Registry) Conn(id domain.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Conns snapshots every live outbound connection for fan-out.
func (r *Registry) Conns() []core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapToSlice(r.conns, func(_ domain.ConnID, e *connEntry) core.SignalConnection {
		return e.Conn
	})
}
