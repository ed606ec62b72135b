package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return core.ErrBackpressure
	}
	cp := make(core.Frame, len(fr))
	copy(cp, fr)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// events decodes every received frame of the given type, in order.
func (f *fakeConn) events(t *testing.T, typ string) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) last(t *testing.T, typ string) map[string]any {
	t.Helper()
	evts := f.events(t, typ)
	if len(evts) == 0 {
		return nil
	}
	return evts[len(evts)-1]
}

func newHarness() (*Registry, *QueueManager, *RoomManager) {
	reg := NewRegistry()
	rooms := NewRoomManager(reg)
	queue := NewQueueManager(reg, rooms)
	return reg, queue, rooms
}

func connect(reg *Registry, id domain.ConnID) *fakeConn {
	c := &fakeConn{}
	reg.Register(id, c)
	return c
}
