package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assumechat/server/internal/app"
	"github.com/assumechat/server/internal/app/orch"
	"github.com/assumechat/server/internal/config"
	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

func newTestController() *Controller {
	reg := app.NewRegistry()
	rooms := app.NewRoomManager(reg)
	queue := app.NewQueueManager(reg, rooms)
	cfg := &config.Config{
		Mode:       "debug",
		Port:       0,
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
		SendBuffer: 64,
	}
	return NewController(orch.New(reg, queue, rooms), cfg)
}

// testConn wires a WsConn without a real websocket underneath; frames
// are read straight off the send buffer.
func testConn(ctl *Controller, id domain.ConnID) *WsConn {
	c := &WsConn{send: make(chan core.Frame, ctl.cfg.SendBuffer)}
	ctl.Orch.OnConnect(id, c)
	return c
}

func drain(t *testing.T, c *WsConn, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case fr := <-c.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(fr, &m))
			if m["type"] == typ {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func TestHandleEventBadJSON(t *testing.T) {
	ctl := newTestController()
	c := testConn(ctl, "a")
	drain(t, c, "queueUpdate")

	ctl.handleEvent("a", c, core.Frame(`{not json`))

	errs := drain(t, c, "error")
	require.Len(t, errs, 1)
	assert.Equal(t, "bad_payload", errs[0]["error"])
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	ctl := newTestController()
	c := testConn(ctl, "a")
	drain(t, c, "queueUpdate")

	ctl.handleEvent("a", c, core.Frame(`{"type":"selfDestruct"}`))

	assert.Empty(t, drain(t, c, "error"))
}

func TestHandleEventDropsInvalidPayloadSilently(t *testing.T) {
	ctl := newTestController()
	c := testConn(ctl, "a")
	drain(t, c, "queueUpdate")

	// joinRoom without a roomId is absorbed: no error frame, no ack.
	ctl.handleEvent("a", c, core.Frame(`{"type":"joinRoom"}`))

	assert.Empty(t, drain(t, c, "error"))
	assert.Empty(t, drain(t, c, "joinedRoom"))
}

func TestDispatchMatchAndRelayFlow(t *testing.T) {
	ctl := newTestController()
	ca := testConn(ctl, "a")
	cb := testConn(ctl, "b")

	ctl.handleEvent("a", ca, core.Frame(`{"type":"joinQueue"}`))
	ctl.handleEvent("b", cb, core.Frame(`{"type":"joinQueue"}`))

	ma := drain(t, ca, "matched")
	mb := drain(t, cb, "matched")
	require.Len(t, ma, 1)
	require.Len(t, mb, 1)
	assert.Equal(t, "b", ma[0]["peer"])
	assert.Equal(t, "a", mb[0]["peer"])
	roomID := ma[0]["roomId"].(string)

	join := `{"type":"joinRoom","roomId":"` + roomID + `"}`
	ctl.handleEvent("a", ca, core.Frame(join))
	ctl.handleEvent("b", cb, core.Frame(join))
	require.Len(t, drain(t, ca, "joinedRoom"), 1)
	require.Len(t, drain(t, cb, "joinedRoom"), 1)

	ctl.handleEvent("a", ca, core.Frame(`{"type":"handshake","roomId":"`+roomID+`","userId":"u-1","userName":"Ada"}`))
	hs := drain(t, cb, "handshake")
	require.Len(t, hs, 1)
	assert.Equal(t, "u-1", hs[0]["userId"])
	assert.Empty(t, drain(t, ca, "handshake"))

	ctl.handleEvent("a", ca, core.Frame(`{"type":"message","roomId":"`+roomID+`","content":"hi","peerId":"b"}`))
	msgA := drain(t, ca, "message")
	msgB := drain(t, cb, "message")
	require.Len(t, msgA, 1)
	require.Len(t, msgB, 1)
	assert.Equal(t, "hi", msgA[0]["content"])
	assert.Equal(t, "a", msgB[0]["senderId"])
	assert.Equal(t, msgA[0]["timestamp"], msgB[0]["timestamp"])

	ctl.handleEvent("b", cb, core.Frame(`{"type":"typing","roomId":"`+roomID+`","peerId":"a"}`))
	require.Len(t, drain(t, ca, "typing"), 1)
	assert.Empty(t, drain(t, cb, "typing"))

	ctl.handleEvent("a", ca, core.Frame(`{"type":"leaveRoom","roomId":"`+roomID+`"}`))
	left := drain(t, cb, "peerLeft")
	require.Len(t, left, 1)
	assert.Equal(t, "a", left[0]["peerId"])
	assert.Equal(t, 0, ctl.Orch.Rooms.Count())
}

func TestDispatchLeaveQueue(t *testing.T) {
	ctl := newTestController()
	ca := testConn(ctl, "a")

	ctl.handleEvent("a", ca, core.Frame(`{"type":"joinQueue"}`))
	require.Equal(t, 1, ctl.Orch.Queue.Len())

	ctl.handleEvent("a", ca, core.Frame(`{"type":"leaveQueue"}`))
	assert.Equal(t, 0, ctl.Orch.Queue.Len())
	st, _ := ctl.Orch.Registry.StateOf("a")
	assert.Equal(t, domain.StateIdle, st)
}

func TestTrySendBackpressure(t *testing.T) {
	c := &WsConn{send: make(chan core.Frame, 1)}
	require.NoError(t, c.TrySend(core.Frame("one")))
	assert.ErrorIs(t, c.TrySend(core.Frame("two")), core.ErrBackpressure)
}

func TestTrySendAfterClose(t *testing.T) {
	c := &WsConn{send: make(chan core.Frame, 1)}
	c.Close()
	assert.Error(t, c.TrySend(core.Frame("x")))
	// Double close must not panic.
	c.Close()
}
