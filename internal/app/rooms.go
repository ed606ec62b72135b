package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

// ErrNotWaiting reports a pairing-contract violation: Create was handed a
// connection that is not currently waiting. This is a caller bug, never a
// user-facing condition.
var ErrNotWaiting = errors.New("pairing contract violated: connection not waiting")

type roomEntry struct {
	room *domain.Room
	pair [2]domain.ConnID
	// scope is the set of connections admitted to the room's broadcasts.
	// Admission happens via joinRoom and is not checked against the pair;
	// any connection that learns a room id can subscribe. Known gap.
	scope map[domain.ConnID]core.SignalConnection
}

func (e *roomEntry) has(id domain.ConnID) bool {
	if _, ok := e.scope[id]; ok {
		return true
	}
	return e.pair[0] == id || e.pair[1] == id
}

// RoomManager owns the ephemeral room table and all in-room relay. Rooms
// are created only by pairing and are torn down on the first departure;
// a room is never reused.
type RoomManager struct {
	mu    sync.Mutex
	reg   *Registry
	rooms map[domain.RoomID]*roomEntry
}

func NewRoomManager(reg *Registry) *RoomManager {
	return &RoomManager{reg: reg, rooms: make(map[domain.RoomID]*roomEntry)}
}

// Create allocates a fresh room for a matched pair and notifies both
// sides. Precondition: both connections are Waiting.
func (m *RoomManager) Create(a, b domain.ConnID) (domain.RoomID, error) {
	for _, id := range []domain.ConnID{a, b} {
		if st, ok := m.reg.StateOf(id); !ok || st != domain.StateWaiting {
			return "", fmt.Errorf("%w: %s", ErrNotWaiting, id)
		}
	}

	id := domain.RoomID(uuid.NewString())
	entry := &roomEntry{
		room:  &domain.Room{ID: id, CreatedAt: time.Now(), State: domain.RoomActive},
		pair:  [2]domain.ConnID{a, b},
		scope: make(map[domain.ConnID]core.SignalConnection, 2),
	}
	m.mu.Lock()
	m.rooms[id] = entry
	m.mu.Unlock()

	m.reg.SetState(a, domain.StateInRoom)
	m.reg.SetState(b, domain.StateInRoom)

	if ca, ok := m.reg.Conn(a); ok {
		emit(ca, core.Matched{Type: core.EvtMatched, RoomID: id, Peer: b})
	}
	if cb, ok := m.reg.Conn(b); ok {
		emit(cb, core.Matched{Type: core.EvtMatched, RoomID: id, Peer: a})
	}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).
		Str("a", string(a)).Str("b", string(b)).Msg("room created")
	return id, nil
}

// Subscribe admits the connection to the room's broadcast scope and acks
// with joinedRoom. Repeat subscriptions are silent no-ops, as is an
// unknown room id. The caller's membership in the pair is not verified.
func (m *RoomManager) Subscribe(id domain.ConnID, roomID domain.RoomID, conn core.SignalConnection) {
	m.mu.Lock()
	e, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		log.Warn().Str("module", "app.rooms").Str("room", string(roomID)).Msg("subscribe to unknown room")
		return
	}
	if _, already := e.scope[id]; already {
		m.mu.Unlock()
		return
	}
	e.scope[id] = conn
	m.mu.Unlock()

	emit(conn, core.JoinedRoom{Type: core.EvtJoinedRoom, RoomID: roomID})
	log.Info().Str("module", "app.rooms").Str("conn", string(id)).Str("room", string(roomID)).Msg("joined room scope")
}

// Handshake relays the sender's display identity to the other member only.
func (m *RoomManager) Handshake(roomID domain.RoomID, sender domain.ConnID, userID, userName string) {
	m.relay(roomID, sender, false, core.Handshake{Type: core.EvtHandshake, UserID: userID, UserName: userName})
}

// Message stamps the server timestamp and sender id onto the payload and
// relays it to every member, the sender included, so all clients render
// one server-sourced order.
func (m *RoomManager) Message(roomID domain.RoomID, sender domain.ConnID, peerID, content string) {
	m.relay(roomID, sender, true, core.Message{
		Type:      core.EvtMessage,
		RoomID:    roomID,
		SenderID:  sender,
		PeerID:    peerID,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Typing is an ephemeral UI hint for the other member. No timestamp,
// no delivery guarantee.
func (m *RoomManager) Typing(roomID domain.RoomID, sender domain.ConnID, peerID string) {
	m.relay(roomID, sender, false, core.Typing{Type: core.EvtTyping, SenderID: sender, PeerID: peerID})
}

func (m *RoomManager) relay(roomID domain.RoomID, sender domain.ConnID, echo bool, v any) {
	m.mu.Lock()
	e, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return
	}
	targets := make([]core.SignalConnection, 0, len(e.scope))
	for id, c := range e.scope {
		if !echo && id == sender {
			continue
		}
		targets = append(targets, c)
	}
	m.mu.Unlock()

	for _, c := range targets {
		emit(c, v)
	}
}

// Leave removes the connection from the room. The remaining member gets
// one peerLeft; the room transitions to Closed and is discarded.
func (m *RoomManager) Leave(id domain.ConnID, roomID domain.RoomID) {
	m.mu.Lock()
	e, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.rooms, roomID)
	m.mu.Unlock()

	m.close(e, id)
}

// DisconnectTeardown runs the Leave teardown for every room the lost
// connection occupies. Idempotent: a second pass finds nothing.
func (m *RoomManager) DisconnectTeardown(id domain.ConnID) {
	m.mu.Lock()
	var hit []*roomEntry
	for rid, e := range m.rooms {
		if e.has(id) {
			delete(m.rooms, rid)
			hit = append(hit, e)
		}
	}
	m.mu.Unlock()

	for _, e := range hit {
		m.close(e, id)
	}
}

// close finishes a teardown after the entry left the table: notify the
// remaining scope, then settle every involved connection back to Idle.
func (m *RoomManager) close(e *roomEntry, leaver domain.ConnID) {
	e.room.State = domain.RoomClosed
	for id, c := range e.scope {
		if id == leaver {
			continue
		}
		emit(c, core.PeerLeft{Type: core.EvtPeerLeft, PeerID: leaver, RoomID: e.room.ID})
	}

	m.settle(leaver)
	for _, id := range e.pair {
		m.settle(id)
	}
	for id := range e.scope {
		m.settle(id)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(e.room.ID)).
		Str("leaver", string(leaver)).Msg("room closed")
}

// settle resets InRoom back to Idle so the connection may re-join the
// queue. Waiting connections that slipped into a scope keep their state.
func (m *RoomManager) settle(id domain.ConnID) {
	if st, ok := m.reg.StateOf(id); ok && st == domain.StateInRoom {
		m.reg.SetState(id, domain.StateIdle)
	}
}

func (m *RoomManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// RoomInfo is a read-only view for the stats endpoint.
type RoomInfo struct {
	ID        domain.RoomID `json:"id"`
	Members   int           `json:"members"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (m *RoomManager) List() []RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.MapToSlice(m.rooms, func(id domain.RoomID, e *roomEntry) RoomInfo {
		return RoomInfo{ID: id, Members: len(e.scope), CreatedAt: e.room.CreatedAt}
	})
}
