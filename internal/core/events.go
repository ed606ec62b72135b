package core

import "github.com/assumechat/server/internal/domain"

// Wire event names. The queue scope handles matching, the chat scope
// handles in-room relay; both ride the same connection.
const (
	EvtJoinQueue   = "joinQueue"
	EvtLeaveQueue  = "leaveQueue"
	EvtQueueUpdate = "queueUpdate"
	EvtMatched     = "matched"

	EvtJoinRoom   = "joinRoom"
	EvtJoinedRoom = "joinedRoom"
	EvtHandshake  = "handshake"
	EvtMessage    = "message"
	EvtTyping     = "typing"
	EvtLeaveRoom  = "leaveRoom"
	EvtPeerLeft   = "peerLeft"

	EvtError = "error"
)

// QueueUpdate is the queue status snapshot. Position is nil in the
// aggregate broadcast and 1-indexed in the per-waiter update.
type QueueUpdate struct {
	Type     string `json:"type"`
	Position *int   `json:"position"`
	Waiting  int    `json:"waiting"`
	Online   int    `json:"online"`
}

// Matched tells one half of a fresh pair which room to join and who
// the other member is.
type Matched struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	Peer   domain.ConnID `json:"peer"`
}

type JoinedRoom struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

// Handshake carries the display identity peers exchange after matching.
// The server relays it and never stores it.
type Handshake struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// Message is the relayed chat message, server-stamped with SenderID and
// Timestamp (unix milliseconds) so both members render one consistent order.
type Message struct {
	Type      string        `json:"type"`
	RoomID    domain.RoomID `json:"roomId"`
	SenderID  domain.ConnID `json:"senderId"`
	PeerID    string        `json:"peerId"`
	Content   string        `json:"content"`
	Timestamp int64         `json:"timestamp"`
}

type Typing struct {
	Type     string        `json:"type"`
	SenderID domain.ConnID `json:"senderId"`
	PeerID   string        `json:"peerId"`
}

type PeerLeft struct {
	Type   string        `json:"type"`
	PeerID domain.ConnID `json:"peerId"`
	RoomID domain.RoomID `json:"roomId"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
