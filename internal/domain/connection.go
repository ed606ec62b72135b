// Package domain contains entities without logic, just meta-data.
package domain

// ConnID is the opaque identifier the transport assigns to one live
// client connection. It is the only identity the matching core knows.
type ConnID string

// ConnState is the per-connection lifecycle:
// Idle → Waiting (joinQueue) → InRoom (matched) → Idle (room closed).
// A disconnect removes the connection from any state.
type ConnState int

const (
	StateIdle ConnState = iota
	StateWaiting
	StateInRoom
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateInRoom:
		return "in_room"
	default:
		return "unknown"
	}
}
