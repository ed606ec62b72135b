package domain

import "time"

type RoomID string

type RoomState int

const (
	RoomActive RoomState = iota
	RoomClosed
)

// Room is an ephemeral two-party chat scope. It lives only in process
// memory and is discarded the moment either member leaves.
type Room struct {
	ID        RoomID
	CreatedAt time.Time
	State     RoomState
}
