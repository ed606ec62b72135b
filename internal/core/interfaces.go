package core

import "errors"

// Frame is a single marshaled wire event.
type Frame []byte

// ErrBackpressure is returned by TrySend when the receiver's outbound
// buffer is full. Delivery is best-effort; the frame is dropped.
var ErrBackpressure = errors.New("backpressure")

// SignalConnection abstracts the outbound path of one client connection.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
