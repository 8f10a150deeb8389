// Package core holds the interfaces the application is written against.
// Implementations live in adapters; the relay and the client app only see
// these contracts.
package core

// Frame is a raw wire payload.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
