// Package session holds the per-peer connection state machine and its
// reliable channel handling.
package session

// State is the lifecycle of one peer session. Closed is terminal: a fresh
// user-joined is required to build a new session.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
