package core

import "encoding/json"

// MediaSession is one negotiated connection to a remote participant. It
// carries the media path and the reliable channel; SDP and candidate payloads
// stay opaque JSON so the session logic never depends on the RTC stack.
type MediaSession interface {
	// CreateOffer opens the reliable channel and produces the local offer.
	// Initiator side only.
	CreateOffer() (json.RawMessage, error)
	// HandleOffer applies a remote offer and produces the matching answer.
	// Responder side only.
	HandleOffer(offer json.RawMessage) (json.RawMessage, error)
	// HandleAnswer applies the remote answer to a previously created offer.
	HandleAnswer(answer json.RawMessage) error
	// AddCandidate applies a remote network address candidate.
	AddCandidate(candidate json.RawMessage) error

	// SendChannel writes one frame to the reliable channel.
	SendChannel(data []byte) error
	// SetTrackEnabled flips the enabled flag of a local media track kind
	// ("audio"/"video") without touching the session.
	SetTrackEnabled(kind string, enabled bool)
	// Close releases the channel and any held media tracks. Idempotent.
	Close()

	// OnCandidate sets the callback for locally gathered candidates.
	OnCandidate(func(candidate json.RawMessage))
	// OnChannelOpen fires once the reliable channel is usable.
	OnChannelOpen(func())
	// OnChannelMessage fires for every inbound channel frame.
	OnChannelMessage(func(data []byte))
	// OnClosed fires on terminal connection failure or close.
	OnClosed(func())
}

// MediaDialer builds a MediaSession for one remote participant.
type MediaDialer interface {
	Dial(remote string) (MediaSession, error)
}
