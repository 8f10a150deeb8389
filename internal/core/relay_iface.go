package core

import (
	"context"
	"encoding/json"

	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/signal"
)

// RelayLink is the client side of the signaling relay. Callbacks fire from
// the transport goroutine; the app re-dispatches them onto its event loop.
type RelayLink interface {
	// Run dials the relay and pumps events until ctx is cancelled.
	Run(ctx context.Context) error

	SendJoin(room domain.RoomID) error
	SendLeave() error
	// SendRelayed addresses an opaque signaling payload (offer/answer/candidate)
	// to one participant. Fire-and-forget end to end.
	SendRelayed(kind string, to domain.ParticipantID, payload json.RawMessage) error
	// SendSpeech broadcasts one utterance to the rest of the room.
	SendSpeech(msg signal.Speech) error

	OnWelcome(func(id domain.ParticipantID))
	OnRoomState(func(members []domain.ParticipantID))
	OnUserJoined(func(id domain.ParticipantID))
	OnUserLeft(func(id domain.ParticipantID))
	OnRelayed(func(kind string, from domain.ParticipantID, payload json.RawMessage))
	OnSpeech(func(msg signal.Speech))
}
