// Package signal defines the wire shapes exchanged with the relay and over
// peer channels. The relay never looks inside offer/answer/candidate
// payloads; it only reads the envelope type and the target id.
package signal

import (
	"encoding/json"
	"errors"

	"github.com/linzo/meet/internal/domain"
)

const (
	TypeWelcome    = "welcome"
	TypeJoin       = "join"
	TypeLeave      = "leave"
	TypeRoomState  = "room_state"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeOffer      = "offer"
	TypeAnswer     = "answer"
	TypeCandidate  = "ice-candidate"
	TypeSpeech     = "speech-translation"
	TypeError      = "error"
)

var ErrBadEnvelope = errors.New("bad signal envelope")

// Envelope sniffs the message type before full decoding.
type Envelope struct {
	Type string `json:"type"`
}

// Welcome tells a freshly connected client its relay-assigned id.
type Welcome struct {
	Type string               `json:"type"`
	ID   domain.ParticipantID `json:"id"`
}

type Join struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

type Leave struct {
	Type string `json:"type"`
}

// RoomState is the reply to a join: the members already present.
type RoomState struct {
	Type    string                 `json:"type"`
	Room    domain.RoomID          `json:"room"`
	Members []domain.ParticipantID `json:"members"`
}

type UserJoined struct {
	Type string               `json:"type"`
	ID   domain.ParticipantID `json:"id"`
}

type UserLeft struct {
	Type string               `json:"type"`
	ID   domain.ParticipantID `json:"id"`
}

// Relayed is an addressed signaling payload (offer, answer or candidate).
// Payload stays opaque to the relay; From is stamped by the relay so the
// receiver never has to trust the sender's claim.
type Relayed struct {
	Type    string               `json:"type"`
	To      domain.ParticipantID `json:"to"`
	From    domain.ParticipantID `json:"from,omitempty"`
	Payload json.RawMessage      `json:"payload"`
}

// Speech is the room-scoped broadcast carrying one recognized utterance.
type Speech struct {
	Type       string               `json:"type"`
	Text       string               `json:"text"`
	SourceLang domain.Lang          `json:"sourceLang"`
	From       domain.ParticipantID `json:"from,omitempty"`
	Timestamp  int64                `json:"timestamp"`
}

type Error struct {
	Type   string `json:"type"`
	Reason string `json:"error"`
}

func Marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// All wire shapes are plain structs; this cannot fail at runtime.
		panic(err)
	}
	return b
}

// SniffType returns the envelope type of a raw message.
func SniffType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", ErrBadEnvelope
	}
	if env.Type == "" {
		return "", ErrBadEnvelope
	}
	return env.Type, nil
}
