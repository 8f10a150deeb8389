package domain

import "time"

type CaptionID string

// SpeakerRole says whether an entry originated locally or from a peer.
type SpeakerRole string

const (
	SpeakerSelf SpeakerRole = "you"
	SpeakerPeer SpeakerRole = "peer"
)

// CaptionEntry is one recognized utterance as shown in the caption strip.
type CaptionEntry struct {
	ID        CaptionID   `json:"id"`
	Text      string      `json:"text"`
	Speaker   SpeakerRole `json:"speaker"`
	Timestamp time.Time   `json:"timestamp"`
}

// TranslatedCaptionEntry carries the translated text for a CaptionEntry.
// It shares the caption id so the two can be joined even though they arrive
// at different times.
type TranslatedCaptionEntry struct {
	ID        CaptionID `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Origin tags which delivery path produced an utterance: the local
// recognizer, the relay broadcast, or a session channel. The same remote
// utterance can arrive over both network paths; the dedup window keys on
// origin to suppress the second copy.
type Origin string

const (
	OriginLocal   Origin = "local"
	OriginRelay   Origin = "relay"
	OriginChannel Origin = "channel"
)

// Utterance is one recognized span of speech with its source language.
type Utterance struct {
	ID        CaptionID
	Text      string
	Lang      Lang
	Origin    Origin
	From      ParticipantID
	Timestamp time.Time
}
