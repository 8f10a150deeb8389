package domain

import "time"

// SummaryEntry is one immutable line of the rolling meeting log.
// For local utterances and same-language peers Original == Translated.
type SummaryEntry struct {
	ID         CaptionID   `json:"id"`
	Original   string      `json:"original"`
	Translated string      `json:"translated"`
	Speaker    SpeakerRole `json:"speaker"`
	Timestamp  time.Time   `json:"timestamp"`
}
