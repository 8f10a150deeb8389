package signal

import (
	"encoding/json"
	"fmt"

	"github.com/linzo/meet/internal/domain"
)

// Channel control message kinds. The channel carries exactly these three;
// anything else is a decode error at the channel boundary.
const (
	ChannelTest   = "test"
	ChannelPref   = "pref"
	ChannelSpeech = "speech"
)

// ChannelMessage is the tagged union of control messages carried over a
// session's reliable channel. Exactly one of the payload pointers is set.
type ChannelMessage struct {
	Test   *TestMessage
	Pref   *PrefMessage
	Speech *SpeechMessage
}

// TestMessage is the proof-of-life exchange after a channel opens. It is a
// liveness signal only, never a protocol requirement.
type TestMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PrefMessage announces the sender's preferred language to the peer.
type PrefMessage struct {
	Type          string      `json:"type"`
	PreferredLang domain.Lang `json:"preferredLang"`
}

// SpeechMessage is the channel fallback path for one utterance. The relay
// broadcast carries the same utterance; the receiver dedups across paths.
type SpeechMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	SourceLang domain.Lang `json:"sourceLang"`
	Timestamp  int64       `json:"timestamp"`
}

func NewTest(message string) ChannelMessage {
	return ChannelMessage{Test: &TestMessage{Type: ChannelTest, Message: message}}
}

func NewPref(lang domain.Lang) ChannelMessage {
	return ChannelMessage{Pref: &PrefMessage{Type: ChannelPref, PreferredLang: lang}}
}

func NewSpeech(text string, lang domain.Lang, ts int64) ChannelMessage {
	return ChannelMessage{Speech: &SpeechMessage{Type: ChannelSpeech, Text: text, SourceLang: lang, Timestamp: ts}}
}

func (m ChannelMessage) Encode() []byte {
	switch {
	case m.Test != nil:
		return Marshal(m.Test)
	case m.Pref != nil:
		return Marshal(m.Pref)
	case m.Speech != nil:
		return Marshal(m.Speech)
	}
	panic("empty channel message")
}

// DecodeChannelMessage parses a raw channel frame into the tagged union.
func DecodeChannelMessage(data []byte) (ChannelMessage, error) {
	kind, err := SniffType(data)
	if err != nil {
		return ChannelMessage{}, err
	}
	switch kind {
	case ChannelTest:
		var p TestMessage
		if err := json.Unmarshal(data, &p); err != nil {
			return ChannelMessage{}, fmt.Errorf("decode test message: %w", err)
		}
		return ChannelMessage{Test: &p}, nil
	case ChannelPref:
		var p PrefMessage
		if err := json.Unmarshal(data, &p); err != nil {
			return ChannelMessage{}, fmt.Errorf("decode pref message: %w", err)
		}
		return ChannelMessage{Pref: &p}, nil
	case ChannelSpeech:
		var p SpeechMessage
		if err := json.Unmarshal(data, &p); err != nil {
			return ChannelMessage{}, fmt.Errorf("decode speech message: %w", err)
		}
		return ChannelMessage{Speech: &p}, nil
	default:
		return ChannelMessage{}, fmt.Errorf("%w: unknown channel kind %q", ErrBadEnvelope, kind)
	}
}
