package core

import (
	"context"

	"github.com/linzo/meet/internal/domain"
)

// RecognitionError classifies engine failures for the restart policy.
type RecognitionError string

const (
	RecogNoSpeech     RecognitionError = "no-speech"
	RecogAudioCapture RecognitionError = "audio-capture"
	RecogNotAllowed   RecognitionError = "not-allowed"
	RecogAborted      RecognitionError = "aborted"
)

// Recognizer is the external speech recognition capability. Results stream
// through the callbacks; Start/Stop bracket one engine run.
type Recognizer interface {
	Start(lang domain.Lang, continuous bool) error
	Stop()

	OnResult(func(text string, final bool))
	OnEnd(func())
	OnError(func(code RecognitionError))
}

// Translator converts text between two primary language tags.
// An error or an empty result both mean "fall back to the original text".
type Translator interface {
	Translate(ctx context.Context, text string, source, target domain.Lang) (string, error)
}

// Language describes one entry of the supported-languages capability.
type Language struct {
	Code       domain.Lang `json:"code"`
	Name       string      `json:"name"`
	NativeName string      `json:"nativeName"`
}

// LanguageLister fetches the languages the translation capability supports.
type LanguageLister interface {
	SupportedLanguages(ctx context.Context) ([]Language, error)
}

// ContextLine is one line of conversation handed to the suggestion capability.
type ContextLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// SuggestionClient is the external smart-reply capability.
type SuggestionClient interface {
	SmartReplies(ctx context.Context, lines []ContextLine, summary string, target domain.Lang) ([]string, error)
}

// SpeechOutput plays synthesized speech. Exactly one playback runs at a time;
// Speak reports start failure synchronously, completion through the callbacks.
type SpeechOutput interface {
	Speak(text string, lang domain.Lang) error
	Stop()

	OnDone(func())
	OnError(func(err error))
}
