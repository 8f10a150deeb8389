package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

// Synthesizer is the platform speech synthesis hook. It blocks until the
// utterance finishes or ctx is cancelled.
type Synthesizer func(ctx context.Context, text string, lang domain.Lang) error

// Local speaks through the platform synthesizer. It is the fallback voice
// when the remote TTS service is unreachable.
type Local struct {
	synth Synthesizer

	mu      sync.Mutex
	onDone  func()
	onError func(error)
	cancel  context.CancelFunc
}

func NewLocal(synth Synthesizer) *Local {
	return &Local{synth: synth}
}

func (l *Local) OnDone(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onDone = fn
}

func (l *Local) OnError(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

func (l *Local) Speak(text string, lang domain.Lang) error {
	if l.synth == nil {
		return errors.New("no synthesizer available")
	}
	l.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	go func() {
		if err := l.synth(ctx, text, lang); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.mu.Lock()
			onError := l.onError
			l.mu.Unlock()
			if onError != nil {
				onError(err)
			}
			return
		}
		l.mu.Lock()
		onDone := l.onDone
		l.mu.Unlock()
		if onDone != nil {
			onDone()
		}
	}()
	return nil
}

func (l *Local) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

var _ core.SpeechOutput = (*Local)(nil)
