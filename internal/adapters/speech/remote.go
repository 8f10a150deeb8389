// Package speech provides the speech output backends: a remote TTS service
// for natural voices and a local synthesizer used as fallback.
package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

const fetchTimeout = 6 * time.Second

// Player turns synthesized audio into sound. It blocks until playback
// finishes or ctx is cancelled.
type Player func(ctx context.Context, audio []byte) error

// Remote fetches synthesized audio from the TTS endpoint and plays it.
// One playback runs at a time; Speak cancels the previous one. The mutex
// covers the callbacks and the cancel handle: playback goroutines read them
// while the owner re-registers between utterances.
type Remote struct {
	http *resty.Client
	play Player

	mu      sync.Mutex
	onDone  func()
	onError func(error)
	cancel  context.CancelFunc
}

func NewRemote(baseURL string, play Player) *Remote {
	return &Remote{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(fetchTimeout),
		play: play,
	}
}

func (r *Remote) OnDone(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDone = fn
}

func (r *Remote) OnError(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// Speak fetches the audio for text and plays it asynchronously.
func (r *Remote) Speak(text string, lang domain.Lang) error {
	r.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		if err := r.run(ctx, text, lang); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Debug().Err(err).Str("module", "speech.remote").Msg("playback failed")
			r.mu.Lock()
			onError := r.onError
			r.mu.Unlock()
			if onError != nil {
				onError(err)
			}
			return
		}
		r.mu.Lock()
		onDone := r.onDone
		r.mu.Unlock()
		if onDone != nil {
			onDone()
		}
	}()
	return nil
}

func (r *Remote) run(ctx context.Context, text string, lang domain.Lang) error {
	resp, err := r.http.R().
		SetContext(ctx).
		SetQueryParam("text", text).
		SetQueryParam("lang", string(lang)).
		Get("/tts")
	if err != nil {
		return fmt.Errorf("tts fetch: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("tts fetch: status %d", resp.StatusCode())
	}
	audio := resp.Body()
	if len(audio) == 0 {
		return fmt.Errorf("tts fetch: empty audio")
	}
	if err := r.play(ctx, audio); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

// Stop cancels the in-flight fetch or playback, if any.
func (r *Remote) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

var _ core.SpeechOutput = (*Remote)(nil)
