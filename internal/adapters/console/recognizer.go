// Package console provides terminal-backed capability adapters for headless
// clients: typed lines stand in for recognized speech and synthesized output
// is printed.
package console

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

// Recognizer turns lines read from in into final recognition results. EOF
// reports end-of-stream, which drives the supervisor's restart policy the
// same way a real engine would.
type Recognizer struct {
	in io.Reader

	mu      sync.Mutex
	running bool

	onResult func(text string, final bool)
	onEnd    func()
	onError  func(code core.RecognitionError)
}

func NewRecognizer(in io.Reader) *Recognizer {
	return &Recognizer{in: in}
}

func (r *Recognizer) OnResult(fn func(string, bool))         { r.onResult = fn }
func (r *Recognizer) OnEnd(fn func())                        { r.onEnd = fn }
func (r *Recognizer) OnError(fn func(core.RecognitionError)) { r.onError = fn }

func (r *Recognizer) Start(lang domain.Lang, continuous bool) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	log.Info().Str("module", "console").Str("lang", string(lang)).Msg("reading utterances from input")
	go r.readLines()
	return nil
}

func (r *Recognizer) readLines() {
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		r.mu.Lock()
		running := r.running
		r.mu.Unlock()
		if !running {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if r.onResult != nil {
			r.onResult(line, true)
		}
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	if err := scanner.Err(); err != nil {
		if r.onError != nil {
			r.onError(core.RecogAborted)
		}
		return
	}
	if r.onEnd != nil {
		r.onEnd()
	}
}

func (r *Recognizer) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

var _ core.Recognizer = (*Recognizer)(nil)
