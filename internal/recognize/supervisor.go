// Package recognize drives the external speech recognition capability and
// owns its restart policy.
package recognize

import (
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

// DeviceClass selects the restart policy. Mobile engines are less stable, so
// any error there disables restarts until the user re-activates.
type DeviceClass string

const (
	ClassDesktop DeviceClass = "desktop"
	ClassMobile  DeviceClass = "mobile"
)

const (
	minResultLen = 2
	// resultGap discards rapid-fire results from the underlying engine.
	resultGap = 1000 * time.Millisecond
	// processingHold keeps the processing flag up after an accepted result.
	processingHold = 2 * time.Second

	desktopEndRestart   = 3 * time.Second
	desktopErrorRestart = 5 * time.Second
	mobileRestartMin    = 6 * time.Second
	mobileRestartSpread = 2 * time.Second
)

// Supervisor wraps a Recognizer with the device-class restart policy and the
// result acceptance rules. All handlers run on the client event loop.
type Supervisor struct {
	rec   core.Recognizer
	class DeviceClass
	sched core.Scheduler
	log   zerolog.Logger

	lang    domain.Lang
	enabled bool
	// allowRestart gates every restart timer. On mobile it flips false on any
	// engine error and only an explicit Enable brings it back.
	allowRestart bool

	processing   bool
	lastAccepted time.Time

	restartTimer    core.TimerHandle
	processingTimer core.TimerHandle

	now      func() time.Time
	dispatch func(func())

	// OnUtterance receives each accepted local result.
	OnUtterance func(text string, lang domain.Lang, at time.Time)
}

func NewSupervisor(rec core.Recognizer, class DeviceClass, sched core.Scheduler, dispatch func(func())) *Supervisor {
	s := &Supervisor{
		rec:      rec,
		class:    class,
		sched:    sched,
		now:      time.Now,
		dispatch: dispatch,
		log:      log.With().Str("module", "recognize").Str("class", string(class)).Logger(),
	}
	rec.OnResult(func(text string, final bool) {
		s.dispatch(func() { s.handleResult(text, final) })
	})
	rec.OnEnd(func() {
		s.dispatch(s.handleEnd)
	})
	rec.OnError(func(code core.RecognitionError) {
		s.dispatch(func() { s.handleError(code) })
	})
	return s
}

func (s *Supervisor) continuous() bool { return s.class == ClassDesktop }

// Enable starts recognition in the given language and re-arms restarts.
// This is also the explicit user re-activation path after a mobile error.
func (s *Supervisor) Enable(lang domain.Lang) {
	s.lang = lang.Primary()
	s.enabled = true
	s.allowRestart = true
	s.startEngine()
}

// Disable stops recognition and cancels every pending restart.
func (s *Supervisor) Disable() {
	s.enabled = false
	s.allowRestart = false
	s.stopTimers()
	s.rec.Stop()
	s.log.Info().Msg("recognition disabled")
}

// Enabled reports whether results are currently wanted.
func (s *Supervisor) Enabled() bool { return s.enabled }

// RestartAllowed reports whether the policy still auto-restarts the engine.
func (s *Supervisor) RestartAllowed() bool { return s.allowRestart }

func (s *Supervisor) startEngine() {
	if err := s.rec.Start(s.lang, s.continuous()); err != nil {
		s.log.Error().Err(err).Msg("engine start failed")
		return
	}
	s.log.Info().Str("lang", string(s.lang)).Bool("continuous", s.continuous()).Msg("engine started")
}

func (s *Supervisor) handleResult(text string, final bool) {
	if !s.enabled || !final {
		return
	}
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minResultLen {
		return
	}
	now := s.now()
	if s.processing || now.Sub(s.lastAccepted) < resultGap {
		s.log.Debug().Msg("result discarded: too frequent or already processing")
		return
	}
	s.processing = true
	s.lastAccepted = now
	if s.processingTimer != nil {
		s.processingTimer.Stop()
	}
	s.processingTimer = s.sched.After(processingHold, func() { s.processing = false })

	s.log.Info().Str("text", trimmed).Msg("result accepted")
	if s.OnUtterance != nil {
		s.OnUtterance(trimmed, s.lang, now)
	}
}

// handleEnd restarts the engine after end-of-stream, with the class delay.
func (s *Supervisor) handleEnd() {
	if !s.allowRestart || !s.enabled {
		return
	}
	delay := desktopEndRestart
	if s.class == ClassMobile {
		delay = mobileRestartMin + time.Duration(rand.Int63n(int64(mobileRestartSpread)))
	}
	s.scheduleRestart(delay)
}

func (s *Supervisor) handleError(code core.RecognitionError) {
	s.processing = false
	s.log.Warn().Str("code", string(code)).Msg("engine error")

	if s.class == ClassMobile {
		// Mobile engines retry-storm; require explicit re-activation.
		s.allowRestart = false
		s.stopTimers()
		s.log.Info().Msg("auto-restart disabled until re-enabled")
		return
	}

	switch code {
	case core.RecogNoSpeech, core.RecogAudioCapture, core.RecogNotAllowed:
		if s.allowRestart && s.enabled {
			s.scheduleRestart(desktopErrorRestart)
		}
	default:
	}
}

func (s *Supervisor) scheduleRestart(delay time.Duration) {
	if s.restartTimer != nil {
		s.restartTimer.Stop()
	}
	s.log.Info().Dur("delay", delay).Msg("restart scheduled")
	s.restartTimer = s.sched.After(delay, func() {
		if s.allowRestart && s.enabled {
			s.startEngine()
		}
	})
}

func (s *Supervisor) stopTimers() {
	if s.restartTimer != nil {
		s.restartTimer.Stop()
		s.restartTimer = nil
	}
	if s.processingTimer != nil {
		s.processingTimer.Stop()
		s.processingTimer = nil
	}
}
