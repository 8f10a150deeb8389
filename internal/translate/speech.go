package translate

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

// safetyTimeout forcibly clears the speaking flag when the playback backend
// never reports completion or error.
const safetyTimeout = 10 * time.Second

// SpeechCoordinator owns the process-wide speaking flag. Starting a new
// utterance always stops the previous one first: last speaks wins, nothing
// is queued. Playback failure falls back to the local synthesis capability.
type SpeechCoordinator struct {
	primary  core.SpeechOutput
	fallback core.SpeechOutput
	sched    core.Scheduler
	dispatch func(func())

	speaking    bool
	safetyTimer core.TimerHandle
}

func NewSpeechCoordinator(primary, fallback core.SpeechOutput, sched core.Scheduler, dispatch func(func())) *SpeechCoordinator {
	s := &SpeechCoordinator{
		primary:  primary,
		fallback: fallback,
		sched:    sched,
		dispatch: dispatch,
	}
	primary.OnDone(func() { s.dispatch(s.playbackDone) })
	if fallback != nil {
		fallback.OnDone(func() { s.dispatch(s.playbackDone) })
		fallback.OnError(func(err error) {
			s.dispatch(func() {
				log.Warn().Err(err).Str("module", "translate.speech").Msg("fallback synthesis failed")
				s.playbackDone()
			})
		})
	}
	return s
}

// Speak plays text in lang, stopping any in-flight playback first.
func (s *SpeechCoordinator) Speak(text string, lang domain.Lang) {
	s.stopCurrent()
	s.speaking = true
	s.safetyTimer = s.sched.After(safetyTimeout, func() {
		log.Warn().Str("module", "translate.speech").Msg("safety timeout: clearing speaking flag")
		s.speaking = false
	})

	// The primary reports async failures through OnError; wire the fallback
	// for this utterance before starting.
	s.primary.OnError(func(err error) {
		s.dispatch(func() {
			log.Warn().Err(err).Str("module", "translate.speech").Msg("playback failed, falling back to local synthesis")
			s.speakFallback(text, lang)
		})
	})

	if err := s.primary.Speak(text, lang); err != nil {
		log.Warn().Err(err).Str("module", "translate.speech").Msg("playback start failed, falling back to local synthesis")
		s.speakFallback(text, lang)
	}
}

func (s *SpeechCoordinator) speakFallback(text string, lang domain.Lang) {
	if s.fallback == nil {
		s.playbackDone()
		return
	}
	if err := s.fallback.Speak(text, lang); err != nil {
		log.Warn().Err(err).Str("module", "translate.speech").Msg("fallback start failed")
		s.playbackDone()
	}
}

func (s *SpeechCoordinator) playbackDone() {
	s.speaking = false
	s.cancelSafety()
}

func (s *SpeechCoordinator) stopCurrent() {
	if s.speaking {
		s.primary.Stop()
		if s.fallback != nil {
			s.fallback.Stop()
		}
	}
	s.speaking = false
	s.cancelSafety()
}

func (s *SpeechCoordinator) cancelSafety() {
	if s.safetyTimer != nil {
		s.safetyTimer.Stop()
		s.safetyTimer = nil
	}
}

// Speaking reports whether playback is in flight.
func (s *SpeechCoordinator) Speaking() bool { return s.speaking }

// Shutdown stops playback and the safety timer on teardown.
func (s *SpeechCoordinator) Shutdown() { s.stopCurrent() }
