package translate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

type fakeSpeaker struct {
	spoken   []string
	stopped  int
	speakErr error

	onDone  func()
	onError func(error)
}

func (f *fakeSpeaker) Speak(text string, lang domain.Lang) error {
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSpeaker) Stop()                  { f.stopped++ }
func (f *fakeSpeaker) OnDone(fn func())       { f.onDone = fn }
func (f *fakeSpeaker) OnError(fn func(error)) { f.onError = fn }

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() { t.stopped = true }

type fakeSched struct {
	afters []*fakeTimer
}

func (s *fakeSched) After(d time.Duration, fn func()) core.TimerHandle {
	t := &fakeTimer{d: d, fn: fn}
	s.afters = append(s.afters, t)
	return t
}

func (s *fakeSched) Every(d time.Duration, fn func()) core.TimerHandle {
	return s.After(d, fn)
}

func newTestSpeech() (*SpeechCoordinator, *fakeSpeaker, *fakeSpeaker, *fakeSched) {
	primary := &fakeSpeaker{}
	fallback := &fakeSpeaker{}
	sched := &fakeSched{}
	s := NewSpeechCoordinator(primary, fallback, sched, func(fn func()) { fn() })
	return s, primary, fallback, sched
}

func TestSpeakSetsFlagUntilDone(t *testing.T) {
	s, primary, _, _ := newTestSpeech()

	s.Speak("hello", "en")
	require.True(t, s.Speaking())
	require.Equal(t, []string{"hello"}, primary.spoken)

	primary.onDone()
	require.False(t, s.Speaking())
}

func TestLastSpeaksWins(t *testing.T) {
	s, primary, fallback, _ := newTestSpeech()

	s.Speak("first", "en")
	s.Speak("second", "en")

	// The second Speak stops the first playback; nothing queues.
	require.Equal(t, []string{"first", "second"}, primary.spoken)
	require.Equal(t, 1, primary.stopped)
	require.Equal(t, 1, fallback.stopped)
	require.True(t, s.Speaking())
}

func TestStartFailureFallsBack(t *testing.T) {
	s, primary, fallback, _ := newTestSpeech()
	primary.speakErr = errors.New("no audio sink")

	s.Speak("hello", "en")
	require.Equal(t, []string{"hello"}, fallback.spoken)
	require.True(t, s.Speaking())

	fallback.onDone()
	require.False(t, s.Speaking())
}

func TestAsyncFailureFallsBack(t *testing.T) {
	s, primary, fallback, _ := newTestSpeech()

	s.Speak("hello", "en")
	primary.onError(errors.New("stream broke"))

	require.Equal(t, []string{"hello"}, fallback.spoken)
}

func TestFallbackFailureClearsFlag(t *testing.T) {
	s, primary, fallback, _ := newTestSpeech()
	primary.speakErr = errors.New("down")
	fallback.speakErr = errors.New("also down")

	s.Speak("hello", "en")
	require.False(t, s.Speaking())
}

func TestSafetyTimerClearsStuckFlag(t *testing.T) {
	s, _, _, sched := newTestSpeech()

	s.Speak("hello", "en")
	require.True(t, s.Speaking())

	require.NotEmpty(t, sched.afters)
	timer := sched.afters[len(sched.afters)-1]
	require.Equal(t, safetyTimeout, timer.d)

	timer.fn()
	require.False(t, s.Speaking())
}

func TestDoneCancelsSafetyTimer(t *testing.T) {
	s, primary, _, sched := newTestSpeech()

	s.Speak("hello", "en")
	timer := sched.afters[len(sched.afters)-1]

	primary.onDone()
	require.True(t, timer.stopped)
}
