package recognize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

type fakeRecognizer struct {
	started  int
	stopped  int
	lastLang domain.Lang
	lastCont bool
	startErr error

	onResult func(string, bool)
	onEnd    func()
	onError  func(core.RecognitionError)
}

func (f *fakeRecognizer) Start(lang domain.Lang, continuous bool) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.lastLang = lang
	f.lastCont = continuous
	return nil
}

func (f *fakeRecognizer) Stop() { f.stopped++ }

func (f *fakeRecognizer) OnResult(fn func(string, bool))         { f.onResult = fn }
func (f *fakeRecognizer) OnEnd(fn func())                        { f.onEnd = fn }
func (f *fakeRecognizer) OnError(fn func(core.RecognitionError)) { f.onError = fn }

// fakeSched captures timers so tests fire them by hand.
type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() { t.stopped = true }

type fakeSched struct {
	afters []*fakeTimer
	everys []*fakeTimer
}

func (s *fakeSched) After(d time.Duration, fn func()) core.TimerHandle {
	t := &fakeTimer{d: d, fn: fn}
	s.afters = append(s.afters, t)
	return t
}

func (s *fakeSched) Every(d time.Duration, fn func()) core.TimerHandle {
	t := &fakeTimer{d: d, fn: fn}
	s.everys = append(s.everys, t)
	return t
}

// lastPending returns the most recent timer that was not stopped.
func (s *fakeSched) lastPending() *fakeTimer {
	for i := len(s.afters) - 1; i >= 0; i-- {
		if !s.afters[i].stopped {
			return s.afters[i]
		}
	}
	return nil
}

func newTestSupervisor(class DeviceClass) (*Supervisor, *fakeRecognizer, *fakeSched, *time.Time) {
	rec := &fakeRecognizer{}
	sched := &fakeSched{}
	s := NewSupervisor(rec, class, sched, func(fn func()) { fn() })
	now := time.Now()
	s.now = func() time.Time { return now }
	return s, rec, sched, &now
}

func TestEnableStartsEngine(t *testing.T) {
	s, rec, _, _ := newTestSupervisor(ClassDesktop)
	s.Enable("en-US")

	require.Equal(t, 1, rec.started)
	require.Equal(t, domain.Lang("en"), rec.lastLang)
	require.True(t, rec.lastCont)
	require.True(t, s.Enabled())
}

func TestMobileNotContinuous(t *testing.T) {
	s, rec, _, _ := newTestSupervisor(ClassMobile)
	s.Enable("en")
	require.False(t, rec.lastCont)
}

func TestResultAcceptance(t *testing.T) {
	s, rec, _, now := newTestSupervisor(ClassDesktop)
	s.Enable("en")

	var accepted []string
	s.OnUtterance = func(text string, lang domain.Lang, at time.Time) {
		accepted = append(accepted, text)
	}

	// Interim results never surface.
	rec.onResult("partial", false)
	require.Empty(t, accepted)

	// Too short.
	rec.onResult("a", true)
	require.Empty(t, accepted)

	rec.onResult("hello world", true)
	require.Equal(t, []string{"hello world"}, accepted)

	// Still inside the gap and the processing hold: discarded.
	*now = now.Add(500 * time.Millisecond)
	rec.onResult("second", true)
	require.Len(t, accepted, 1)
}

func TestResultLengthCountsCharacters(t *testing.T) {
	s, rec, _, _ := newTestSupervisor(ClassDesktop)
	s.Enable("zh")

	var accepted []string
	s.OnUtterance = func(text string, lang domain.Lang, at time.Time) {
		accepted = append(accepted, text)
	}

	// One character, three bytes: still too short.
	rec.onResult("好", true)
	require.Empty(t, accepted)

	rec.onResult("你好", true)
	require.Equal(t, []string{"你好"}, accepted)
}

func TestResultAfterGapAndHold(t *testing.T) {
	s, rec, sched, now := newTestSupervisor(ClassDesktop)
	s.Enable("en")

	var accepted []string
	s.OnUtterance = func(text string, lang domain.Lang, at time.Time) {
		accepted = append(accepted, text)
	}

	rec.onResult("first result", true)

	// Release the processing hold and move past the gap.
	hold := sched.lastPending()
	require.NotNil(t, hold)
	require.Equal(t, processingHold, hold.d)
	hold.fn()
	*now = now.Add(1100 * time.Millisecond)

	rec.onResult("second result", true)
	require.Equal(t, []string{"first result", "second result"}, accepted)
}

func TestDesktopRestartsAfterEnd(t *testing.T) {
	s, rec, sched, _ := newTestSupervisor(ClassDesktop)
	s.Enable("en")

	rec.onEnd()
	timer := sched.lastPending()
	require.NotNil(t, timer)
	require.Equal(t, desktopEndRestart, timer.d)

	timer.fn()
	require.Equal(t, 2, rec.started)
}

func TestDesktopRestartsAfterKnownError(t *testing.T) {
	s, rec, sched, _ := newTestSupervisor(ClassDesktop)
	s.Enable("en")

	rec.onError(core.RecogNoSpeech)
	timer := sched.lastPending()
	require.NotNil(t, timer)
	require.Equal(t, desktopErrorRestart, timer.d)

	timer.fn()
	require.Equal(t, 2, rec.started)
	require.True(t, s.RestartAllowed())
}

func TestDesktopIgnoresAbortedError(t *testing.T) {
	s, rec, sched, _ := newTestSupervisor(ClassDesktop)
	s.Enable("en")

	before := len(sched.afters)
	rec.onError(core.RecogAborted)
	require.Len(t, sched.afters, before)
	require.Equal(t, 1, rec.started)
}

func TestMobileRestartDelayRange(t *testing.T) {
	s, rec, sched, _ := newTestSupervisor(ClassMobile)
	s.Enable("en")

	rec.onEnd()
	timer := sched.lastPending()
	require.NotNil(t, timer)
	require.GreaterOrEqual(t, timer.d, mobileRestartMin)
	require.Less(t, timer.d, mobileRestartMin+mobileRestartSpread)
}

func TestMobileErrorDisablesRestart(t *testing.T) {
	s, rec, sched, _ := newTestSupervisor(ClassMobile)
	s.Enable("en")

	rec.onError(core.RecogNoSpeech)
	require.False(t, s.RestartAllowed())

	// End-of-stream no longer schedules anything.
	rec.onEnd()
	require.Nil(t, sched.lastPending())

	// Explicit re-activation brings the engine back.
	s.Enable("en")
	require.True(t, s.RestartAllowed())
	require.Equal(t, 2, rec.started)
}

func TestDisableCancelsPendingRestart(t *testing.T) {
	s, rec, sched, _ := newTestSupervisor(ClassDesktop)
	s.Enable("en")

	rec.onEnd()
	timer := sched.lastPending()
	require.NotNil(t, timer)

	s.Disable()
	require.True(t, timer.stopped)
	require.Equal(t, 1, rec.stopped)

	// A stale timer firing anyway must not restart.
	timer.fn()
	require.Equal(t, 1, rec.started)
}

func TestDisabledResultsDropped(t *testing.T) {
	s, rec, _, _ := newTestSupervisor(ClassDesktop)
	s.Enable("en")
	s.Disable()

	var accepted int
	s.OnUtterance = func(string, domain.Lang, time.Time) { accepted++ }
	rec.onResult("should be dropped", true)
	require.Zero(t, accepted)
}
