package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linzo/meet/internal/domain"
)

type fakeTranslator struct {
	out map[string]string
	err error
}

func (f *fakeTranslator) Translate(ctx context.Context, text string, source, target domain.Lang) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out[text], nil
}

// loopStub serializes dispatched callbacks so the test can drain them like
// the real event loop would.
type loopStub struct {
	ch chan func()
}

func newLoopStub() *loopStub { return &loopStub{ch: make(chan func(), 16)} }

func (l *loopStub) dispatch(fn func()) { l.ch <- fn }

func (l *loopStub) drainOne(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("no dispatched callback within deadline")
	}
}

type coordinatorResult struct {
	translated map[domain.CaptionID]string
	entries    []domain.SummaryEntry
}

func newTestCoordinator(tr *fakeTranslator, localLang domain.Lang) (*Coordinator, *loopStub, *coordinatorResult) {
	loop := newLoopStub()
	local := domain.NewParticipant("me", localLang)
	c := NewCoordinator(context.Background(), tr, nil, local, loop.dispatch)

	res := &coordinatorResult{translated: map[domain.CaptionID]string{}}
	c.OnTranslated = func(id domain.CaptionID, text string) { res.translated[id] = text }
	c.OnSummary = func(e domain.SummaryEntry) { res.entries = append(res.entries, e) }
	return c, loop, res
}

func TestSameLanguageSkipsTranslation(t *testing.T) {
	c, _, res := newTestCoordinator(&fakeTranslator{}, "en")

	c.HandleRemote(domain.Utterance{ID: "c1", Text: "hello", Lang: "en-GB"})

	// No translation round trip: the summary line lands synchronously.
	require.Empty(t, res.translated)
	require.Len(t, res.entries, 1)
	require.Equal(t, "hello", res.entries[0].Translated)
}

func TestTranslationSuccess(t *testing.T) {
	tr := &fakeTranslator{out: map[string]string{"hola": "hello"}}
	c, loop, res := newTestCoordinator(tr, "en")

	c.HandleRemote(domain.Utterance{ID: "c1", Text: "hola", Lang: "es"})
	loop.drainOne(t)

	require.Equal(t, "hello", res.translated["c1"])
	require.Len(t, res.entries, 1)
	require.Equal(t, "hola", res.entries[0].Original)
	require.Equal(t, "hello", res.entries[0].Translated)
	require.Equal(t, domain.SpeakerPeer, res.entries[0].Speaker)
}

func TestTranslationFailureFallsBackToOriginal(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("service down")}
	c, loop, res := newTestCoordinator(tr, "en")

	c.HandleRemote(domain.Utterance{ID: "c1", Text: "hola", Lang: "es"})
	loop.drainOne(t)

	require.Empty(t, res.translated)
	require.Len(t, res.entries, 1)
	require.Equal(t, "hola", res.entries[0].Translated)
}

func TestEmptyTranslationFallsBackToOriginal(t *testing.T) {
	tr := &fakeTranslator{out: map[string]string{"hola": "  "}}
	c, loop, res := newTestCoordinator(tr, "en")

	c.HandleRemote(domain.Utterance{ID: "c1", Text: "hola", Lang: "es"})
	loop.drainOne(t)

	require.Empty(t, res.translated)
	require.Equal(t, "hola", res.entries[0].Translated)
}

func TestLocalizeLabelsEnglishKeepsDefaults(t *testing.T) {
	c, _, _ := newTestCoordinator(&fakeTranslator{}, "en")

	var got Labels
	c.LocalizeLabels(func(l Labels) { got = l })
	require.Equal(t, DefaultLabels(), got)
}

func TestLocalizeLabelsTranslates(t *testing.T) {
	tr := &fakeTranslator{out: map[string]string{"You": "Tu", "Other participant": "Otro participante"}}
	c, loop, _ := newTestCoordinator(tr, "es")

	var got Labels
	c.LocalizeLabels(func(l Labels) { got = l })
	loop.drainOne(t)

	require.Equal(t, "Tu", got.You)
	require.Equal(t, "Otro participante", got.Peer)
}

func TestLocalizeLabelsFailureKeepsDefaults(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("service down")}
	c, loop, _ := newTestCoordinator(tr, "es")

	var got Labels
	c.LocalizeLabels(func(l Labels) { got = l })
	loop.drainOne(t)

	require.Equal(t, DefaultLabels(), got)
}
