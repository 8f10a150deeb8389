package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/signal"
)

// fakeMedia is a scriptable MediaSession that records calls and exposes its
// callbacks for the test to fire.
type fakeMedia struct {
	offerErr  error
	answerErr error

	sent      [][]byte
	sendErr   error
	closed    int
	enabled   map[string]bool
	candidate []json.RawMessage

	onCandidate func(json.RawMessage)
	onOpen      func()
	onMessage   func([]byte)
	onClosed    func()
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{enabled: map[string]bool{"audio": true, "video": true}}
}

func (m *fakeMedia) CreateOffer() (json.RawMessage, error) {
	if m.offerErr != nil {
		return nil, m.offerErr
	}
	return json.RawMessage(`{"type":"offer"}`), nil
}

func (m *fakeMedia) HandleOffer(offer json.RawMessage) (json.RawMessage, error) {
	if m.answerErr != nil {
		return nil, m.answerErr
	}
	return json.RawMessage(`{"type":"answer"}`), nil
}

func (m *fakeMedia) HandleAnswer(answer json.RawMessage) error { return m.answerErr }

func (m *fakeMedia) AddCandidate(c json.RawMessage) error {
	m.candidate = append(m.candidate, c)
	return nil
}

func (m *fakeMedia) SendChannel(data []byte) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, data)
	return nil
}

func (m *fakeMedia) SetTrackEnabled(kind string, enabled bool) { m.enabled[kind] = enabled }
func (m *fakeMedia) Close()                                    { m.closed++ }

func (m *fakeMedia) OnCandidate(fn func(json.RawMessage)) { m.onCandidate = fn }
func (m *fakeMedia) OnChannelOpen(fn func())              { m.onOpen = fn }
func (m *fakeMedia) OnChannelMessage(fn func([]byte))     { m.onMessage = fn }
func (m *fakeMedia) OnClosed(fn func())                   { m.onClosed = fn }

func syncDispatch(fn func()) { fn() }

type sentSignal struct {
	kind string
	to   domain.ParticipantID
}

func newTestPeer(t *testing.T, local, remote domain.ParticipantID) (*Peer, *fakeMedia, *[]sentSignal) {
	t.Helper()
	m := newFakeMedia()
	p := New(local, remote, "en", m, syncDispatch)
	var sent []sentSignal
	p.SendSignal = func(kind string, to domain.ParticipantID, payload json.RawMessage) {
		sent = append(sent, sentSignal{kind: kind, to: to})
	}
	return p, m, &sent
}

func TestInitiatorSendsOffer(t *testing.T) {
	p, _, sent := newTestPeer(t, "aaa", "bbb")
	require.Equal(t, domain.RoleInitiator, p.Role)

	p.Start()
	require.Equal(t, StateNegotiating, p.State())
	require.Len(t, *sent, 1)
	require.Equal(t, signal.TypeOffer, (*sent)[0].kind)
	require.Equal(t, domain.ParticipantID("bbb"), (*sent)[0].to)
}

func TestResponderWaitsForOffer(t *testing.T) {
	p, _, sent := newTestPeer(t, "bbb", "aaa")
	require.Equal(t, domain.RoleResponder, p.Role)

	p.Start()
	require.Equal(t, StateIdle, p.State())
	require.Empty(t, *sent)

	p.HandleOffer(json.RawMessage(`{"type":"offer"}`))
	require.Equal(t, StateNegotiating, p.State())
	require.Len(t, *sent, 1)
	require.Equal(t, signal.TypeAnswer, (*sent)[0].kind)
}

func TestOfferFailureClosesSession(t *testing.T) {
	p, m, _ := newTestPeer(t, "aaa", "bbb")
	m.offerErr = errors.New("no transport")

	var closed []domain.ParticipantID
	p.OnClosed = func(r domain.ParticipantID) { closed = append(closed, r) }

	p.Start()
	require.Equal(t, StateClosed, p.State())
	require.Equal(t, []domain.ParticipantID{"bbb"}, closed)
}

func TestAnswerOutsideNegotiatingDropped(t *testing.T) {
	p, _, _ := newTestPeer(t, "bbb", "aaa")

	p.HandleAnswer(json.RawMessage(`{"type":"answer"}`))
	require.Equal(t, StateIdle, p.State())
}

func TestChannelOpenConnectsAndAnnounces(t *testing.T) {
	p, m, _ := newTestPeer(t, "aaa", "bbb")
	p.Start()

	m.onOpen()
	require.Equal(t, StateConnected, p.State())

	// Initiator sends the test message and the language preference.
	require.Len(t, m.sent, 2)
	first, err := signal.DecodeChannelMessage(m.sent[0])
	require.NoError(t, err)
	require.NotNil(t, first.Test)
	second, err := signal.DecodeChannelMessage(m.sent[1])
	require.NoError(t, err)
	require.NotNil(t, second.Pref)
	require.Equal(t, domain.Lang("en"), second.Pref.PreferredLang)
}

func TestResponderEchoesTest(t *testing.T) {
	p, m, _ := newTestPeer(t, "bbb", "aaa")
	p.HandleOffer(json.RawMessage(`{"type":"offer"}`))
	m.onOpen()

	sentBefore := len(m.sent)
	m.onMessage(signal.NewTest("hello from aaa").Encode())
	require.Len(t, m.sent, sentBefore+1)
	echo, err := signal.DecodeChannelMessage(m.sent[len(m.sent)-1])
	require.NoError(t, err)
	require.NotNil(t, echo.Test)
}

func TestSendSpeechOnlyWhenConnected(t *testing.T) {
	p, m, _ := newTestPeer(t, "aaa", "bbb")
	p.Start()

	p.SendSpeech("too early", "en", 1)
	require.Empty(t, m.sent)

	m.onOpen()
	before := len(m.sent)
	p.SendSpeech("hello", "en", 2)
	require.Len(t, m.sent, before+1)
}

func TestCloseIdempotent(t *testing.T) {
	p, m, _ := newTestPeer(t, "aaa", "bbb")
	var closed int
	p.OnClosed = func(domain.ParticipantID) { closed++ }

	p.Close()
	p.Close()
	require.Equal(t, 1, closed)
	require.Equal(t, 1, m.closed)
}

func TestMediaClosureClosesSession(t *testing.T) {
	p, m, _ := newTestPeer(t, "aaa", "bbb")
	p.Start()

	var closed int
	p.OnClosed = func(domain.ParticipantID) { closed++ }

	m.onClosed()
	require.Equal(t, StateClosed, p.State())
	require.Equal(t, 1, closed)
}

func TestCandidateForwarding(t *testing.T) {
	p, m, sent := newTestPeer(t, "aaa", "bbb")
	p.Start()

	m.onCandidate(json.RawMessage(`{"candidate":"c"}`))
	require.Equal(t, signal.TypeCandidate, (*sent)[len(*sent)-1].kind)

	p.HandleCandidate(json.RawMessage(`{"candidate":"r"}`))
	require.Len(t, m.candidate, 1)
}

func TestTrackToggleDoesNotClose(t *testing.T) {
	p, m, _ := newTestPeer(t, "aaa", "bbb")
	p.Start()
	m.onOpen()

	p.SetTrackEnabled("audio", false)
	require.False(t, m.enabled["audio"])
	require.Equal(t, StateConnected, p.State())
}
