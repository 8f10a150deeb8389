package session

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/signal"
)

// Peer drives one session with a remote participant: negotiation, the
// reliable channel and teardown. All methods run on the client event loop.
type Peer struct {
	Remote domain.ParticipantID
	Role   domain.Role

	media core.MediaSession
	state State
	log   zerolog.Logger

	// SendSignal forwards an addressed signaling payload through the relay.
	SendSignal func(kind string, to domain.ParticipantID, payload json.RawMessage)
	// OnChannelMessage receives decoded channel control messages.
	OnChannelMessage func(from domain.ParticipantID, msg signal.ChannelMessage)
	// OnClosed fires exactly once when the session reaches Closed.
	OnClosed func(remote domain.ParticipantID)

	// dispatch re-enters the event loop from transport callbacks.
	dispatch func(func())

	localLang domain.Lang
	localID   domain.ParticipantID
}

// New builds a Peer around a media session. The role decides which side
// produces the offer; both sides of a pair always compute complementary roles.
func New(local, remote domain.ParticipantID, lang domain.Lang, media core.MediaSession, dispatch func(func())) *Peer {
	p := &Peer{
		Remote:    remote,
		Role:      domain.RoleFor(local, remote),
		media:     media,
		state:     StateIdle,
		localID:   local,
		localLang: lang,
		dispatch:  dispatch,
		log: log.With().
			Str("module", "session").
			Str("remote", string(remote)).
			Logger(),
	}
	media.OnCandidate(func(cand json.RawMessage) {
		p.dispatch(func() { p.sendCandidate(cand) })
	})
	media.OnChannelOpen(func() {
		p.dispatch(p.channelOpened)
	})
	media.OnChannelMessage(func(data []byte) {
		p.dispatch(func() { p.channelMessage(data) })
	})
	media.OnClosed(func() {
		p.dispatch(func() { p.Close() })
	})
	return p
}

func (p *Peer) State() State { return p.state }

// Start kicks off negotiation. The initiator creates the channel and sends
// the offer; the responder stays Idle until an inbound offer arrives.
func (p *Peer) Start() {
	if p.state != StateIdle {
		return
	}
	if p.Role != domain.RoleInitiator {
		p.log.Info().Msg("waiting for inbound offer")
		return
	}
	offer, err := p.media.CreateOffer()
	if err != nil {
		p.log.Error().Err(err).Msg("create offer failed, abandoning session")
		p.Close()
		return
	}
	p.state = StateNegotiating
	p.SendSignal(signal.TypeOffer, p.Remote, offer)
	p.log.Info().Str("role", p.Role.String()).Msg("offer sent")
}

// HandleOffer answers an inbound negotiation request. A malformed offer
// abandons the session silently; no partial state leaks to other sessions.
func (p *Peer) HandleOffer(offer json.RawMessage) {
	if p.state == StateClosed {
		return
	}
	p.state = StateNegotiating
	answer, err := p.media.HandleOffer(offer)
	if err != nil {
		p.log.Error().Err(err).Msg("bad offer, abandoning session")
		p.Close()
		return
	}
	p.SendSignal(signal.TypeAnswer, p.Remote, answer)
	p.log.Info().Msg("answer sent")
}

func (p *Peer) HandleAnswer(answer json.RawMessage) {
	if p.state != StateNegotiating {
		p.log.Warn().Str("state", p.state.String()).Msg("answer in unexpected state, dropped")
		return
	}
	if err := p.media.HandleAnswer(answer); err != nil {
		p.log.Error().Err(err).Msg("bad answer, abandoning session")
		p.Close()
	}
}

func (p *Peer) HandleCandidate(cand json.RawMessage) {
	if p.state == StateClosed {
		return
	}
	if err := p.media.AddCandidate(cand); err != nil {
		p.log.Warn().Err(err).Msg("add candidate failed")
	}
}

func (p *Peer) sendCandidate(cand json.RawMessage) {
	if p.state == StateClosed {
		return
	}
	p.SendSignal(signal.TypeCandidate, p.Remote, cand)
}

// channelOpened marks the session Connected. The test exchange that follows
// is a liveness signal only; Connected never waits for it.
func (p *Peer) channelOpened() {
	if p.state == StateClosed {
		return
	}
	p.state = StateConnected
	p.log.Info().Msg("channel open, session connected")

	if p.Role == domain.RoleInitiator {
		p.trySendChannel(signal.NewTest(fmt.Sprintf("hello from %s", p.localID)))
	}
	p.trySendChannel(signal.NewPref(p.localLang))
}

func (p *Peer) channelMessage(data []byte) {
	if p.state == StateClosed {
		return
	}
	msg, err := signal.DecodeChannelMessage(data)
	if err != nil {
		p.log.Warn().Err(err).Msg("undecodable channel message dropped")
		return
	}
	if msg.Test != nil {
		p.log.Info().Str("message", msg.Test.Message).Msg("channel test message")
		if p.Role == domain.RoleResponder {
			p.trySendChannel(signal.NewTest(fmt.Sprintf("echo from %s", p.localID)))
		}
	}
	if p.OnChannelMessage != nil {
		p.OnChannelMessage(p.Remote, msg)
	}
}

// SendSpeech pushes an utterance over the channel fallback path.
func (p *Peer) SendSpeech(text string, lang domain.Lang, ts int64) {
	if p.state != StateConnected {
		return
	}
	p.trySendChannel(signal.NewSpeech(text, lang, ts))
}

func (p *Peer) trySendChannel(msg signal.ChannelMessage) {
	if err := p.media.SendChannel(msg.Encode()); err != nil {
		p.log.Warn().Err(err).Msg("channel send failed")
	}
}

// SetTrackEnabled flips a local track flag. Mute/camera toggles never close
// the session.
func (p *Peer) SetTrackEnabled(kind string, enabled bool) {
	p.media.SetTrackEnabled(kind, enabled)
}

// Close releases the channel and media and marks the session terminal.
// Safe to call more than once.
func (p *Peer) Close() {
	if p.state == StateClosed {
		return
	}
	p.state = StateClosed
	p.media.Close()
	p.log.Info().Msg("session closed")
	if p.OnClosed != nil {
		p.OnClosed(p.Remote)
	}
}
