package app

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/session"
	"github.com/linzo/meet/internal/signal"
)

// Orchestrator owns one session per remote participant and routes signaling
// between the relay and the sessions. All methods run on the event loop.
type Orchestrator struct {
	localID   domain.ParticipantID
	localLang domain.Lang

	dialer   core.MediaDialer
	dispatch func(func())
	log      zerolog.Logger

	sessions map[domain.ParticipantID]*session.Peer

	// SendSignal forwards addressed payloads to the relay.
	SendSignal func(kind string, to domain.ParticipantID, payload json.RawMessage)
	// OnChannelMessage receives decoded channel messages from any session.
	OnChannelMessage func(from domain.ParticipantID, msg signal.ChannelMessage)
	// OnSessionClosed fires after a session is removed.
	OnSessionClosed func(remote domain.ParticipantID)
}

func NewOrchestrator(localID domain.ParticipantID, lang domain.Lang, dialer core.MediaDialer, dispatch func(func())) *Orchestrator {
	return &Orchestrator{
		localID:   localID,
		localLang: lang,
		dialer:    dialer,
		dispatch:  dispatch,
		sessions:  make(map[domain.ParticipantID]*session.Peer),
		log:       log.With().Str("module", "orchestrator").Logger(),
	}
}

// PeerJoined opens a session toward a participant. A second join for an
// already-tracked participant is a no-op; the existing session stays.
func (o *Orchestrator) PeerJoined(remote domain.ParticipantID) {
	if remote == o.localID {
		return
	}
	if _, exists := o.sessions[remote]; exists {
		o.log.Debug().Str("remote", string(remote)).Msg("duplicate join ignored")
		return
	}
	media, err := o.dialer.Dial(string(remote))
	if err != nil {
		o.log.Error().Err(err).Str("remote", string(remote)).Msg("media dial failed")
		return
	}
	p := session.New(o.localID, remote, o.localLang, media, o.dispatch)
	p.SendSignal = func(kind string, to domain.ParticipantID, payload json.RawMessage) {
		if o.SendSignal != nil {
			o.SendSignal(kind, to, payload)
		}
	}
	p.OnChannelMessage = func(from domain.ParticipantID, msg signal.ChannelMessage) {
		if o.OnChannelMessage != nil {
			o.OnChannelMessage(from, msg)
		}
	}
	p.OnClosed = o.sessionClosed
	o.sessions[remote] = p
	p.Start()
}

// PeerLeft tears down the session for a departed participant.
func (o *Orchestrator) PeerLeft(remote domain.ParticipantID) {
	p, ok := o.sessions[remote]
	if !ok {
		return
	}
	p.Close()
}

func (o *Orchestrator) sessionClosed(remote domain.ParticipantID) {
	delete(o.sessions, remote)
	o.log.Info().Str("remote", string(remote)).Int("active", len(o.sessions)).Msg("session removed")
	if o.OnSessionClosed != nil {
		o.OnSessionClosed(remote)
	}
}

// HandleRelayed routes one addressed signaling payload to its session.
// An offer may create the session on demand; answers and candidates for
// unknown peers drop.
func (o *Orchestrator) HandleRelayed(kind string, from domain.ParticipantID, payload json.RawMessage) {
	p, ok := o.sessions[from]
	switch kind {
	case signal.TypeOffer:
		if !ok {
			// Offer can outrun the user-joined broadcast.
			o.PeerJoined(from)
			if p, ok = o.sessions[from]; !ok {
				return
			}
		}
		p.HandleOffer(payload)
	case signal.TypeAnswer:
		if !ok {
			o.log.Warn().Str("from", string(from)).Msg("answer for unknown peer dropped")
			return
		}
		p.HandleAnswer(payload)
	case signal.TypeCandidate:
		if !ok {
			o.log.Debug().Str("from", string(from)).Msg("candidate for unknown peer dropped")
			return
		}
		p.HandleCandidate(payload)
	default:
		o.log.Warn().Str("kind", kind).Msg("unknown relayed kind dropped")
	}
}

// BroadcastSpeech fans one local utterance out over every connected channel.
func (o *Orchestrator) BroadcastSpeech(text string, lang domain.Lang, ts int64) {
	for _, p := range o.sessions {
		p.SendSpeech(text, lang, ts)
	}
}

// SetTrackEnabled applies a mute or camera toggle to every session.
func (o *Orchestrator) SetTrackEnabled(kind string, enabled bool) {
	for _, p := range o.sessions {
		p.SetTrackEnabled(kind, enabled)
	}
}

// CloseAll tears down every session, used on leave and shutdown.
func (o *Orchestrator) CloseAll() {
	for _, p := range o.sessions {
		p.Close()
	}
}

// SessionCount reports the number of tracked sessions.
func (o *Orchestrator) SessionCount() int { return len(o.sessions) }

// Session returns the live session for a remote, if any.
func (o *Orchestrator) Session(remote domain.ParticipantID) (*session.Peer, bool) {
	p, ok := o.sessions[remote]
	return p, ok
}
