package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/recognize"
	"github.com/linzo/meet/internal/signal"
	"github.com/linzo/meet/internal/summary"
	"github.com/linzo/meet/internal/transcript"
	"github.com/linzo/meet/internal/translate"
)

// Deps collects the capability implementations a Client needs. The caller
// picks concrete adapters; everything here is an interface or loop-driven
// component.
type Deps struct {
	Relay core.RelayLink
	// NewDialer builds the media dialer once the relay assigns an identity.
	NewDialer  func(local domain.ParticipantID) core.MediaDialer
	Recognizer core.Recognizer
	Translator core.Translator
	Languages  core.LanguageLister
	Suggest    core.SuggestionClient
	Speech     core.SpeechOutput
	SpeechAlt  core.SpeechOutput

	Room        domain.RoomID
	Lang        domain.Lang
	DeviceClass recognize.DeviceClass
}

// Client is one meeting participant process. It runs a single event loop and
// wires the relay link, the per-peer sessions and the caption pipeline onto
// it.
type Client struct {
	loop  *Loop
	relay core.RelayLink
	deps  Deps

	local     *domain.Participant
	peerLangs map[domain.ParticipantID]domain.Lang

	orch        *Orchestrator
	pipeline    *transcript.Pipeline
	recognizer  *recognize.Supervisor
	speech      *translate.SpeechCoordinator
	coordinator *translate.Coordinator
	aggregator  *summary.Aggregator

	micOn bool
	log   zerolog.Logger
}

func NewClient(ctx context.Context, deps Deps) *Client {
	loop := NewLoop()
	c := &Client{
		loop:      loop,
		relay:     deps.Relay,
		deps:      deps,
		local:     &domain.Participant{Lang: deps.Lang.Primary()},
		peerLangs: make(map[domain.ParticipantID]domain.Lang),
		pipeline:  transcript.NewPipeline(),
		micOn:     true,
		log:       log.With().Str("module", "client").Logger(),
	}

	c.speech = translate.NewSpeechCoordinator(deps.Speech, deps.SpeechAlt, loop, loop.Dispatch)
	c.coordinator = translate.NewCoordinator(ctx, deps.Translator, c.speech, c.local, loop.Dispatch)
	c.aggregator = summary.NewAggregator(ctx, c.local, deps.Suggest, loop, loop.Dispatch)
	c.recognizer = recognize.NewSupervisor(deps.Recognizer, deps.DeviceClass, loop, loop.Dispatch)

	c.pipeline.OnLocal = c.localAccepted
	c.pipeline.OnRemote = c.coordinator.HandleRemote
	c.coordinator.OnTranslated = c.pipeline.AddTranslated
	c.coordinator.OnSummary = c.aggregator.Append
	c.recognizer.OnUtterance = c.recognized

	relay := deps.Relay
	relay.OnWelcome(func(id domain.ParticipantID) {
		loop.Dispatch(func() { c.welcomed(id) })
	})
	relay.OnRoomState(func(members []domain.ParticipantID) {
		loop.Dispatch(func() { c.roomState(members) })
	})
	relay.OnUserJoined(func(id domain.ParticipantID) {
		loop.Dispatch(func() { c.peerJoined(id) })
	})
	relay.OnUserLeft(func(id domain.ParticipantID) {
		loop.Dispatch(func() { c.peerLeft(id) })
	})
	relay.OnRelayed(func(kind string, from domain.ParticipantID, payload json.RawMessage) {
		loop.Dispatch(func() { c.relayed(kind, from, payload) })
	})
	relay.OnSpeech(func(msg signal.Speech) {
		loop.Dispatch(func() { c.relaySpeech(msg) })
	})

	return c
}

// Run pumps the relay link and the event loop until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	go func() {
		if err := c.relay.Run(ctx); err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Msg("relay link stopped")
		}
	}()
	c.checkLanguageSupport(ctx)
	c.aggregator.Start()
	c.loop.Run(ctx)
	c.shutdown()
}

// checkLanguageSupport verifies the configured language against the
// translation capability. An unknown language only warns; translation
// failures degrade to original text anyway.
func (c *Client) checkLanguageSupport(ctx context.Context) {
	if c.deps.Languages == nil {
		return
	}
	go func() {
		langs, err := c.deps.Languages.SupportedLanguages(ctx)
		c.loop.Dispatch(func() {
			if err != nil {
				c.log.Warn().Err(err).Msg("language list unavailable")
				return
			}
			for _, l := range langs {
				if l.Code.Primary() == c.local.Lang {
					return
				}
			}
			c.log.Warn().Str("lang", string(c.local.Lang)).Msg("language not in supported list, captions stay untranslated")
		})
	}()
}

func (c *Client) shutdown() {
	if c.orch != nil {
		c.orch.CloseAll()
	}
	c.recognizer.Disable()
	c.speech.Shutdown()
	c.aggregator.Shutdown()
	_ = c.relay.SendLeave()
}

// welcomed installs the relay-assigned identity and joins the configured
// room. A reconnect brings a fresh id, so every old session is torn down.
func (c *Client) welcomed(id domain.ParticipantID) {
	c.log.Info().Str("id", string(id)).Msg("welcomed by relay")
	if c.orch != nil {
		c.orch.CloseAll()
	}
	c.local.ID = id
	c.local.Lock()
	c.localizeLabels()

	c.orch = NewOrchestrator(id, c.local.Lang, c.deps.NewDialer(id), c.loop.Dispatch)
	c.orch.SendSignal = func(kind string, to domain.ParticipantID, payload json.RawMessage) {
		if err := c.relay.SendRelayed(kind, to, payload); err != nil {
			c.log.Warn().Err(err).Str("kind", kind).Msg("signal send failed")
		}
	}
	c.orch.OnChannelMessage = c.channelMessage
	c.orch.OnSessionClosed = func(remote domain.ParticipantID) {
		delete(c.peerLangs, remote)
	}

	if err := c.relay.SendJoin(c.deps.Room); err != nil {
		c.log.Error().Err(err).Msg("join send failed")
		return
	}
	if c.micOn {
		c.recognizer.Enable(c.local.Lang)
	}
}

func (c *Client) localizeLabels() {
	c.coordinator.LocalizeLabels(func(labels translate.Labels) {
		c.aggregator.SetLabels(labels.You, labels.Peer)
	})
}

func (c *Client) roomState(members []domain.ParticipantID) {
	c.log.Info().Int("members", len(members)).Msg("room state received")
	for _, id := range members {
		c.peerJoined(id)
	}
}

func (c *Client) peerJoined(id domain.ParticipantID) {
	if c.orch == nil {
		return
	}
	c.orch.PeerJoined(id)
}

func (c *Client) peerLeft(id domain.ParticipantID) {
	if c.orch == nil {
		return
	}
	c.orch.PeerLeft(id)
}

func (c *Client) relayed(kind string, from domain.ParticipantID, payload json.RawMessage) {
	if c.orch == nil {
		return
	}
	c.orch.HandleRelayed(kind, from, payload)
}

// relaySpeech ingests an utterance that arrived over the relay broadcast.
// The channel path may deliver the same utterance; the pipeline dedups.
func (c *Client) relaySpeech(msg signal.Speech) {
	c.pipeline.Ingest(domain.Utterance{
		ID:        domain.CaptionID(uuid.NewString()),
		Text:      msg.Text,
		Lang:      msg.SourceLang,
		Origin:    domain.OriginRelay,
		From:      msg.From,
		Timestamp: time.UnixMilli(msg.Timestamp),
	})
}

func (c *Client) channelMessage(from domain.ParticipantID, msg signal.ChannelMessage) {
	switch {
	case msg.Pref != nil:
		c.peerLangs[from] = msg.Pref.PreferredLang.Primary()
		c.log.Info().Str("from", string(from)).Str("lang", string(msg.Pref.PreferredLang)).Msg("peer language preference")
	case msg.Speech != nil:
		lang := msg.Speech.SourceLang
		if lang == "" {
			lang = c.peerLangs[from]
		}
		c.pipeline.Ingest(domain.Utterance{
			ID:        domain.CaptionID(uuid.NewString()),
			Text:      msg.Speech.Text,
			Lang:      lang,
			Origin:    domain.OriginChannel,
			From:      from,
			Timestamp: time.UnixMilli(msg.Speech.Timestamp),
		})
	}
}

// recognized feeds an accepted recognition result into the pipeline.
func (c *Client) recognized(text string, lang domain.Lang, at time.Time) {
	c.pipeline.Ingest(domain.Utterance{
		ID:        domain.CaptionID(uuid.NewString()),
		Text:      text,
		Lang:      lang,
		Origin:    domain.OriginLocal,
		From:      c.local.ID,
		Timestamp: at,
	})
}

// localAccepted sends a surviving local utterance to the room over both
// delivery paths and records it in the summary log verbatim.
func (c *Client) localAccepted(utt domain.Utterance) {
	ts := utt.Timestamp.UnixMilli()
	if err := c.relay.SendSpeech(signal.Speech{
		Text:       utt.Text,
		SourceLang: utt.Lang,
		Timestamp:  ts,
	}); err != nil {
		c.log.Warn().Err(err).Msg("relay speech send failed")
	}
	if c.orch != nil {
		c.orch.BroadcastSpeech(utt.Text, utt.Lang, ts)
	}
	c.aggregator.Append(domain.SummaryEntry{
		ID:         utt.ID,
		Original:   utt.Text,
		Translated: utt.Text,
		Speaker:    domain.SpeakerSelf,
		Timestamp:  utt.Timestamp,
	})
}

// SendReply sends a picked smart reply as if it had been recognized locally,
// and voices it for the local user.
func (c *Client) SendReply(text string) {
	c.loop.Dispatch(func() {
		c.recognized(text, c.local.Lang, time.Now())
		c.speech.Speak(text, c.local.Lang)
	})
}

// SetMicEnabled toggles the microphone. Muting also stops recognition so no
// captions are produced while muted.
func (c *Client) SetMicEnabled(enabled bool) {
	c.loop.Dispatch(func() {
		c.micOn = enabled
		if c.orch != nil {
			c.orch.SetTrackEnabled("audio", enabled)
		}
		if enabled {
			c.recognizer.Enable(c.local.Lang)
		} else {
			c.recognizer.Disable()
		}
	})
}

// SetCameraEnabled toggles the camera track without touching any session.
func (c *Client) SetCameraEnabled(enabled bool) {
	c.loop.Dispatch(func() {
		if c.orch != nil {
			c.orch.SetTrackEnabled("video", enabled)
		}
	})
}

// EnableRecognition is the explicit re-activation path after the mobile
// policy stops auto-restarting.
func (c *Client) EnableRecognition() {
	c.loop.Dispatch(func() { c.recognizer.Enable(c.local.Lang) })
}

// Captions returns the current caption strip. Safe from any goroutine; the
// read is served on the loop. After shutdown it returns nil.
func (c *Client) Captions() []domain.CaptionEntry {
	res := make(chan []domain.CaptionEntry, 1)
	if !c.loop.TryDispatch(func() { res <- c.pipeline.Captions() }) {
		return nil
	}
	select {
	case entries := <-res:
		return entries
	case <-c.loop.Done():
		return nil
	}
}

// Narrative returns the current summary paragraph.
func (c *Client) Narrative() string {
	res := make(chan string, 1)
	if !c.loop.TryDispatch(func() { res <- c.aggregator.Narrative() }) {
		return ""
	}
	select {
	case narrative := <-res:
		return narrative
	case <-c.loop.Done():
		return ""
	}
}

// Replies returns the current smart-reply suggestions.
func (c *Client) Replies() []string {
	res := make(chan []string, 1)
	if !c.loop.TryDispatch(func() { res <- c.aggregator.Replies() }) {
		return nil
	}
	select {
	case replies := <-res:
		return replies
	case <-c.loop.Done():
		return nil
	}
}
