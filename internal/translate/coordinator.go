// Package translate turns accepted remote utterances into translated
// captions, summary lines and spoken output.
package translate

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

// Labels are the speaker names used in the narrative summary, localized to
// the preferred language once it is locked.
type Labels struct {
	You  string
	Peer string
}

func DefaultLabels() Labels {
	return Labels{You: "You", Peer: "Other participant"}
}

// Coordinator handles every accepted remote utterance: translate when the
// languages differ, record the translated caption, feed the summary and
// speak the result. External failures always degrade to the original text;
// nothing here may stall or crash the pipeline.
type Coordinator struct {
	translator core.Translator
	speech     *SpeechCoordinator
	local      *domain.Participant
	dispatch   func(func())
	ctx        context.Context

	// OnTranslated records a translated caption correlated by caption id.
	OnTranslated func(id domain.CaptionID, text string)
	// OnSummary appends one summary line.
	OnSummary func(entry domain.SummaryEntry)
}

func NewCoordinator(ctx context.Context, translator core.Translator, speech *SpeechCoordinator, local *domain.Participant, dispatch func(func())) *Coordinator {
	return &Coordinator{
		ctx:        ctx,
		translator: translator,
		speech:     speech,
		local:      local,
		dispatch:   dispatch,
	}
}

// HandleRemote processes one remote utterance. Runs on the event loop; the
// translation call itself runs off-loop and re-dispatches its outcome.
func (c *Coordinator) HandleRemote(utt domain.Utterance) {
	source := utt.Lang.Primary()
	target := c.local.Lang.Primary()

	if source == target {
		c.summarize(utt, utt.Text)
		return
	}

	go func() {
		translated, err := c.translator.Translate(c.ctx, utt.Text, source, target)
		c.dispatch(func() {
			if err != nil || strings.TrimSpace(translated) == "" {
				if err != nil {
					log.Warn().Err(err).Str("module", "translate").Msg("translation failed, using original text")
				}
				c.summarize(utt, utt.Text)
				return
			}
			if c.OnTranslated != nil {
				c.OnTranslated(utt.ID, translated)
			}
			c.summarize(utt, translated)
			if c.speech != nil {
				c.speech.Speak(translated, target)
			}
		})
	}()
}

func (c *Coordinator) summarize(utt domain.Utterance, translated string) {
	if c.OnSummary == nil {
		return
	}
	c.OnSummary(domain.SummaryEntry{
		ID:         utt.ID,
		Original:   utt.Text,
		Translated: translated,
		Speaker:    domain.SpeakerPeer,
		Timestamp:  utt.Timestamp,
	})
}

// LocalizeLabels translates the static speaker labels into the locked
// preferred language. English keeps the defaults; any failure keeps the
// defaults too.
func (c *Coordinator) LocalizeLabels(done func(Labels)) {
	labels := DefaultLabels()
	target := c.local.Lang.Primary()
	if target == "" || target == "en" {
		done(labels)
		return
	}
	go func() {
		you, err1 := c.translator.Translate(c.ctx, labels.You, "en", target)
		peer, err2 := c.translator.Translate(c.ctx, labels.Peer, "en", target)
		c.dispatch(func() {
			if err1 == nil && strings.TrimSpace(you) != "" {
				labels.You = you
			}
			if err2 == nil && strings.TrimSpace(peer) != "" {
				labels.Peer = peer
			}
			done(labels)
		})
	}()
}
