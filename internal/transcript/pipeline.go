package transcript

import (
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/domain"
)

// Pipeline normalizes and deduplicates utterances from the two delivery
// origins and routes the survivors. Local utterances go out to the network
// and straight into the summary; remote ones go to the translation
// coordinator. Runs entirely on the client event loop.
type Pipeline struct {
	window     *DedupWindow
	captions   *CaptionRing
	translated *TranslatedRing

	now func() time.Time

	// OnLocal fires for every accepted local utterance.
	OnLocal func(utt domain.Utterance)
	// OnRemote fires for every accepted remote utterance.
	OnRemote func(utt domain.Utterance)
}

func NewPipeline() *Pipeline {
	return &Pipeline{
		window:     NewDedupWindow(),
		captions:   NewCaptionRing(),
		translated: NewTranslatedRing(),
		now:        time.Now,
	}
}

// Ingest runs one utterance through normalization, dedup and routing.
// Returns true when the utterance was accepted.
func (p *Pipeline) Ingest(utt domain.Utterance) bool {
	utt.Lang = p.normalizeLang(utt.Lang, utt.Text)
	if utt.Timestamp.IsZero() {
		utt.Timestamp = p.now()
	}

	now := p.now()
	if p.window.IsDuplicate(utt.Text, utt.Origin, now) {
		log.Debug().Str("module", "transcript").Str("origin", string(utt.Origin)).Str("text", utt.Text).Msg("duplicate dropped")
		return false
	}
	p.window.Remember(utt.Text, utt.Origin, now)

	speaker := domain.SpeakerPeer
	if utt.Origin == domain.OriginLocal {
		speaker = domain.SpeakerSelf
	}
	p.captions.Append(domain.CaptionEntry{
		ID:        utt.ID,
		Text:      utt.Text,
		Speaker:   speaker,
		Timestamp: utt.Timestamp,
	})

	if utt.Origin == domain.OriginLocal {
		if p.OnLocal != nil {
			p.OnLocal(utt)
		}
	} else if p.OnRemote != nil {
		p.OnRemote(utt)
	}
	return true
}

// AddTranslated records the translated text for a caption, replacing any
// earlier translation with the same id.
func (p *Pipeline) AddTranslated(id domain.CaptionID, text string) {
	p.translated.Upsert(domain.TranslatedCaptionEntry{
		ID:        id,
		Text:      text,
		Timestamp: p.now(),
	})
}

// normalizeLang strips the region subtag; an untagged utterance gets its
// language detected from the text.
func (p *Pipeline) normalizeLang(lang domain.Lang, text string) domain.Lang {
	if norm := lang.Primary(); norm != "" {
		return norm
	}
	info := whatlanggo.Detect(text)
	detected := domain.Lang(info.Lang.Iso6391())
	log.Debug().Str("module", "transcript").Str("detected", string(detected)).Msg("language detected from text")
	return detected
}

func (p *Pipeline) Captions() []domain.CaptionEntry { return p.captions.Entries() }

func (p *Pipeline) Translated() []domain.TranslatedCaptionEntry { return p.translated.Entries() }

// TranslatedFor joins a translated caption back to its original.
func (p *Pipeline) TranslatedFor(id domain.CaptionID) (domain.TranslatedCaptionEntry, bool) {
	return p.translated.Get(id)
}
