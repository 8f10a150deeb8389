// Package summary maintains the rolling meeting log, the narrative summary
// derived from it and the throttled smart-reply suggestions.
package summary

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

const (
	// LogCapacity bounds the append log; oldest entries are evicted first.
	LogCapacity = 50

	regenPeriod     = 15 * time.Second
	replyThrottle   = 12 * time.Second
	replyFetchDelay = 2 * time.Second
	replyContextLen = 8
)

const emptyNarrative = "No conversation yet. Start speaking to see the meeting summary."

// Aggregator owns the summary log and its derived views. All methods run on
// the client event loop; the suggestion HTTP call runs off-loop and
// re-dispatches its outcome.
type Aggregator struct {
	entries   []domain.SummaryEntry
	narrative string
	replies   []string

	youLabel  string
	peerLabel string

	local   *domain.Participant
	suggest core.SuggestionClient

	sched    core.Scheduler
	dispatch func(func())
	ctx      context.Context
	now      func() time.Time

	lastFetch  time.Time
	regenTick  core.TimerHandle
	fetchTimer core.TimerHandle
}

func NewAggregator(ctx context.Context, local *domain.Participant, suggest core.SuggestionClient, sched core.Scheduler, dispatch func(func())) *Aggregator {
	return &Aggregator{
		narrative: emptyNarrative,
		youLabel:  "You",
		peerLabel: "Other participant",
		local:     local,
		suggest:   suggest,
		sched:     sched,
		dispatch:  dispatch,
		ctx:       ctx,
		now:       time.Now,
	}
}

// Start arms the periodic regeneration tick.
func (a *Aggregator) Start() {
	a.regenTick = a.sched.Every(regenPeriod, func() {
		if len(a.entries) > 0 {
			a.regenerate()
		}
	})
}

// Shutdown cancels every pending timer.
func (a *Aggregator) Shutdown() {
	if a.regenTick != nil {
		a.regenTick.Stop()
		a.regenTick = nil
	}
	if a.fetchTimer != nil {
		a.fetchTimer.Stop()
		a.fetchTimer = nil
	}
}

// SetLabels installs localized speaker labels for the narrative.
func (a *Aggregator) SetLabels(you, peer string) {
	if you != "" {
		a.youLabel = you
	}
	if peer != "" {
		a.peerLabel = peer
	}
}

// Append adds one immutable entry, evicting the oldest past capacity, and
// regenerates the narrative immediately. A smart-reply fetch is scheduled
// shortly after so the summary has settled.
func (a *Aggregator) Append(entry domain.SummaryEntry) {
	a.entries = append(a.entries, entry)
	if len(a.entries) > LogCapacity {
		a.entries = a.entries[len(a.entries)-LogCapacity:]
	}
	a.regenerate()

	if a.fetchTimer != nil {
		a.fetchTimer.Stop()
	}
	a.fetchTimer = a.sched.After(replyFetchDelay, a.FetchReplies)
}

func (a *Aggregator) regenerate() {
	a.narrative = a.compose()
	log.Debug().Str("module", "summary").Int("entries", len(a.entries)).Msg("narrative regenerated")
}

// FetchReplies asks the suggestion capability for smart replies. Requires a
// locked language and a non-empty log, and fires at most once per throttle
// window. Failure leaves the current suggestion list unchanged.
func (a *Aggregator) FetchReplies() {
	if a.suggest == nil || !a.local.Locked || len(a.entries) == 0 {
		return
	}
	now := a.now()
	if now.Sub(a.lastFetch) < replyThrottle {
		return
	}
	a.lastFetch = now

	lines := a.contextLines()
	narrative := a.narrative
	target := a.local.Lang

	go func() {
		replies, err := a.suggest.SmartReplies(a.ctx, lines, narrative, target)
		a.dispatch(func() {
			if err != nil {
				log.Warn().Err(err).Str("module", "summary").Msg("smart reply fetch failed")
				return
			}
			a.replies = replies
			log.Info().Int("count", len(replies)).Str("module", "summary").Msg("smart replies updated")
		})
	}()
}

func (a *Aggregator) contextLines() []core.ContextLine {
	start := len(a.entries) - replyContextLen
	if start < 0 {
		start = 0
	}
	recent := a.entries[start:]
	lines := make([]core.ContextLine, 0, len(recent))
	for _, e := range recent {
		text := e.Translated
		if text == "" {
			text = e.Original
		}
		speaker := a.peerLabel
		if e.Speaker == domain.SpeakerSelf {
			speaker = a.youLabel
		}
		lines = append(lines, core.ContextLine{Speaker: speaker, Text: text})
	}
	return lines
}

func (a *Aggregator) Narrative() string { return a.narrative }

func (a *Aggregator) Replies() []string {
	out := make([]string, len(a.replies))
	copy(out, a.replies)
	return out
}

func (a *Aggregator) Entries() []domain.SummaryEntry {
	out := make([]domain.SummaryEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a *Aggregator) Len() int { return len(a.entries) }
