// Package transcript ingests utterances from both delivery paths, removes
// duplicates and routes them onward.
package transcript

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linzo/meet/internal/domain"
)

// dedupTTL is how long an utterance can suppress duplicates.
const dedupTTL = 5000 * time.Millisecond

// containment slack: texts count as duplicates when one contains the other
// and their lengths differ by at most this many characters.
const maxLenDelta = 3

type dedupEntry struct {
	text   string
	origin domain.Origin
	at     time.Time
}

// DedupWindow remembers recent utterances so the same text arriving over a
// second path (relay broadcast vs channel, or local echo picked up by the
// recognizer) is suppressed. Entries older than the TTL are purged before
// every check.
type DedupWindow struct {
	entries []dedupEntry
}

func NewDedupWindow() *DedupWindow {
	return &DedupWindow{}
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsDuplicate reports whether text matches a recent entry from a different
// origin. Two texts match when they are equal, or one contains the other and
// the length difference is within the slack.
func (w *DedupWindow) IsDuplicate(text string, origin domain.Origin, now time.Time) bool {
	w.purge(now)
	needle := normalize(text)
	for _, e := range w.entries {
		if e.origin == origin {
			continue
		}
		have := normalize(e.text)
		if needle == have {
			return true
		}
		if (strings.Contains(needle, have) || strings.Contains(have, needle)) &&
			absInt(utf8.RuneCountInString(needle)-utf8.RuneCountInString(have)) <= maxLenDelta {
			return true
		}
	}
	return false
}

// Remember records an accepted utterance.
func (w *DedupWindow) Remember(text string, origin domain.Origin, now time.Time) {
	w.entries = append(w.entries, dedupEntry{text: text, origin: origin, at: now})
}

func (w *DedupWindow) purge(now time.Time) {
	fresh := w.entries[:0]
	for _, e := range w.entries {
		if now.Sub(e.at) < dedupTTL {
			fresh = append(fresh, e)
		}
	}
	w.entries = fresh
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
