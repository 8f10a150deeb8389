package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linzo/meet/internal/domain"
)

func TestDedupCrossOriginOnly(t *testing.T) {
	w := NewDedupWindow()
	now := time.Now()

	w.Remember("hello there", domain.OriginRelay, now)

	// Same origin never counts as a duplicate.
	require.False(t, w.IsDuplicate("hello there", domain.OriginRelay, now))
	// The other origin does.
	require.True(t, w.IsDuplicate("hello there", domain.OriginLocal, now))
}

func TestDedupRelayVersusChannel(t *testing.T) {
	w := NewDedupWindow()
	now := time.Now()

	// The same remote utterance delivered over both network paths.
	w.Remember("hello there", domain.OriginRelay, now)
	require.True(t, w.IsDuplicate("hello there", domain.OriginChannel, now))
}

func TestDedupNormalization(t *testing.T) {
	w := NewDedupWindow()
	now := time.Now()

	w.Remember("Hello There", domain.OriginRelay, now)
	require.True(t, w.IsDuplicate("  hello there  ", domain.OriginLocal, now))
}

func TestDedupContainmentSlack(t *testing.T) {
	w := NewDedupWindow()
	now := time.Now()

	w.Remember("hello there", domain.OriginRelay, now)

	// Contained with a length delta of 1: duplicate.
	require.True(t, w.IsDuplicate("hello there!", domain.OriginLocal, now))
	// Contained but 4 characters longer: not a duplicate.
	require.False(t, w.IsDuplicate("hello there now!", domain.OriginLocal, now))
	// Unrelated text is never a duplicate.
	require.False(t, w.IsDuplicate("completely different", domain.OriginLocal, now))
}

func TestDedupContainmentSlackCountsCharacters(t *testing.T) {
	w := NewDedupWindow()
	now := time.Now()

	w.Remember("你好吗朋友", domain.OriginRelay, now)

	// Two extra characters are six extra bytes; the slack counts characters.
	require.True(t, w.IsDuplicate("你好吗朋友谢谢", domain.OriginChannel, now))
	// Four extra characters exceed the slack.
	require.False(t, w.IsDuplicate("你好吗朋友谢谢谢谢", domain.OriginChannel, now))
}

func TestDedupWindowExpiry(t *testing.T) {
	w := NewDedupWindow()
	base := time.Now()

	w.Remember("hello there", domain.OriginRelay, base)

	// Just inside the window.
	require.True(t, w.IsDuplicate("hello there", domain.OriginLocal, base.Add(4999*time.Millisecond)))
	// At the boundary the entry has expired.
	require.False(t, w.IsDuplicate("hello there", domain.OriginLocal, base.Add(5000*time.Millisecond)))
}

func TestCaptionRingCapacity(t *testing.T) {
	r := NewCaptionRing()
	for i := 0; i < 15; i++ {
		r.Append(domain.CaptionEntry{ID: domain.CaptionID(rune('a' + i)), Text: "t"})
	}
	require.Equal(t, CaptionCapacity, r.Len())

	entries := r.Entries()
	// Oldest five were evicted.
	require.Equal(t, domain.CaptionID(rune('a'+5)), entries[0].ID)
	require.Equal(t, domain.CaptionID(rune('a'+14)), entries[len(entries)-1].ID)
}

func TestTranslatedRingUpsertReplaces(t *testing.T) {
	r := NewTranslatedRing()
	r.Upsert(domain.TranslatedCaptionEntry{ID: "c1", Text: "first"})
	r.Upsert(domain.TranslatedCaptionEntry{ID: "c2", Text: "second"})
	r.Upsert(domain.TranslatedCaptionEntry{ID: "c1", Text: "revised"})

	require.Equal(t, 2, r.Len())
	got, ok := r.Get("c1")
	require.True(t, ok)
	require.Equal(t, "revised", got.Text)

	// The replaced entry moved to the end.
	entries := r.Entries()
	require.Equal(t, domain.CaptionID("c1"), entries[len(entries)-1].ID)
}

func TestTranslatedRingCapacity(t *testing.T) {
	r := NewTranslatedRing()
	for i := 0; i < 12; i++ {
		r.Upsert(domain.TranslatedCaptionEntry{ID: domain.CaptionID(rune('a' + i))})
	}
	require.Equal(t, CaptionCapacity, r.Len())
	_, ok := r.Get("a")
	require.False(t, ok)
}
