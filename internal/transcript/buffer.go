package transcript

import "github.com/linzo/meet/internal/domain"

// CaptionCapacity bounds both caption buffers; oldest entries are evicted
// first and the buffers never exceed it.
const CaptionCapacity = 10

// CaptionRing holds the most recent caption entries.
type CaptionRing struct {
	entries []domain.CaptionEntry
}

func NewCaptionRing() *CaptionRing {
	return &CaptionRing{}
}

func (r *CaptionRing) Append(e domain.CaptionEntry) {
	r.entries = append(r.entries, e)
	if len(r.entries) > CaptionCapacity {
		r.entries = r.entries[len(r.entries)-CaptionCapacity:]
	}
}

func (r *CaptionRing) Entries() []domain.CaptionEntry {
	out := make([]domain.CaptionEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *CaptionRing) Len() int { return len(r.entries) }

// TranslatedRing holds translated captions keyed by their originating caption
// id. An update for an existing id removes the old entry before appending,
// so the join with CaptionRing stays 1:1.
type TranslatedRing struct {
	entries []domain.TranslatedCaptionEntry
}

func NewTranslatedRing() *TranslatedRing {
	return &TranslatedRing{}
}

func (r *TranslatedRing) Upsert(e domain.TranslatedCaptionEntry) {
	kept := r.entries[:0]
	for _, old := range r.entries {
		if old.ID != e.ID {
			kept = append(kept, old)
		}
	}
	r.entries = append(kept, e)
	if len(r.entries) > CaptionCapacity {
		r.entries = r.entries[len(r.entries)-CaptionCapacity:]
	}
}

// Get joins a translated caption back to its original by id.
func (r *TranslatedRing) Get(id domain.CaptionID) (domain.TranslatedCaptionEntry, bool) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.TranslatedCaptionEntry{}, false
}

func (r *TranslatedRing) Entries() []domain.TranslatedCaptionEntry {
	out := make([]domain.TranslatedCaptionEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *TranslatedRing) Len() int { return len(r.entries) }
