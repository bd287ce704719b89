// Package keyword detects configured tiered keyword phrases in a transcript.
package keyword

import (
	"sort"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/fuzzy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/transcript"
)

// Hit is one detected keyword phrase. Confidence is never below the keyword confidence threshold.
type Hit struct {
	Phrase     string          `json:"phrase"`
	Tier       taxonomy.Tier   `json:"tier"`
	Confidence float64         `json:"confidence"`
	MatchType  fuzzy.MatchType `json:"match_type"`
	Position   int             `json:"position"`
	Length     int             `json:"length"`
}

// Detect returns at most one hit per configured phrase, ordered by tier priority,
// then confidence descending, then position and phrase. A phrase listed under several
// tiers is reported once under the highest. Empty transcripts yield no hits.
func Detect(t transcript.Transcript, tax *taxonomy.Taxonomy, th taxonomy.Thresholds) []Hit {
	if t.Empty() || tax == nil {
		return []Hit{}
	}

	seen := make(map[string]bool)
	hits := []Hit{}
	for _, tier := range taxonomy.Tiers {
		for _, phrase := range tax.Keywords(tier) {
			key := transcript.Normalize(phrase)
			if seen[key] {
				continue
			}
			seen[key] = true

			m, ok := fuzzy.Find(t, phrase, th)
			if !ok {
				continue
			}
			hits = append(hits, Hit{
				Phrase:     phrase,
				Tier:       tier,
				Confidence: m.Confidence,
				MatchType:  m.Type,
				Position:   m.Offset,
				Length:     m.Length,
			})
		}
	}

	Sort(hits)
	return hits
}

// Sort orders hits by tier priority, confidence descending, position, then phrase.
func Sort(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if pa, pb := a.Tier.Priority(), b.Tier.Priority(); pa != pb {
			return pa > pb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Phrase < b.Phrase
	})
}
