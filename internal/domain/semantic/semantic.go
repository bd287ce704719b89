// Package semantic scores categories by the best similarity between transcript sentences
// and the category's concept phrases.
package semantic

import (
	"context"
	"fmt"
	"strconv"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/similarity"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/transcript"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// Explanations for categories without evidence.
const (
	NoConcepts  = "no concept phrases configured"
	NoSentences = "no sentences to compare"
)

// Scorer runs semantic scoring against an injected similarity capability.
// It holds no per-call state and is safe for concurrent use.
type Scorer struct {
	capability similarity.Capability
	log        logger.Logger
}

// New creates a Scorer. A nil capability degrades every category that has work to do.
func New(capability similarity.Capability, opts ...Option) *Scorer {
	s := &Scorer{capability: capability, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns one semantic CategoryScore per category, in category order. It never
// fails: a capability error or context expiry marks the affected category Degraded so the
// aggregator can fall back to the rule-based score.
func (s *Scorer) Score(ctx context.Context, t transcript.Transcript, categories []taxonomy.Category, th taxonomy.Thresholds) []report.CategoryScore {
	sentences := t.Sentences()
	out := make([]report.CategoryScore, len(categories))

	var prepareErr error
	if s.capability == nil {
		prepareErr = similarity.ErrUnavailable
	} else if p, ok := s.capability.(similarity.Preparer); ok && len(sentences) > 0 {
		prepareErr = p.Prepare(ctx, gather(sentences, categories))
	}

	for i, c := range categories {
		cs := report.CategoryScore{Category: c.Name, Method: report.MethodSemantic, MatchedPhrases: []string{}}
		switch {
		case len(c.ConceptPhrases) == 0:
			cs.Explanation = NoConcepts
		case len(sentences) == 0:
			cs.Explanation = NoSentences
		case prepareErr != nil:
			cs = s.degrade(ctx, cs, prepareErr)
		default:
			cs = s.scoreCategory(ctx, cs, sentences, c.ConceptPhrases, th.Semantic)
		}
		out[i] = cs
	}
	return out
}

func (s *Scorer) scoreCategory(ctx context.Context, cs report.CategoryScore, sentences, concepts []string, threshold float64) report.CategoryScore {
	best := -1.0
	var bestSentence, bestConcept string
	for _, sentence := range sentences {
		for _, concept := range concepts {
			if err := ctx.Err(); err != nil {
				return s.degrade(ctx, cs, err)
			}
			raw, err := s.capability.Similarity(ctx, sentence, concept)
			if err != nil {
				return s.degrade(ctx, cs, err)
			}
			v, err := similarity.Clamp(raw)
			if err != nil {
				return s.degrade(ctx, cs, err)
			}
			// strict comparison keeps the first pair on ties
			if v > best {
				best, bestSentence, bestConcept = v, sentence, concept
			}
		}
	}

	cs.Confidence = best
	if best >= threshold {
		cs.Score = best * 100
		cs.MatchedPhrases = []string{bestConcept, bestSentence}
		cs.Explanation = fmt.Sprintf("best similarity %s between concept %q and sentence %q meets threshold %s",
			exact(best), bestConcept, bestSentence, exact(threshold))
		return cs
	}
	cs.Explanation = fmt.Sprintf("best similarity %s between concept %q and sentence %q is below threshold %s",
		exact(best), bestConcept, bestSentence, exact(threshold))
	return cs
}

// exact prints v with the fewest digits that still round-trip, so a value just under the
// threshold never reads as equal to it.
func exact(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *Scorer) degrade(ctx context.Context, cs report.CategoryScore, err error) report.CategoryScore {
	s.log.Warn(ctx, "semantic score degraded", logger.String("category", cs.Category), logger.Error(err))
	cs.Degraded = true
	cs.Score = 0
	cs.Confidence = 0
	cs.MatchedPhrases = []string{}
	cs.Explanation = fmt.Sprintf("%s: %v", report.DegradedPrefix, err)
	return cs
}

func gather(sentences []string, categories []taxonomy.Category) []string {
	texts := append([]string{}, sentences...)
	for _, c := range categories {
		texts = append(texts, c.ConceptPhrases...)
	}
	return texts
}
