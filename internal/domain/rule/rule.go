// Package rule scores each category by exact/fuzzy coverage of its configured phrases.
package rule

import (
	"fmt"
	"strings"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/fuzzy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/transcript"
)

// Explanations used when a category has no evidence.
const (
	NoMatch       = "no matching phrase found"
	NoExactConfig = "no exact phrases configured"
)

// Score returns one rule-based CategoryScore per category, in category order.
// It is a pure function of its arguments.
func Score(t transcript.Transcript, categories []taxonomy.Category, th taxonomy.Thresholds) []report.CategoryScore {
	out := make([]report.CategoryScore, 0, len(categories))
	for _, c := range categories {
		out = append(out, scoreCategory(t, c, th))
	}
	return out
}

func scoreCategory(t transcript.Transcript, c taxonomy.Category, th taxonomy.Thresholds) report.CategoryScore {
	cs := report.CategoryScore{
		Category:       c.Name,
		Method:         report.MethodRule,
		MatchedPhrases: []string{},
	}

	phrases := distinct(c.ExactPhrases)
	if len(phrases) == 0 {
		cs.Explanation = NoExactConfig
		return cs
	}

	var sum float64
	for _, p := range phrases {
		m, ok := fuzzy.Find(t, p, th)
		if !ok {
			continue
		}
		cs.MatchedPhrases = append(cs.MatchedPhrases, p)
		sum += m.Confidence
	}

	matched := len(cs.MatchedPhrases)
	if matched == 0 {
		cs.Explanation = NoMatch
		return cs
	}
	cs.Score = min(100, 100*float64(matched)/float64(len(phrases)))
	cs.Confidence = sum / float64(matched)
	cs.Explanation = fmt.Sprintf("matched %d of %d phrases: %s", matched, len(phrases), quoteAll(cs.MatchedPhrases))
	return cs
}

// distinct drops phrases that normalise to one already seen, keeping the first spelling.
func distinct(phrases []string) []string {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		key := transcript.Normalize(p)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func quoteAll(phrases []string) string {
	q := make([]string, len(phrases))
	for i, p := range phrases {
		q[i] = fmt.Sprintf("%q", p)
	}
	return strings.Join(q, ", ")
}
