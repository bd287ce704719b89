// Package report merges keyword hits and category scores into an immutable QAReport.
// It performs no matching itself.
package report

import (
	"math"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/keyword"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
)

// DegradedPrefix starts the explanation of a semantic score that fell back to the rule score.
const DegradedPrefix = "degraded: similarity capability unavailable, using rule-based score"

// CategoryScore is one category's score under one method.
// An empty MatchedPhrases always means Score == 0.
type CategoryScore struct {
	Category       string   `json:"category"`
	Method         Method   `json:"method"`
	Score          float64  `json:"score"`
	Confidence     float64  `json:"confidence"`
	MatchedPhrases []string `json:"matched_phrases"`
	Explanation    string   `json:"explanation"`
	Degraded       bool     `json:"degraded,omitempty"`
}

func (c CategoryScore) clone() CategoryScore {
	c.MatchedPhrases = append([]string{}, c.MatchedPhrases...)
	return c
}

// QAReport is the scoring result for one call.
type QAReport struct {
	CallID               string              `json:"call_id,omitempty"`
	CallType             string              `json:"call_type,omitempty"`
	Thresholds           taxonomy.Thresholds `json:"thresholds"`
	KeywordHits          []keyword.Hit       `json:"keyword_hits"`
	RuleScores           []CategoryScore     `json:"rule_scores"`
	SemanticScores       []CategoryScore     `json:"semantic_scores"`
	OverallRuleScore     float64             `json:"overall_rule_score"`
	OverallSemanticScore float64             `json:"overall_semantic_score"`
	RuleBand             Band                `json:"rule_band"`
	SemanticBand         Band                `json:"semantic_band"`
	Degraded             bool                `json:"degraded"`
}

// Input is everything the Aggregator merges.
type Input struct {
	CallID         string
	CallType       string
	Thresholds     taxonomy.Thresholds
	KeywordHits    []keyword.Hit
	RuleScores     []CategoryScore
	SemanticScores []CategoryScore
}

// Aggregate builds a QAReport. Inputs are copied, so later changes to them never reach
// the report. Degraded semantic scores take the rule-based score, confidence and matched
// phrases of the same category. Aggregating identical input always yields an identical report.
func Aggregate(in Input) QAReport {
	r := QAReport{
		CallID:         in.CallID,
		CallType:       in.CallType,
		Thresholds:     in.Thresholds,
		KeywordHits:    append([]keyword.Hit{}, in.KeywordHits...),
		RuleScores:     make([]CategoryScore, len(in.RuleScores)),
		SemanticScores: make([]CategoryScore, len(in.SemanticScores)),
	}

	byCategory := make(map[string]CategoryScore, len(in.RuleScores))
	for i, s := range in.RuleScores {
		r.RuleScores[i] = s.clone()
		byCategory[s.Category] = s
	}

	for i, s := range in.SemanticScores {
		s = s.clone()
		if s.Degraded {
			r.Degraded = true
			s = fallback(s, byCategory[s.Category])
		}
		r.SemanticScores[i] = s
	}

	r.OverallRuleScore = mean(r.RuleScores)
	r.OverallSemanticScore = mean(r.SemanticScores)
	r.RuleBand = BandFor(r.OverallRuleScore)
	r.SemanticBand = BandFor(r.OverallSemanticScore)
	return r
}

func fallback(sem, rule CategoryScore) CategoryScore {
	sem.Method = MethodSemantic
	sem.Degraded = true
	sem.Score = rule.Score
	sem.Confidence = rule.Confidence
	sem.MatchedPhrases = append([]string{}, rule.MatchedPhrases...)
	sem.Explanation = DegradedPrefix
	if rule.Explanation != "" {
		sem.Explanation += ": " + rule.Explanation
	}
	return sem
}

// mean averages scores and rounds to two decimals; no scores yields 0.
func mean(scores []CategoryScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return math.Round(sum/float64(len(scores))*100) / 100
}

// Clone returns a deep copy of r.
func (r QAReport) Clone() QAReport {
	out := r
	out.KeywordHits = append([]keyword.Hit{}, r.KeywordHits...)
	out.RuleScores = make([]CategoryScore, len(r.RuleScores))
	for i, s := range r.RuleScores {
		out.RuleScores[i] = s.clone()
	}
	out.SemanticScores = make([]CategoryScore, len(r.SemanticScores))
	for i, s := range r.SemanticScores {
		out.SemanticScores[i] = s.clone()
	}
	return out
}
