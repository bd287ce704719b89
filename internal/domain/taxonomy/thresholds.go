package taxonomy

import (
	"fmt"
	"math"
)

// Default threshold values.
const (
	DefaultFuzzyThreshold             = 85
	DefaultSemanticThreshold          = 0.70
	DefaultKeywordConfidenceThreshold = 0.80
)

// Thresholds are the numeric cut-offs shared by every scorer.
type Thresholds struct {
	// Fuzzy is the minimum string-similarity percentage for a near match, in [0,100].
	Fuzzy int `json:"fuzzy_threshold" yaml:"fuzzy_threshold"`
	// Semantic is the minimum similarity for a concept match, in [0,1].
	Semantic float64 `json:"semantic_threshold" yaml:"semantic_threshold"`
	// KeywordConfidence discards any phrase match below it, in [0,1].
	KeywordConfidence float64 `json:"keyword_confidence_threshold" yaml:"keyword_confidence_threshold"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Fuzzy:             DefaultFuzzyThreshold,
		Semantic:          DefaultSemanticThreshold,
		KeywordConfidence: DefaultKeywordConfidenceThreshold,
	}
}

// Validate rejects out-of-range thresholds. Scoring must not start with invalid values.
func (t Thresholds) Validate() error {
	if t.Fuzzy < 0 || t.Fuzzy > 100 {
		return fmt.Errorf("%w: fuzzy_threshold %d outside [0,100]", ErrInvalidThreshold, t.Fuzzy)
	}
	if !unit(t.Semantic) {
		return fmt.Errorf("%w: semantic_threshold %v outside [0,1]", ErrInvalidThreshold, t.Semantic)
	}
	if !unit(t.KeywordConfidence) {
		return fmt.Errorf("%w: keyword_confidence_threshold %v outside [0,1]", ErrInvalidThreshold, t.KeywordConfidence)
	}
	return nil
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
