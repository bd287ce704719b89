package report

import (
	"fmt"
)

// Method is the closed set of scoring methods.
type Method int

// Scoring methods.
const (
	MethodRule Method = iota + 1
	MethodSemantic
)

func (m Method) String() string {
	switch m {
	case MethodRule:
		return "rule"
	case MethodSemantic:
		return "semantic"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	switch m {
	case MethodRule, MethodSemantic:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("report: unknown method %d", int(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	switch string(b) {
	case "rule", "rule_based":
		*m = MethodRule
	case "semantic", "nlp_enhanced":
		*m = MethodSemantic
	default:
		return fmt.Errorf("report: unknown method %q", b)
	}
	return nil
}

// Band is the human-readable verdict for a score.
type Band int

// Verdict bands, best first.
const (
	BandExcellent Band = iota + 1
	BandGood
	BandAverage
	BandNeedsImprovement
)

// Band lower bounds (inclusive).
const (
	ExcellentFrom = 80
	GoodFrom      = 60
	AverageFrom   = 40
)

// BandFor maps a 0-100 score to its verdict band.
func BandFor(score float64) Band {
	switch {
	case score >= ExcellentFrom:
		return BandExcellent
	case score >= GoodFrom:
		return BandGood
	case score >= AverageFrom:
		return BandAverage
	default:
		return BandNeedsImprovement
	}
}

func (b Band) String() string {
	switch b {
	case BandExcellent:
		return "Excellent"
	case BandGood:
		return "Good"
	case BandAverage:
		return "Average"
	case BandNeedsImprovement:
		return "NeedsImprovement"
	}
	return fmt.Sprintf("Band(%d)", int(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b Band) MarshalText() ([]byte, error) {
	if b < BandExcellent || b > BandNeedsImprovement {
		return nil, fmt.Errorf("report: unknown band %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Band) UnmarshalText(text []byte) error {
	for c := BandExcellent; c <= BandNeedsImprovement; c++ {
		if c.String() == string(text) {
			*b = c
			return nil
		}
	}
	return fmt.Errorf("report: unknown band %q", text)
}
