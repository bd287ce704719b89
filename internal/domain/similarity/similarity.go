// Package similarity provides text-similarity capabilities for semantic scoring.
//
// A Capability maps two strings to a score in [0,1]. Implementations must be safe for
// concurrent use. Embedding-backed capabilities may also implement Preparer so that
// every text of a transcript is embedded in one batch before pairwise comparison.
package similarity

import (
	"context"
	"fmt"
	"math"
)

// Capability scores how close two texts are in meaning.
type Capability interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Preparer is implemented by capabilities that benefit from seeing every text up front.
type Preparer interface {
	Prepare(ctx context.Context, texts []string) error
}

// Func adapts a plain function to Capability.
type Func func(ctx context.Context, a, b string) (float64, error)

// Similarity implements Capability.
func (f Func) Similarity(ctx context.Context, a, b string) (float64, error) { return f(ctx, a, b) }

// Clamp bounds v to [0,1]. NaN is reported as an error so callers can degrade.
func Clamp(v float64) (float64, error) {
	switch {
	case math.IsNaN(v):
		return 0, fmt.Errorf("%w: similarity is NaN", ErrUnavailable)
	case v < 0:
		return 0, nil
	case v > 1:
		return 1, nil
	}
	return v, nil
}

// Cosine returns the cosine similarity of two vectors; zero or mismatched vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
