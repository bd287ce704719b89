package similarity

import (
	"context"
	"math"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/transcript"
)

// stopwords carry no meaning for overlap scoring.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "to": true, "of": true, "is": true,
	"it": true, "i": true, "you": true, "we": true, "that": true, "this": true, "for": true,
	"in": true, "on": true, "be": true, "are": true, "with": true, "will": true, "can": true,
}

// Lexical is an offline capability: cosine similarity of normalised word counts,
// ignoring stopwords. It needs no embedding backend.
type Lexical struct{}

var _ Capability = Lexical{}

// Similarity implements Capability.
func (Lexical) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	va, vb := bag(a), bag(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0, nil
	}
	var dot, na, nb float64
	for w, x := range va {
		na += x * x
		dot += x * vb[w]
	}
	for _, y := range vb {
		nb += y * y
	}
	return Clamp(dot / math.Sqrt(na*nb))
}

func bag(s string) map[string]float64 {
	out := make(map[string]float64)
	for _, w := range transcript.NormalizePhrase(s) {
		if !stopwords[w] {
			out[w]++
		}
	}
	return out
}
