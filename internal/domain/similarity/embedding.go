package similarity

import (
	"context"
	"crypto/sha1" //nolint:gosec // cache key only
	"encoding/hex"
	"fmt"
	"sync"
)

const defaultCacheSize = 4096

// Embedder turns text into dense vectors. Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// Embedding scores texts by the cosine of their embeddings. Vectors are memoised per
// model and text; negative cosines clamp to 0.
type Embedding struct {
	embedder Embedder
	maxCache int

	mu    sync.RWMutex
	cache map[string][]float32
}

var (
	_ Capability = (*Embedding)(nil)
	_ Preparer   = (*Embedding)(nil)
)

// EmbeddingOption configures an Embedding capability.
type EmbeddingOption func(*Embedding)

// WithCacheSize bounds the number of memoised vectors. The memo is cleared when full.
func WithCacheSize(n int) EmbeddingOption {
	return func(e *Embedding) {
		if n > 0 {
			e.maxCache = n
		}
	}
}

// NewEmbedding wraps an Embedder as a Capability.
func NewEmbedding(embedder Embedder, opts ...EmbeddingOption) *Embedding {
	e := &Embedding{
		embedder: embedder,
		maxCache: defaultCacheSize,
		cache:    make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Embedding) key(text string) string {
	sum := sha1.Sum([]byte(e.embedder.ModelID() + "\x00" + text)) //nolint:gosec // cache key only
	return hex.EncodeToString(sum[:])
}

func (e *Embedding) lookup(text string) ([]float32, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.cache[e.key(text)]
	return v, ok
}

func (e *Embedding) store(text string, v []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.cache) >= e.maxCache {
		e.cache = make(map[string][]float32)
	}
	e.cache[e.key(text)] = v
}

// Prepare embeds every text not yet memoised in a single batch call.
func (e *Embedding) Prepare(ctx context.Context, texts []string) error {
	seen := make(map[string]bool, len(texts))
	var missing []string
	for _, t := range texts {
		if seen[t] {
			continue
		}
		seen[t] = true
		if _, ok := e.lookup(t); !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	vecs, err := e.embedder.EmbedBatch(ctx, missing)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(vecs) != len(missing) {
		return fmt.Errorf("%w: expected %d vectors, got %d", ErrUnavailable, len(missing), len(vecs))
	}
	for i, t := range missing {
		e.store(t, vecs[i])
	}
	return nil
}

func (e *Embedding) vector(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.lookup(text); ok {
		return v, nil
	}
	v, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	e.store(text, v)
	return v, nil
}

// Similarity implements Capability.
func (e *Embedding) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	va, err := e.vector(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := e.vector(ctx, b)
	if err != nil {
		return 0, err
	}
	return Clamp(Cosine(va, vb))
}
