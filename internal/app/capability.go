package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/embeddings/ollama"
	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/embeddings/openai"
	"github.com/massimocristi1970/CallAnalysisApp/internal/config"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/similarity"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

// Similarity call outcomes as recorded in metrics.
const (
	statusOK          = "ok"
	statusError       = "error"
	statusCircuitOpen = "circuit_open"
	statusCancelled   = "cancelled"
)

// buildCapability constructs the configured similarity backend. Remote backends are
// wrapped in a circuit breaker. A nil capability means semantic scoring always degrades.
func buildCapability(cfg *config.Config, log logger.Logger) (similarity.Capability, *similarity.Breaker, error) {
	var embedder similarity.Embedder
	switch cfg.SimilarityProvider {
	case config.ProviderNone:
		return nil, nil, nil
	case config.ProviderLexical:
		return similarity.Lexical{}, nil, nil
	case config.ProviderOpenAI:
		opts := []openai.Option{openai.WithTimeout(cfg.SimilarityTimeout())}
		if cfg.SimilarityBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.SimilarityBaseURL))
		}
		p, err := openai.New(cfg.SimilarityAPIKey, cfg.SimilarityModel, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("similarity provider %q: %w", cfg.SimilarityProvider, err)
		}
		embedder = p
	case config.ProviderOllama:
		embedder = ollama.New(cfg.SimilarityBaseURL, cfg.SimilarityModel, ollama.WithTimeout(cfg.SimilarityTimeout()))
	default:
		return nil, nil, fmt.Errorf("%w: unknown similarity provider %q", config.ErrInvalidConfig, cfg.SimilarityProvider)
	}

	breaker := similarity.NewBreaker(
		similarity.NewEmbedding(embedder, similarity.WithCacheSize(cfg.EmbeddingCacheSize)),
		similarity.BreakerConfig{
			Name:         cfg.SimilarityProvider,
			MaxFailures:  cfg.BreakerMaxFailures,
			ResetTimeout: cfg.BreakerReset(),
			OnStateChange: func(s similarity.State) {
				metrics.UpdateBreakerState(int(s))
			},
			Logger: log,
		})
	metrics.UpdateBreakerState(int(similarity.StateClosed))
	return breaker, breaker, nil
}

// meteredCapability records the outcome of every similarity call.
type meteredCapability struct {
	next     similarity.Capability
	provider string
}

var (
	_ similarity.Capability = (*meteredCapability)(nil)
	_ similarity.Preparer   = (*meteredCapability)(nil)
)

func metered(next similarity.Capability, provider string) similarity.Capability {
	if next == nil {
		return nil
	}
	return &meteredCapability{next: next, provider: provider}
}

func (m *meteredCapability) Similarity(ctx context.Context, a, b string) (float64, error) {
	v, err := m.next.Similarity(ctx, a, b)
	metrics.RecordSimilarityCall(m.provider, outcome(err))
	return v, err
}

func (m *meteredCapability) Prepare(ctx context.Context, texts []string) error {
	p, ok := m.next.(similarity.Preparer)
	if !ok {
		return nil
	}
	err := p.Prepare(ctx, texts)
	if err != nil {
		metrics.RecordSimilarityCall(m.provider, outcome(err))
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, similarity.ErrCircuitOpen):
		return statusCircuitOpen
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusCancelled
	}
	return statusError
}
