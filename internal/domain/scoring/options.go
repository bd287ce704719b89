package scoring

import (
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSemanticTimeout bounds semantic scoring per call. Zero disables the bound.
func WithSemanticTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.semanticTimeout = d
		}
	}
}

// WithConcurrency sets how many calls ScoreBatch scores at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
