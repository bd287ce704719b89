package semantic

import "github.com/massimocristi1970/CallAnalysisApp/pkg/logger"

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger used to report degraded categories.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}
