package taxonomy

import "github.com/massimocristi1970/CallAnalysisApp/pkg/logger"

type options struct {
	log logger.Logger
}

// Option configures taxonomy construction.
type Option func(*options)

// WithLogger reports skipped entries to l.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
