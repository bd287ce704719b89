package similarity

import "errors"

// Sentinel errors returned by similarity capabilities.
var (
	ErrCircuitOpen = errors.New("similarity circuit breaker is open")
	ErrUnavailable = errors.New("similarity capability unavailable")
)
