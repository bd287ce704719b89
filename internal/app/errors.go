package service

import "errors"

// Lifecycle errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrStopped    = errors.New("service stopped")
)
