package queue

import "errors"

// Queue errors.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
