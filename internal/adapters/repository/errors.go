package repository

import "errors"

// Store errors.
var (
	ErrNotFound     = errors.New("call not found")
	ErrInvalidLimit = errors.New("invalid review limit")
	ErrEmptyCallID  = errors.New("record has no call id")
)
