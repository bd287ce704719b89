package taxonomy

import "errors"

// Sentinel errors for taxonomy and threshold validation.
var (
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrEmptyTaxonomy    = errors.New("taxonomy has no categories and no keywords")
)
