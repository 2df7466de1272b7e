package dataset

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrMissingColumn     = errors.New("missing required column")
)
