package apperrors

import "errors"

// Conditions absorbed inside the editing core. Callers log them and move on.
var (
	ErrInvalidRange      = errors.New("invalid range")
	ErrUnterminatedEpoch = errors.New("unterminated epoch")
	ErrUnknownMarker     = errors.New("unknown marker")
	ErrOutOfBounds       = errors.New("navigation out of bounds")
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrNoDataset     = errors.New("no dataset open")
	ErrNoAggregator  = errors.New("statistics aggregator is not configured")
	ErrDatasetExists = errors.New("dataset already open")
)
