package openai

import "errors"

var (
	// ErrConfigRequired indicates a constructor was called without a config.
	ErrConfigRequired = errors.New("config is required")

	// ErrEmptyInput indicates an embedding was requested for empty text.
	ErrEmptyInput = errors.New("cannot embed empty input")

	// ErrDimensionMismatch indicates the service returned a vector of the
	// wrong dimensionality for this deployment.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyCompletion indicates the completion service returned no choices.
	ErrEmptyCompletion = errors.New("completion service returned no choices")
)
