package guardrails

import "errors"

var (
	// ErrConfigRequired indicates NewValidator was called without a config.
	ErrConfigRequired = errors.New("config is required")

	// ErrAuditSinkRequired indicates NewValidator was called without an audit sink.
	ErrAuditSinkRequired = errors.New("audit sink is required")

	// ErrInvalidCollectionName indicates a collection name failed validation.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)
