package worker

import "errors"

var (
	// ErrMalformedMessage indicates a broker message that can never be
	// processed: not JSON, missing the question, or schema-mismatched.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrConsumerClosed indicates the delivery channel closed underneath
	// the consumer, usually a lost broker connection.
	ErrConsumerClosed = errors.New("consumer channel closed")
)
