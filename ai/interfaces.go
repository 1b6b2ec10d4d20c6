package ai

import (
	"context"

	"github.com/poiesic/ragflow/core"
)

// Embedder converts text into fixed-length vectors via an external
// embedding service. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Used on the query path, where latency matters more than throughput.
	// The returned vector has exactly the configured dimensionality; a
	// mismatch from the service is a fatal configuration error.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple texts in one call,
	// amortizing external call overhead at ingestion time. The returned
	// slice preserves input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator composes a grounded prompt from retrieved passages and calls
// an external completion service. Implementations must be thread-safe.
type Generator interface {
	// Generate produces an answer for the question using the rank-ordered
	// context passages. Passages may be empty, in which case the prompt
	// states that no context is available. Transient failures are retried
	// internally; on exhaustion the error wraps core.ErrGenerationFailed
	// rather than fabricating an answer.
	Generate(ctx context.Context, question string, passages []core.RetrievalResult) (*GenerationResult, error)
}

// GenerationResult carries the generated answer plus the telemetry the
// orchestrator persists on the Answer record.
type GenerationResult struct {
	// AnswerText is the generated answer. When the safety screen fires it
	// holds the fixed refusal response instead of the model output.
	AnswerText string

	// ModelID identifies the completion model that produced the answer.
	ModelID string

	// PromptTokens and CompletionTokens are the usage counters reported by
	// the completion service.
	PromptTokens     int
	CompletionTokens int

	// SourcesUsed is the number of context passages that survived the
	// token-budget truncation and reached the prompt.
	SourcesUsed int

	// Safe is false when the raw model output leaked system information
	// and was replaced by the refusal response.
	Safe bool
}
