package mock

import (
	"context"

	"github.com/poiesic/ragflow/ai"
	"github.com/poiesic/ragflow/core"
)

// Generator is a test double for ai.Generator.
type Generator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, returns a canned grounded answer.
	GenerateFunc func(ctx context.Context, question string, passages []core.RetrievalResult) (*ai.GenerationResult, error)

	callCount int
}

// NewGenerator creates a mock generator returning a canned answer.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns the injected behavior or a canned result.
func (m *Generator) Generate(ctx context.Context, question string, passages []core.RetrievalResult) (*ai.GenerationResult, error) {
	m.callCount++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, question, passages)
	}
	return &ai.GenerationResult{
		AnswerText:       "Os principais motivos citados são atrasos na entrega e produtos danificados.",
		ModelID:          "mock-model",
		PromptTokens:     120,
		CompletionTokens: 40,
		SourcesUsed:      len(passages),
		Safe:             true,
	}, nil
}

// CallCount returns the number of times Generate was called.
func (m *Generator) CallCount() int {
	return m.callCount
}

var _ ai.Generator = (*Generator)(nil)
