package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/ragflow/ai"
	"github.com/poiesic/ragflow/config"
	"github.com/poiesic/ragflow/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client     llms.Model
	cfg        *config.Config
	countToken tokenCounter
	logger     *slog.Logger
}

// NewGenerator creates a generator bound to the configured completion model.
func NewGenerator(cfg *config.Config) (*Generator, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithToken(token(cfg)),
		openai.WithModel(cfg.CompletionModel),
	)
	if err != nil {
		return nil, err
	}
	return &Generator{
		client:     client,
		cfg:        cfg,
		countToken: newTokenCounter(),
		logger:     slog.Default().With("component", "openai-generator"),
	}, nil
}

// Generate composes the grounded prompt and calls the completion service.
// Escalation is not decided here: generation and confidence policy are
// deliberately separate concerns.
func (g *Generator) Generate(ctx context.Context, question string, passages []core.RetrievalResult) (*ai.GenerationResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, core.Fatal("completion", fmt.Errorf("question cannot be empty"))
	}

	kept := fitToBudget(passages, g.cfg.ContextTokenBudget, g.countToken)
	if len(kept) < len(passages) {
		g.logger.Debug("context truncated to token budget",
			"kept", len(kept), "dropped", len(passages)-len(kept))
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildUserPrompt(question, kept)),
	}

	var resp *llms.ContentResponse
	err := withRetry(ctx, g.cfg.RetryAttempts, g.cfg.RetryBaseDelay, g.cfg.CallTimeout, func(ctx context.Context) error {
		out, callErr := g.client.GenerateContent(ctx, content,
			llms.WithTemperature(g.cfg.Temperature),
			llms.WithMaxTokens(g.cfg.MaxAnswerTokens),
		)
		if callErr != nil {
			return classify("completion", callErr)
		}
		if len(out.Choices) == 0 {
			return core.Fatal("completion", ErrEmptyCompletion)
		}
		resp = out
		return nil
	})
	if err != nil {
		g.logger.Error("answer generation exhausted retries", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrGenerationFailed, err)
	}

	choice := resp.Choices[0]
	answer := strings.TrimSpace(choice.Content)

	safe, reason := screenAnswer(answer)
	if !safe {
		g.logger.Warn("generated answer failed safety screen, replacing", "reason", reason)
		answer = refusalResponse
	}

	result := &ai.GenerationResult{
		AnswerText:       answer,
		ModelID:          g.cfg.CompletionModel,
		PromptTokens:     usageCount(choice, "PromptTokens"),
		CompletionTokens: usageCount(choice, "CompletionTokens"),
		SourcesUsed:      len(kept),
		Safe:             safe,
	}
	g.logger.Debug("answer generated",
		"length", len(answer), "sources", result.SourcesUsed,
		"promptTokens", result.PromptTokens, "completionTokens", result.CompletionTokens)
	return result, nil
}

// usageCount pulls a token counter out of the provider's generation info.
func usageCount(choice *llms.ContentChoice, key string) int {
	if choice.GenerationInfo == nil {
		return 0
	}
	if n, ok := choice.GenerationInfo[key].(int); ok {
		return n
	}
	return 0
}

var _ ai.Generator = (*Generator)(nil)
