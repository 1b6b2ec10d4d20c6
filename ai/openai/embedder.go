package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/ragflow/ai"
	"github.com/poiesic/ragflow/config"
	"github.com/poiesic/ragflow/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder  embeddings.Embedder
	dimension int
	cfg       *config.Config
	logger    *slog.Logger
}

// NewEmbedder creates an embedder bound to the configured model and
// dimensionality.
func NewEmbedder(cfg *config.Config) (*Embedder, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithToken(token(cfg)),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder:  embedder,
		dimension: cfg.VectorDimension,
		cfg:       cfg,
		logger:    slog.Default().With("component", "openai-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string,
// retrying transient failures within the configured budget.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, core.Fatal("embedding", ErrEmptyInput)
	}

	var vector []float32
	err := withRetry(ctx, e.cfg.RetryAttempts, e.cfg.RetryBaseDelay, e.cfg.CallTimeout, func(ctx context.Context) error {
		vectors, callErr := e.embedder.EmbedDocuments(ctx, []string{text})
		if callErr != nil {
			return classify("embedding", callErr)
		}
		if len(vectors) == 0 {
			return core.Fatal("embedding", fmt.Errorf("service returned no vectors"))
		}
		vector = vectors[0]
		return nil
	})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if err := e.checkDimension(vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedTexts generates embeddings for multiple texts in one batch call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, core.Fatal("embedding", ErrEmptyInput)
	}

	var vectors [][]float32
	err := withRetry(ctx, e.cfg.RetryAttempts, e.cfg.RetryBaseDelay, e.cfg.CallTimeout, func(ctx context.Context) error {
		out, callErr := e.embedder.EmbedDocuments(ctx, texts)
		if callErr != nil {
			return classify("embedding", callErr)
		}
		if len(out) != len(texts) {
			return core.Fatal("embedding", fmt.Errorf("got %d vectors for %d texts", len(out), len(texts)))
		}
		vectors = out
		return nil
	})
	if err != nil {
		e.logger.Error("failed to generate batch embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	for _, v := range vectors {
		if err := e.checkDimension(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// checkDimension enforces the configured dimensionality. A mismatch means
// the deployment is pointed at the wrong model or collection; retrying
// cannot fix that.
func (e *Embedder) checkDimension(vector []float32) error {
	if len(vector) != e.dimension {
		err := core.Fatal("embedding",
			fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vector), e.dimension))
		e.logger.Error("embedding dimension mismatch", "got", len(vector), "expected", e.dimension)
		return err
	}
	return nil
}

// token returns the API token, or a placeholder accepted by local
// OpenAI-compatible services that don't require authentication.
func token(cfg *config.Config) string {
	if cfg.OpenAIAPIKey != "" {
		return cfg.OpenAIAPIKey
	}
	return "none"
}

var _ ai.Embedder = (*Embedder)(nil)
