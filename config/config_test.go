package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.7, cfg.EscalationThreshold)
	assert.Equal(t, 1536, cfg.VectorDimension)
	assert.Equal(t, "olist_reviews", cfg.DefaultCollection)
	assert.Equal(t, 10, cfg.Concurrency)
}

func TestNewWithOptions(t *testing.T) {
	cfg := New(
		WithEscalationThreshold(0.5),
		WithConcurrency(2),
		WithRetry(1, 10*time.Millisecond),
		WithCallTimeout(time.Second),
		WithTopK(5),
	)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.5, cfg.EscalationThreshold)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 1, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.CallTimeout)
	assert.Equal(t, 5, cfg.TopK)
}

func TestValidate(t *testing.T) {
	t.Run("zero dimension", func(t *testing.T) {
		cfg := Default()
		cfg.VectorDimension = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := New(WithEscalationThreshold(1.5))
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero concurrency", func(t *testing.T) {
		cfg := New(WithConcurrency(0))
		assert.Error(t, cfg.Validate())
	})

	t.Run("top_k above cap", func(t *testing.T) {
		cfg := New(WithTopK(51))
		assert.Error(t, cfg.Validate())
	})

	t.Run("max length below min", func(t *testing.T) {
		cfg := Default()
		cfg.MaxQueryLength = 2
		assert.Error(t, cfg.Validate())
	})
}

func TestFromEnv(t *testing.T) {
	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("CONFIDENCE_THRESHOLD", "0.85")
		t.Setenv("QUERY_CONCURRENCY", "4")
		t.Setenv("DEFAULT_COLLECTION", "support_articles")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, 0.85, cfg.EscalationThreshold)
		assert.Equal(t, 4, cfg.Concurrency)
		assert.Equal(t, "support_articles", cfg.DefaultCollection)
	})

	t.Run("invalid numeric value", func(t *testing.T) {
		t.Setenv("QUERY_CONCURRENCY", "many")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("options win over environment", func(t *testing.T) {
		t.Setenv("CONFIDENCE_THRESHOLD", "0.85")
		cfg, err := FromEnv(WithEscalationThreshold(0.6))
		require.NoError(t, err)
		assert.Equal(t, 0.6, cfg.EscalationThreshold)
	})
}
