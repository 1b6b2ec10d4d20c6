package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/ragflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, classify("embedding", nil))
	})

	t.Run("transient signals", func(t *testing.T) {
		for _, msg := range []string{
			"rate limit exceeded",
			"request timed out",
			"API returned unexpected status code: 503",
			"connection refused",
		} {
			err := classify("embedding", errors.New(msg))
			assert.True(t, core.IsTransient(err), msg)
		}
	})

	t.Run("deadline exceeded is transient", func(t *testing.T) {
		err := classify("completion", context.DeadlineExceeded)
		assert.True(t, core.IsTransient(err))
	})

	t.Run("auth failure is fatal", func(t *testing.T) {
		err := classify("embedding", errors.New("incorrect API key provided"))
		assert.True(t, core.IsFatal(err))
	})

	t.Run("cancellation passes through unclassified", func(t *testing.T) {
		err := classify("embedding", context.Canceled)
		assert.False(t, core.IsTransient(err))
		assert.False(t, core.IsFatal(err))
	})
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, 3, time.Millisecond, time.Second, func(context.Context) error {
			calls++
			if calls < 3 {
				return core.Transient("test", errors.New("rate limit"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("fatal error aborts immediately", func(t *testing.T) {
		calls := 0
		fatal := core.Fatal("test", errors.New("bad auth"))
		err := withRetry(ctx, 3, time.Millisecond, time.Second, func(context.Context) error {
			calls++
			return fatal
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.True(t, core.IsFatal(err))
	})

	t.Run("budget exhaustion surfaces last error", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, 3, time.Millisecond, time.Second, func(context.Context) error {
			calls++
			return core.Transient("test", errors.New("timeout"))
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.True(t, core.IsTransient(err))
	})
}
