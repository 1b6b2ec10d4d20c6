package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorClassification(t *testing.T) {
	base := errors.New("connection timed out")

	t.Run("transient", func(t *testing.T) {
		err := Transient("embedding", base)
		assert.True(t, IsTransient(err))
		assert.False(t, IsFatal(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("fatal", func(t *testing.T) {
		err := Fatal("embedding", base)
		assert.True(t, IsFatal(err))
		assert.False(t, IsTransient(err))
	})

	t.Run("wrapped classification survives", func(t *testing.T) {
		err := fmt.Errorf("pipeline step: %w", Transient("vectordb", base))
		assert.True(t, IsTransient(err))
	})

	t.Run("plain error is neither", func(t *testing.T) {
		assert.False(t, IsTransient(base))
		assert.False(t, IsFatal(base))
	})

	t.Run("message includes service and kind", func(t *testing.T) {
		err := Transient("completion", base)
		assert.Contains(t, err.Error(), "completion")
		assert.Contains(t, err.Error(), "transient")
	})
}
