package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *Record {
	return &Record{
		AnswerText:      "A maioria das avaliações elogia o prazo de entrega.",
		ConfidenceScore: 0.87,
		ModelID:         "gpt-4o-mini",
		InputTokens:     412,
		OutputTokens:    96,
		GeneratedAt:     time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC),
	}
}

func TestKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Key("olist_reviews", "qual o prazo?"), Key("olist_reviews", "qual o prazo?"))
	})

	t.Run("collection separates keys", func(t *testing.T) {
		assert.NotEqual(t, Key("a", "question"), Key("b", "question"))
	})

	t.Run("separator prevents boundary collisions", func(t *testing.T) {
		assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	})
}

func TestRecordCodec(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		original := sampleRecord()
		decoded, err := UnmarshalRecord(MarshalRecord(original))
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})

	t.Run("truncated data fails", func(t *testing.T) {
		data := MarshalRecord(sampleRecord())
		_, err := UnmarshalRecord(data[:3])
		assert.Error(t, err)
	})
}

func TestBadgerCache(t *testing.T) {
	ctx := context.Background()

	newCache := func(t *testing.T, ttl time.Duration) *BadgerCache {
		t.Helper()
		c, err := OpenBadger("", true, ttl)
		require.NoError(t, err)
		t.Cleanup(func() { c.Close() })
		return c
	}

	t.Run("miss is nil nil", func(t *testing.T) {
		c := newCache(t, time.Hour)
		record, err := c.Get(ctx, "olist_reviews", "pergunta inédita")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("set then get", func(t *testing.T) {
		c := newCache(t, time.Hour)
		original := sampleRecord()
		require.NoError(t, c.Set(ctx, "olist_reviews", "qual o prazo de entrega?", original))

		got, err := c.Get(ctx, "olist_reviews", "qual o prazo de entrega?")
		require.NoError(t, err)
		assert.Equal(t, original, got)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		c := newCache(t, time.Hour)
		require.NoError(t, c.Set(ctx, "olist_reviews", "pergunta", sampleRecord()))

		got, err := c.Get(ctx, "other_collection", "pergunta")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		c := newCache(t, time.Millisecond)
		require.NoError(t, c.Set(ctx, "olist_reviews", "pergunta", sampleRecord()))
		time.Sleep(10 * time.Millisecond)

		got, err := c.Get(ctx, "olist_reviews", "pergunta")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
