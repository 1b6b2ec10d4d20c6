package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/core"
	storagemock "github.com/poiesic/ragflow/storage/mock"
	"github.com/poiesic/ragflow/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChunk(store *storagemock.MockStore, text string) uuid.UUID {
	id := uuid.New()
	store.SeedChunk(&core.Chunk{
		ID:          id,
		DocumentID:  uuid.New(),
		TextContent: text,
		Metadata:    map[string]string{"category": "electronics"},
	})
	return id
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	queryID := uuid.New()
	vector := []float32{0.1, 0.2, 0.3}

	t.Run("joins matches with chunk text in store order", func(t *testing.T) {
		repo := storagemock.NewMockStore()
		first := seedChunk(repo, "produto excelente")
		second := seedChunk(repo, "entrega atrasada")

		vs := &vectordb.MockStore{
			SearchFunc: func(ctx context.Context, collection string, vec []float32, topK int, minScore float64, filters map[string]string) ([]vectordb.Match, error) {
				return []vectordb.Match{
					{ChunkID: first.String(), Score: 0.92},
					{ChunkID: second.String(), Score: 0.85},
				}, nil
			},
		}

		results, err := NewRetriever(vs, repo).Retrieve(ctx, queryID, vector, "olist_reviews", 10, 0.5, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, 1, results[0].Rank)
		assert.Equal(t, first, results[0].ChunkID)
		assert.Equal(t, "produto excelente", results[0].TextContent)
		assert.Equal(t, 0.92, results[0].SimilarityScore)
		assert.Equal(t, 2, results[1].Rank)
		assert.Equal(t, "entrega atrasada", results[1].TextContent)
		require.NoError(t, core.ValidateRetrievalResults(results))
	})

	t.Run("empty search result is nil not error", func(t *testing.T) {
		vs := &vectordb.MockStore{
			SearchFunc: func(ctx context.Context, collection string, vec []float32, topK int, minScore float64, filters map[string]string) ([]vectordb.Match, error) {
				return nil, nil
			},
		}
		results, err := NewRetriever(vs, storagemock.NewMockStore()).Retrieve(ctx, queryID, vector, "olist_reviews", 10, 0.5, nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("unloadable chunk is dropped and ranks stay contiguous", func(t *testing.T) {
		repo := storagemock.NewMockStore()
		kept := seedChunk(repo, "kept")
		missing := uuid.New()

		vs := &vectordb.MockStore{
			SearchFunc: func(ctx context.Context, collection string, vec []float32, topK int, minScore float64, filters map[string]string) ([]vectordb.Match, error) {
				return []vectordb.Match{
					{ChunkID: missing.String(), Score: 0.95},
					{ChunkID: kept.String(), Score: 0.80},
				}, nil
			},
		}

		results, err := NewRetriever(vs, repo).Retrieve(ctx, queryID, vector, "olist_reviews", 10, 0.5, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 1, results[0].Rank)
		assert.Equal(t, kept, results[0].ChunkID)
	})

	t.Run("malformed chunk id is dropped", func(t *testing.T) {
		repo := storagemock.NewMockStore()
		kept := seedChunk(repo, "kept")

		vs := &vectordb.MockStore{
			SearchFunc: func(ctx context.Context, collection string, vec []float32, topK int, minScore float64, filters map[string]string) ([]vectordb.Match, error) {
				return []vectordb.Match{
					{ChunkID: "not-a-uuid", Score: 0.9},
					{ChunkID: kept.String(), Score: 0.8},
				}, nil
			},
		}

		results, err := NewRetriever(vs, repo).Retrieve(ctx, queryID, vector, "olist_reviews", 10, 0.5, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("search failure propagates", func(t *testing.T) {
		searchErr := core.Transient("vectordb", errors.New("connection refused"))
		vs := &vectordb.MockStore{
			SearchFunc: func(ctx context.Context, collection string, vec []float32, topK int, minScore float64, filters map[string]string) ([]vectordb.Match, error) {
				return nil, searchErr
			},
		}
		results, err := NewRetriever(vs, storagemock.NewMockStore()).Retrieve(ctx, queryID, vector, "olist_reviews", 10, 0.5, nil)
		require.Error(t, err)
		assert.Nil(t, results)
		assert.True(t, core.IsTransient(err))
	})

	t.Run("all matches dropped collapses to nil", func(t *testing.T) {
		vs := &vectordb.MockStore{
			SearchFunc: func(ctx context.Context, collection string, vec []float32, topK int, minScore float64, filters map[string]string) ([]vectordb.Match, error) {
				return []vectordb.Match{{ChunkID: uuid.New().String(), Score: 0.9}}, nil
			},
		}
		results, err := NewRetriever(vs, storagemock.NewMockStore()).Retrieve(ctx, queryID, vector, "olist_reviews", 10, 0.5, nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})
}
