package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/ragflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/olist_reviews/points/search", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 3, req["limit"])

		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "aaaaaaaa-0000-0000-0000-000000000001", "score": 0.91},
				{"id": "aaaaaaaa-0000-0000-0000-000000000002", "score": 0.85},
				{"id": "aaaaaaaa-0000-0000-0000-000000000003", "score": 0.85},
			},
			"status": "ok",
		})
	}))
	defer server.Close()

	store, err := NewQdrantStore(server.URL, "", time.Second)
	require.NoError(t, err)

	matches, err := store.Search(context.Background(), "olist_reviews", []float32{0.1, 0.2}, 3, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// native ordering preserved, ties not re-sorted
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000001", matches[0].ChunkID)
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000002", matches[1].ChunkID)
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000003", matches[2].ChunkID)
	assert.Equal(t, 0.91, matches[0].Score)
}

func TestQdrantSearchEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": []any{}, "status": "ok"})
	}))
	defer server.Close()

	store, err := NewQdrantStore(server.URL, "", time.Second)
	require.NoError(t, err)

	matches, err := store.Search(context.Background(), "olist_reviews", []float32{0.1}, 5, 0.9, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQdrantErrors(t *testing.T) {
	t.Run("collection not found is fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"status": map[string]any{"error": "collection missing"}})
		}))
		defer server.Close()

		store, err := NewQdrantStore(server.URL, "", time.Second)
		require.NoError(t, err)

		_, err = store.Search(context.Background(), "missing", []float32{0.1}, 5, 0, nil)
		assert.ErrorIs(t, err, ErrCollectionNotFound)
		assert.True(t, core.IsFatal(err))
	})

	t.Run("service unavailable is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		store, err := NewQdrantStore(server.URL, "", time.Second)
		require.NoError(t, err)

		_, err = store.Search(context.Background(), "olist_reviews", []float32{0.1}, 5, 0, nil)
		assert.True(t, core.IsTransient(err))
	})
}

func TestQdrantCheckCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/olist_reviews", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"config": map[string]any{
					"params": map[string]any{
						"vectors": map[string]any{"size": 1536, "distance": "Cosine"},
					},
				},
			},
		})
	}))
	defer server.Close()

	store, err := NewQdrantStore(server.URL, "", time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, store.CheckCollection(ctx, "olist_reviews", 1536))

	err = store.CheckCollection(ctx, "olist_reviews", 768)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.True(t, core.IsFatal(err))
}
