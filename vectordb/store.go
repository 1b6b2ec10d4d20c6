package vectordb

import (
	"context"
	"errors"
)

// Match is one nearest-neighbour hit from the vector-similarity service.
// Matches are kept in the service's native order: when scores tie, the
// service ordering is stable and no secondary sort key is invented.
type Match struct {
	// ChunkID is the point id, which this system keys to chunk rows.
	ChunkID string
	// Score is the cosine similarity in [0,1].
	Score float64
}

// Store is the narrow interface the retriever needs from the
// vector-similarity service.
type Store interface {
	// Search returns up to topK matches for the query vector in the named
	// collection, discarding results below minScore. An empty result is
	// not an error.
	Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64, filters map[string]string) ([]Match, error)

	// CheckCollection verifies the collection exists and carries the
	// expected dimensionality. A mismatch is a fatal configuration error.
	CheckCollection(ctx context.Context, collection string, dimension int) error

	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Close releases client resources.
	Close() error
}

var (
	// ErrCollectionNotFound indicates the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates the collection's vector size differs
	// from the configured dimensionality.
	ErrDimensionMismatch = errors.New("collection dimension mismatch")
)
