// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/core"
	"github.com/poiesic/ragflow/storage"
	"github.com/poiesic/ragflow/vectordb"
)

// Retriever runs the similarity search for a query and joins the matches
// with their chunk text.
type Retriever struct {
	store  vectordb.Store
	chunks storage.ChunkRepository
	logger *slog.Logger
}

// NewRetriever creates a retriever over the given vector store and chunk
// repository.
func NewRetriever(store vectordb.Store, chunks storage.ChunkRepository) *Retriever {
	return &Retriever{
		store:  store,
		chunks: chunks,
		logger: slog.Default().With("component", "retrieval"),
	}
}

// Retrieve searches the collection for the topK nearest chunks to the query
// vector and returns them joined with chunk text, ranked 1..N in the vector
// store's order. Matches whose chunk row cannot be loaded are dropped and
// logged; the remaining results are re-ranked contiguously. An empty result
// set is returned as (nil, nil), not as an error.
func (r *Retriever) Retrieve(ctx context.Context, queryID uuid.UUID, vector []float32, collection string, topK int, minScore float64, filters map[string]string) ([]core.RetrievalResult, error) {
	matches, err := r.store.Search(ctx, collection, vector, topK, minScore, filters)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(matches) == 0 {
		r.logger.Debug("no matches above threshold", "queryID", queryID, "collection", collection)
		return nil, nil
	}

	results := make([]core.RetrievalResult, 0, len(matches))
	for _, match := range matches {
		chunkID, err := uuid.Parse(match.ChunkID)
		if err != nil {
			r.logger.Warn("dropping match with malformed chunk id",
				"queryID", queryID, "chunkID", match.ChunkID)
			continue
		}
		chunk, err := r.chunks.GetChunk(ctx, chunkID)
		if err != nil {
			r.logger.Warn("dropping match with unloadable chunk",
				"queryID", queryID, "chunkID", chunkID, "error", err)
			continue
		}
		results = append(results, core.RetrievalResult{
			QueryID:         queryID,
			ChunkID:         chunkID,
			TextContent:     chunk.TextContent,
			Metadata:        chunk.Metadata,
			SimilarityScore: match.Score,
			Rank:            len(results) + 1,
		})
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results, nil
}
