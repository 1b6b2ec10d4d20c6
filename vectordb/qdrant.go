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


package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/ragflow/core"
)

// QdrantStore talks to a Qdrant deployment over its HTTP API.
type QdrantStore struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

type qdrantSearchResult struct {
	ID    any     `json:"id"`
	Score float64 `json:"score"`
}

// NewQdrantStore creates a store for the Qdrant instance at baseURL.
// The timeout is the hard per-request limit; exceeding it is a transient
// failure.
func NewQdrantStore(baseURL, apiKey string, timeout time.Duration) (*QdrantStore, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("qdrant base URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QdrantStore{
		client:  &http.Client{Timeout: timeout},
		baseURL: base,
		apiKey:  apiKey,
		logger:  slog.Default().With("component", "qdrant"),
	}, nil
}

// Search performs nearest-neighbour search scoped to collection. The score
// threshold is applied service-side and the native result ordering is
// preserved.
func (q *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64, filters map[string]string) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	request := map[string]any{
		"vector": vector,
		"limit":  topK,
	}
	if minScore > 0 {
		request["score_threshold"] = minScore
	}
	if filter := buildFilter(filters); filter != nil {
		request["filter"] = filter
	}

	var response struct {
		Result []qdrantSearchResult `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", collection)
	if err := q.doRequest(ctx, http.MethodPost, path, request, &response); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(response.Result))
	for _, res := range response.Result {
		if res.Score < minScore {
			continue
		}
		matches = append(matches, Match{ChunkID: fmt.Sprint(res.ID), Score: res.Score})
	}
	q.logger.Debug("vector search complete", "collection", collection, "hits", len(matches))
	return matches, nil
}

// CheckCollection verifies existence and dimensionality at startup so a
// misconfigured deployment fails fast instead of per-query.
func (q *QdrantStore) CheckCollection(ctx context.Context, collection string, dimension int) error {
	var response struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s", collection)
	if err := q.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		return err
	}
	if size := response.Result.Config.Params.Vectors.Size; size != dimension {
		return core.Fatal("vectordb",
			fmt.Errorf("%w: collection %q has size %d, expected %d", ErrDimensionMismatch, collection, size, dimension))
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance if missing.
func (q *QdrantStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", collection), body, nil)
}

// Close implements Store. The HTTP client holds no resources worth freeing.
func (q *QdrantStore) Close() error {
	return nil
}

func buildFilter(filters map[string]string) map[string]any {
	if len(filters) == 0 {
		return nil
	}
	must := make([]any, 0, len(filters))
	for key, val := range filters {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": val},
		})
	}
	return map[string]any{"must": must}
}

func (q *QdrantStore) doRequest(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return core.Fatal("vectordb", fmt.Errorf("marshal request: %w", err))
		}
		buf = bytes.NewReader(payload)
	} else {
		buf = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, buf)
	if err != nil {
		return core.Fatal("vectordb", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		// transport failures and client timeouts are worth retrying
		return core.Transient("vectordb", err)
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return core.Transient("vectordb", fmt.Errorf("read response: %w", readErr))
	}
	if resp.StatusCode >= 400 {
		return q.statusError(resp.StatusCode, payload)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return core.Fatal("vectordb", fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func (q *QdrantStore) statusError(status int, payload []byte) error {
	var apiErr struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	detail := ""
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		detail = apiErr.Status.Error
	}
	err := fmt.Errorf("status %d: %s", status, detail)

	switch {
	case status == http.StatusNotFound:
		return core.Fatal("vectordb", fmt.Errorf("%w: %w", ErrCollectionNotFound, err))
	case status == http.StatusTooManyRequests || status >= 500:
		return core.Transient("vectordb", err)
	default:
		return core.Fatal("vectordb", err)
	}
}

var _ Store = (*QdrantStore)(nil)
