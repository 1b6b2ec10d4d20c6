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


package core

import (
	"fmt"
	"strings"
)

// ValidateQuery validates a Query according to domain rules.
//
// Validation rules:
//   - RawText must not be empty or whitespace-only
//   - CollectionName must not be empty
//   - Status must be a known value
//
// NOT validated (populated during processing):
//   - SanitizedText (set by the validator step)
//   - CorrelationID (optional)
func ValidateQuery(query *Query) error {
	if query == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}
	if strings.TrimSpace(query.RawText) == "" {
		return fmt.Errorf("%w: text cannot be empty", ErrInvalidQuery)
	}
	if query.CollectionName == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidQuery)
	}
	switch query.Status {
	case QueryStatusPending, QueryStatusValidating, QueryStatusEmbedding,
		QueryStatusRetrieving, QueryStatusGenerating, QueryStatusScoring,
		QueryStatusCompleted, QueryStatusFailed, QueryStatusEscalated:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, query.Status)
	}
	return nil
}

// ValidateRetrievalResults checks the rank invariant: ranks form a
// contiguous sequence starting at 1 with no duplicates, and every
// similarity score is within [0,1].
func ValidateRetrievalResults(results []RetrievalResult) error {
	for i, r := range results {
		if r.Rank != i+1 {
			return fmt.Errorf("%w: rank %d at position %d", ErrInvalidRanks, r.Rank, i)
		}
		if r.SimilarityScore < 0 || r.SimilarityScore > 1 {
			return fmt.Errorf("similarity score %f out of range at rank %d", r.SimilarityScore, r.Rank)
		}
	}
	return nil
}
