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


package postgres

import (
	"context"
	"fmt"
)

// InitSchema creates the pgvector extension and all tables if they do not
// already exist. dimension fixes the width of the chunk embedding column
// and must match the embedding model in use.
func (s *Store) InitSchema(ctx context.Context, dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS queries (
			id UUID PRIMARY KEY,
			raw_text TEXT NOT NULL,
			sanitized_text TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			collection_name TEXT NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			correlation_id TEXT NOT NULL DEFAULT ''
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL,
			text_content TEXT NOT NULL,
			embedding vector(%d),
			sequence_position INT NOT NULL,
			token_count INT NOT NULL,
			start_offset INT NOT NULL,
			end_offset INT NOT NULL,
			metadata JSONB
		)`, dimension),
		`CREATE TABLE IF NOT EXISTS retrieval_results (
			query_id UUID NOT NULL REFERENCES queries(id),
			chunk_id UUID NOT NULL,
			similarity_score DOUBLE PRECISION NOT NULL,
			rank INT NOT NULL,
			rerank_score DOUBLE PRECISION,
			metadata JSONB,
			PRIMARY KEY (query_id, rank)
		)`,
		`CREATE TABLE IF NOT EXISTS answers (
			id UUID PRIMARY KEY,
			query_id UUID NOT NULL UNIQUE REFERENCES queries(id),
			answer_text TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			model_id TEXT NOT NULL,
			input_tokens INT NOT NULL,
			output_tokens INT NOT NULL,
			retrieval_ms BIGINT NOT NULL,
			generation_ms BIGINT NOT NULL,
			total_ms BIGINT NOT NULL,
			cache_hit BOOLEAN NOT NULL,
			escalated BOOLEAN NOT NULL,
			validation_status TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS escalation_requests (
			id UUID PRIMARY KEY,
			query_id UUID NOT NULL REFERENCES queries(id),
			answer_id UUID,
			reason TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			priority_score DOUBLE PRECISION NOT NULL,
			assignment_status TEXT NOT NULL,
			escalated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id UUID PRIMARY KEY,
			query_id UUID,
			event_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			detail TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_status ON queries(status)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_query ON audit_events(query_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	s.logger.Info("schema initialized", "dimension", dimension)
	return nil
}
