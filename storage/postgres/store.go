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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/ragflow/core"
	"github.com/poiesic/ragflow/storage"
)

// Store implements the storage repositories against Postgres. The pool is
// sized to the orchestrator concurrency ceiling: one connection per
// in-flight run, no more.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to Postgres with a pool bounded to maxConns.
func New(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &Store{
		pool:   pool,
		logger: slog.Default().With("component", "postgres"),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateQuery inserts a new query row. The insert is idempotent on the
// query id: a redelivered job whose row survived a crash keeps the
// existing row and proceeds, instead of erroring on the primary key.
func (s *Store) CreateQuery(ctx context.Context, query *core.Query) error {
	if err := core.ValidateQuery(query); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO queries (id, raw_text, sanitized_text, language, collection_name, submitted_at, status, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		query.ID, query.RawText, query.SanitizedText, query.Language,
		query.CollectionName, query.SubmittedAt, query.Status, query.CorrelationID,
	)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

// GetQuery retrieves a query by id.
func (s *Store) GetQuery(ctx context.Context, id uuid.UUID) (*core.Query, error) {
	var q core.Query
	err := s.pool.QueryRow(ctx, `
		SELECT id, raw_text, sanitized_text, language, collection_name, submitted_at, status, correlation_id
		FROM queries WHERE id = $1`, id,
	).Scan(&q.ID, &q.RawText, &q.SanitizedText, &q.Language, &q.CollectionName,
		&q.SubmittedAt, &q.Status, &q.CorrelationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get query: %w", err)
	}
	return &q, nil
}

// UpdateQueryStatus advances a query's status. The WHERE clause refuses to
// touch rows that already reached a terminal status, which is where the
// terminal-immutability invariant is actually enforced.
func (s *Store) UpdateQueryStatus(ctx context.Context, id uuid.UUID, status core.QueryStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queries SET status = $2
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'escalated')`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update query status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, getErr := s.GetQuery(ctx, id)
		if getErr != nil {
			return getErr
		}
		if existing.Status.Terminal() {
			return core.ErrTerminalStatus
		}
		return storage.ErrNotFound
	}
	s.logger.Debug("query status updated", "queryID", id, "status", status)
	return nil
}

// CreateRetrievalResults persists the ranked results for a query.
func (s *Store) CreateRetrievalResults(ctx context.Context, results []core.RetrievalResult) error {
	if err := core.ValidateRetrievalResults(results); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal result metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO retrieval_results (query_id, chunk_id, similarity_score, rank, rerank_score, metadata)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (query_id, rank) DO UPDATE SET
				chunk_id = EXCLUDED.chunk_id,
				similarity_score = EXCLUDED.similarity_score,
				rerank_score = EXCLUDED.rerank_score,
				metadata = EXCLUDED.metadata`,
			r.QueryID, r.ChunkID, r.SimilarityScore, r.Rank, r.RerankScore, metadata,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert retrieval results: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by id, including its embedding.
func (s *Store) GetChunk(ctx context.Context, id uuid.UUID) (*core.Chunk, error) {
	var (
		c         core.Chunk
		embedding pgvector.Vector
		metadata  []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, document_id, text_content, embedding, sequence_position, token_count, start_offset, end_offset, metadata
		FROM chunks WHERE id = $1`, id,
	).Scan(&c.ID, &c.DocumentID, &c.TextContent, &embedding, &c.SequencePosition,
		&c.TokenCount, &c.StartOffset, &c.EndOffset, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	c.Embedding = embedding.Slice()
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
	}
	return &c, nil
}

// InsertChunk stores a chunk with its embedding. The query path never calls
// this; it exists for ingestion tooling and test fixtures.
func (s *Store) InsertChunk(ctx context.Context, chunk *core.Chunk) error {
	metadata, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshal chunk metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chunks (id, document_id, text_content, embedding, sequence_position,
			token_count, start_offset, end_offset, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		chunk.ID, chunk.DocumentID, chunk.TextContent, pgvector.NewVector(chunk.Embedding),
		chunk.SequencePosition, chunk.TokenCount, chunk.StartOffset, chunk.EndOffset, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// CreateAnswer inserts the one answer for a query. A redelivered job that
// already produced an answer before the crash replaces it with the fresh
// generation, keeping the one-answer-per-query constraint.
func (s *Store) CreateAnswer(ctx context.Context, answer *core.Answer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answers (id, query_id, answer_text, confidence_score, model_id,
			input_tokens, output_tokens, retrieval_ms, generation_ms, total_ms,
			cache_hit, escalated, validation_status, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (query_id) DO UPDATE SET
			id = EXCLUDED.id,
			answer_text = EXCLUDED.answer_text,
			confidence_score = EXCLUDED.confidence_score,
			model_id = EXCLUDED.model_id,
			input_tokens = EXCLUDED.input_tokens,
			output_tokens = EXCLUDED.output_tokens,
			retrieval_ms = EXCLUDED.retrieval_ms,
			generation_ms = EXCLUDED.generation_ms,
			total_ms = EXCLUDED.total_ms,
			cache_hit = EXCLUDED.cache_hit,
			escalated = EXCLUDED.escalated,
			validation_status = EXCLUDED.validation_status,
			generated_at = EXCLUDED.generated_at`,
		answer.ID, answer.QueryID, answer.AnswerText, answer.ConfidenceScore, answer.ModelID,
		answer.InputTokens, answer.OutputTokens, answer.RetrievalMS, answer.GenerationMS,
		answer.TotalMS, answer.CacheHit, answer.Escalated, answer.ValidationStatus, answer.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// GetAnswerByQuery retrieves the answer for a query.
func (s *Store) GetAnswerByQuery(ctx context.Context, queryID uuid.UUID) (*core.Answer, error) {
	var a core.Answer
	err := s.pool.QueryRow(ctx, `
		SELECT id, query_id, answer_text, confidence_score, model_id,
			input_tokens, output_tokens, retrieval_ms, generation_ms, total_ms,
			cache_hit, escalated, validation_status, generated_at
		FROM answers WHERE query_id = $1`, queryID,
	).Scan(&a.ID, &a.QueryID, &a.AnswerText, &a.ConfidenceScore, &a.ModelID,
		&a.InputTokens, &a.OutputTokens, &a.RetrievalMS, &a.GenerationMS, &a.TotalMS,
		&a.CacheHit, &a.Escalated, &a.ValidationStatus, &a.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get answer: %w", err)
	}
	return &a, nil
}

// CreateEscalation queues an escalation request for human support.
func (s *Store) CreateEscalation(ctx context.Context, escalation *core.EscalationRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO escalation_requests (id, query_id, answer_id, reason, confidence_score,
			priority_score, assignment_status, escalated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		escalation.ID, escalation.QueryID, escalation.AnswerID, escalation.Reason,
		escalation.ConfidenceScore, escalation.PriorityScore, escalation.AssignmentStatus,
		escalation.EscalatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

// Record persists one audit event.
func (s *Store) Record(ctx context.Context, event *core.AuditEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, query_id, event_type, severity, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.QueryID, event.Type, event.Severity, event.Detail, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

var (
	_ storage.QueryRepository      = (*Store)(nil)
	_ storage.ChunkRepository      = (*Store)(nil)
	_ storage.AnswerRepository     = (*Store)(nil)
	_ storage.EscalationRepository = (*Store)(nil)
	_ storage.AuditRepository      = (*Store)(nil)
)
