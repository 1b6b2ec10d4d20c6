package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/core"
)

// The core depends only on read-by-id and insert/update-terminal-state
// operations; arbitrary ad-hoc queries stay out of these interfaces.

// QueryRepository manages Query rows and their retrieval results.
// Implementations must be thread-safe; a given query row is only ever
// written by the single orchestrator run that owns it.
type QueryRepository interface {
	// CreateQuery inserts a new query in pending status.
	CreateQuery(ctx context.Context, query *core.Query) error

	// GetQuery retrieves a query by id.
	// Returns ErrNotFound if the query doesn't exist.
	GetQuery(ctx context.Context, id uuid.UUID) (*core.Query, error)

	// UpdateQueryStatus advances a query's status, persisting the
	// transition so a crash mid-pipeline leaves an inspectable record.
	// Returns core.ErrTerminalStatus if the row already reached a
	// terminal status: terminal queries are immutable.
	UpdateQueryStatus(ctx context.Context, id uuid.UUID, status core.QueryStatus) error

	// CreateRetrievalResults persists the ranked results for a query.
	// The rank invariant (contiguous 1..N) is validated before insert.
	CreateRetrievalResults(ctx context.Context, results []core.RetrievalResult) error
}

// ChunkRepository reads chunk text for joining retrieval results.
type ChunkRepository interface {
	// GetChunk retrieves a chunk by id.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id uuid.UUID) (*core.Chunk, error)
}

// AnswerRepository manages Answer rows.
type AnswerRepository interface {
	// CreateAnswer inserts the one answer for a query.
	CreateAnswer(ctx context.Context, answer *core.Answer) error

	// GetAnswerByQuery retrieves the answer for a query.
	// Returns ErrNotFound if no answer exists.
	GetAnswerByQuery(ctx context.Context, queryID uuid.UUID) (*core.Answer, error)
}

// EscalationRepository manages escalation requests consumed by the
// human-support collaborator.
type EscalationRepository interface {
	// CreateEscalation queues an escalation request.
	CreateEscalation(ctx context.Context, escalation *core.EscalationRequest) error
}

// AuditRepository records compliance events.
type AuditRepository interface {
	// Record persists one audit event.
	Record(ctx context.Context, event *core.AuditEvent) error
}
