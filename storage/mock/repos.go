package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/core"
	"github.com/poiesic/ragflow/storage"
)

// MockStore is an in-memory test double for the storage repositories.
// It allows custom behavior injection via function fields; when a field is
// nil the in-memory default applies.
type MockStore struct {
	CreateQueryFunc            func(ctx context.Context, query *core.Query) error
	GetQueryFunc               func(ctx context.Context, id uuid.UUID) (*core.Query, error)
	UpdateQueryStatusFunc      func(ctx context.Context, id uuid.UUID, status core.QueryStatus) error
	CreateRetrievalResultsFunc func(ctx context.Context, results []core.RetrievalResult) error
	GetChunkFunc               func(ctx context.Context, id uuid.UUID) (*core.Chunk, error)
	CreateAnswerFunc           func(ctx context.Context, answer *core.Answer) error
	GetAnswerByQueryFunc       func(ctx context.Context, queryID uuid.UUID) (*core.Answer, error)
	CreateEscalationFunc       func(ctx context.Context, escalation *core.EscalationRequest) error
	RecordFunc                 func(ctx context.Context, event *core.AuditEvent) error

	mu          sync.Mutex
	queries     map[uuid.UUID]*core.Query
	chunks      map[uuid.UUID]*core.Chunk
	answers     map[uuid.UUID]*core.Answer
	escalations []*core.EscalationRequest
	results     []core.RetrievalResult
	events      []*core.AuditEvent
	transitions []core.QueryStatus
}

// NewMockStore creates a mock store with empty in-memory state.
func NewMockStore() *MockStore {
	return &MockStore{
		queries: make(map[uuid.UUID]*core.Query),
		chunks:  make(map[uuid.UUID]*core.Chunk),
		answers: make(map[uuid.UUID]*core.Answer),
	}
}

// SeedChunk makes a chunk retrievable by GetChunk.
func (m *MockStore) SeedChunk(chunk *core.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[chunk.ID] = chunk
}

func (m *MockStore) CreateQuery(ctx context.Context, query *core.Query) error {
	if m.CreateQueryFunc != nil {
		return m.CreateQueryFunc(ctx, query)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Idempotent on the id, matching the Postgres store: a row that
	// survived a crash is kept as-is on redelivery.
	if _, exists := m.queries[query.ID]; exists {
		return nil
	}
	copied := *query
	m.queries[query.ID] = &copied
	return nil
}

func (m *MockStore) GetQuery(ctx context.Context, id uuid.UUID) (*core.Query, error) {
	if m.GetQueryFunc != nil {
		return m.GetQueryFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (m *MockStore) UpdateQueryStatus(ctx context.Context, id uuid.UUID, status core.QueryStatus) error {
	if m.UpdateQueryStatusFunc != nil {
		return m.UpdateQueryStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queries[id]
	if !ok {
		return storage.ErrNotFound
	}
	if q.Status.Terminal() {
		return core.ErrTerminalStatus
	}
	q.Status = status
	m.transitions = append(m.transitions, status)
	return nil
}

func (m *MockStore) CreateRetrievalResults(ctx context.Context, results []core.RetrievalResult) error {
	if m.CreateRetrievalResultsFunc != nil {
		return m.CreateRetrievalResultsFunc(ctx, results)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Upsert keyed on (query id, rank), matching the Postgres store.
	for _, r := range results {
		replaced := false
		for i := range m.results {
			if m.results[i].QueryID == r.QueryID && m.results[i].Rank == r.Rank {
				m.results[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			m.results = append(m.results, r)
		}
	}
	return nil
}

func (m *MockStore) GetChunk(ctx context.Context, id uuid.UUID) (*core.Chunk, error) {
	if m.GetChunkFunc != nil {
		return m.GetChunkFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chunks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (m *MockStore) CreateAnswer(ctx context.Context, answer *core.Answer) error {
	if m.CreateAnswerFunc != nil {
		return m.CreateAnswerFunc(ctx, answer)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *answer
	m.answers[answer.QueryID] = &copied
	return nil
}

func (m *MockStore) GetAnswerByQuery(ctx context.Context, queryID uuid.UUID) (*core.Answer, error) {
	if m.GetAnswerByQueryFunc != nil {
		return m.GetAnswerByQueryFunc(ctx, queryID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[queryID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *MockStore) CreateEscalation(ctx context.Context, escalation *core.EscalationRequest) error {
	if m.CreateEscalationFunc != nil {
		return m.CreateEscalationFunc(ctx, escalation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *escalation
	m.escalations = append(m.escalations, &copied)
	return nil
}

func (m *MockStore) Record(ctx context.Context, event *core.AuditEvent) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Transitions returns the status transitions applied through UpdateQueryStatus,
// in order.
func (m *MockStore) Transitions() []core.QueryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.QueryStatus, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// Results returns all persisted retrieval results.
func (m *MockStore) Results() []core.RetrievalResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.RetrievalResult, len(m.results))
	copy(out, m.results)
	return out
}

// Escalations returns all persisted escalation requests.
func (m *MockStore) Escalations() []*core.EscalationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.EscalationRequest, len(m.escalations))
	copy(out, m.escalations)
	return out
}

// Events returns all recorded audit events.
func (m *MockStore) Events() []*core.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.AuditEvent, len(m.events))
	copy(out, m.events)
	return out
}

var (
	_ storage.QueryRepository      = (*MockStore)(nil)
	_ storage.ChunkRepository      = (*MockStore)(nil)
	_ storage.AnswerRepository     = (*MockStore)(nil)
	_ storage.EscalationRepository = (*MockStore)(nil)
	_ storage.AuditRepository      = (*MockStore)(nil)
)
