package vectordb

import "context"

// MockStore is a test double for Store with function-field injection.
type MockStore struct {
	// SearchFunc is called by Search if set. If nil, returns no matches.
	SearchFunc func(ctx context.Context, collection string, vector []float32, topK int, minScore float64, filters map[string]string) ([]Match, error)

	// CheckCollectionFunc is called by CheckCollection if set. If nil,
	// the check passes.
	CheckCollectionFunc func(ctx context.Context, collection string, dimension int) error

	callCount int
}

// NewMockStore creates a mock store that returns no matches by default.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Search(ctx context.Context, collection string, vector []float32, topK int, minScore float64, filters map[string]string) ([]Match, error) {
	m.callCount++
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, collection, vector, topK, minScore, filters)
	}
	return nil, nil
}

func (m *MockStore) CheckCollection(ctx context.Context, collection string, dimension int) error {
	if m.CheckCollectionFunc != nil {
		return m.CheckCollectionFunc(ctx, collection, dimension)
	}
	return nil
}

func (m *MockStore) EnsureCollection(context.Context, string, int) error { return nil }

func (m *MockStore) Close() error { return nil }

// CallCount returns the number of Search calls.
func (m *MockStore) CallCount() int { return m.callCount }

var _ Store = (*MockStore)(nil)
