package mocks

import (
	"context"
	"sync"
)

// MockStore is an in-memory kvstore.Store that records calls and can be
// made to fail, for exercising the cart's storage-failure tolerance.
type MockStore struct {
	mu     sync.Mutex
	values map[string]string

	// For tracking calls in tests
	SetCalls []SetCall
	GetErr   error
	SetErr   error
}

// SetCall records parameters passed to Set
type SetCall struct {
	Key   string
	Value string
}

func NewMockStore() *MockStore {
	return &MockStore{
		values:   make(map[string]string),
		SetCalls: make([]SetCall, 0),
	}
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}

// Seed stores a value directly, bypassing call recording.
func (m *MockStore) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Stored returns the current value for key, for assertions.
func (m *MockStore) Stored(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}
