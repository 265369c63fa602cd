package stubs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockRepository is an in-memory implementation of storage.Repository for testing
type MockRepository struct {
	mu      sync.RWMutex
	records []map[string]any
	err     error
	appends int
}

// NewMockRepository creates a new empty repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		records: make([]map[string]any, 0),
	}
}

// FailWith makes every following call return err. Pass nil to recover.
func (m *MockRepository) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Append stores a deep copy of record
func (m *MockRepository) Append(ctx context.Context, record map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appends++
	if m.err != nil {
		return m.err
	}

	// Round-trip through JSON so later mutation of the caller's data is not visible
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	m.records = append(m.records, stored)
	return nil
}

// ReadAll returns all stored records in insertion order
func (m *MockRepository) ReadAll(ctx context.Context) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	out := make([]map[string]any, len(m.records))
	copy(out, m.records)
	return out, nil
}

// Appends returns how many times Append was called, failed calls included
func (m *MockRepository) Appends() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}

// Close closes the repository (no-op for mock)
func (m *MockRepository) Close() error {
	return nil
}
