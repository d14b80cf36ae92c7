// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	docs     map[string]*Document
	commands []*CommandRecord
	// PutErr, when set, is returned by PutDocument.
	PutErr error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{docs: make(map[string]*Document)}
}

// GetDocument returns a copy of the named document.
func (m *MockStore) GetDocument(_ context.Context, name string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	cp.Value = slices.Clone(d.Value)
	return &cp, nil
}

// PutDocument stores a copy of value.
func (m *MockStore) PutDocument(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.docs[name] = &Document{Name: name, Value: slices.Clone(value), UpdatedAt: time.Now().UTC()}
	return nil
}

// DeleteDocument removes the named document.
func (m *MockStore) DeleteDocument(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, name)
	return nil
}

// ListDocuments returns document names sorted.
func (m *MockStore) ListDocuments(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// AppendCommand records a copy of rec.
func (m *MockStore) AppendCommand(_ context.Context, rec *CommandRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	cp := *rec
	m.commands = append(m.commands, &cp)
	return nil
}

// ListCommands returns matching records, most recent first.
func (m *MockStore) ListCommands(_ context.Context, filter CommandFilter) ([]*CommandRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*CommandRecord
	for i := len(m.commands) - 1; i >= 0; i-- {
		rec := m.commands[i]
		if filter.ChannelID != "" && rec.ChannelID != filter.ChannelID {
			continue
		}
		if !filter.Since.IsZero() && rec.Timestamp.Before(filter.Since) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
		if len(out) == normalizeLimit(filter.Limit) {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
