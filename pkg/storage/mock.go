package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/lootmap/pkg/location"
)

// MockStorage is an in-memory Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	doc       Document
	schema    Schema
	pingError error
	loadError error
	saveError error
	backups   []Document

	SaveCalls int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage holding an empty document
func NewMockStorage() *MockStorage {
	return &MockStorage{doc: Document{}}
}

// SetDocument seeds the stored document and the schema Load reports
func (m *MockStorage) SetDocument(doc Document, schema Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc.Clone()
	m.schema = schema
}

// Document returns a copy of what was last saved
func (m *MockStorage) Document() Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Clone()
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetLoadError configures the mock to fail on load
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

// SetSaveError configures the mock to fail on save; nil restores success
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Backups returns the documents captured by Backup
func (m *MockStorage) Backups() []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Document(nil), m.backups...)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) Load(ctx context.Context) (Document, Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, SchemaCurrent, location.NewStorageError("load", m.loadError)
	}
	return m.doc.Clone(), m.schema, nil
}

func (m *MockStorage) Save(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.saveError != nil {
		return location.NewStorageError("save", m.saveError)
	}
	m.doc = doc.Clone()
	m.schema = SchemaCurrent
	return nil
}

func (m *MockStorage) Backup(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.doc) == 0 {
		return "", nil
	}
	m.backups = append(m.backups, m.doc.Clone())
	return fmt.Sprintf("mock-backup-%d", len(m.backups)), nil
}
