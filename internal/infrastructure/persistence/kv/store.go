// Package kv provides the persistent key-value store backing
// client-local state. The anonymous token key has a single writer (the
// session manager); other components read through the manager's
// accessors instead of touching storage directly, which keeps in-memory
// and persisted state consistent.
package kv

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/database"
)

// Store is client-local persistent storage keyed by string.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// SQLStore persists keys in the client_kv table of the shared database.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates a key-value store over the given database.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Get returns the value for key and whether it exists.
func (s *SQLStore) Get(key string) (string, bool, error) {
	query := `SELECT value FROM client_kv WHERE key = ? LIMIT 1`

	var value string
	err := s.db.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	return value, true, nil
}

// Set stores or replaces the value for key.
func (s *SQLStore) Set(key, value string) error {
	query := `INSERT INTO client_kv (key, value, updated_at) VALUES (?, ?, ?)
	          ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Remove deletes the value for key. Removing an absent key is not an error.
func (s *SQLStore) Remove(key string) error {
	query := `DELETE FROM client_kv WHERE key = ?`

	if _, err := s.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
