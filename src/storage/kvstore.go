package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Well-known keys. The rate cache and the rate override are stored under
// distinct keys on purpose: clearing the override must not clear the cache.
const (
	KeyRateCache    = "rate:cache"
	KeyRateOverride = "rate:override"
)

// KVStore is a small typed key-value store for the persistent client
// state this service owns (rate cache, rate override). Values are stored
// as JSON. Implementations must be safe for concurrent readers.
type KVStore interface {
	// Get unmarshals the stored value into dest and reports whether the
	// key existed.
	Get(key string, dest any) (bool, error)
	Set(key string, value any) error
	Delete(key string) error
}

// SQLiteKVStore persists values in the kv_store table.
type SQLiteKVStore struct {
	db *sql.DB
}

func NewSQLiteKVStore(db *sql.DB) *SQLiteKVStore {
	return &SQLiteKVStore{db: db}
}

func (s *SQLiteKVStore) Get(key string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM kv_store WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv get %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("kv decode %q: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteKVStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %q: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteKVStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// MemoryKVStore is an in-memory KVStore used in tests.
type MemoryKVStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{items: make(map[string][]byte)}
}

func (s *MemoryKVStore) Get(key string, dest any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryKVStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryKVStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}
