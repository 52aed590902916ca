package kv

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used in tests and as a degradation
// path when Redis is unavailable. TTLs are enforced lazily: an expired
// entry is dropped the next time it's read or counted against Keys.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(time.Now()) {
		delete(s.entries, key)
		return ErrNotFound
	}

	return json.Unmarshal(entry.data, dest)
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{data: data, expires: expires}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	var expires time.Time
	if entry, ok := s.entries[key]; ok && !entry.expired(time.Now()) {
		_ = json.Unmarshal(entry.data, &current)
		expires = entry.expires
	}
	current += delta

	data, _ := json.Marshal(current)
	s.entries[key] = memoryEntry{data: data, expires: expires}
	return current, nil
}

func (s *MemoryStore) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current float64
	var expires time.Time
	if entry, ok := s.entries[key]; ok && !entry.expired(time.Now()) {
		_ = json.Unmarshal(entry.data, &current)
		expires = entry.expires
	}
	current += delta

	data, _ := json.Marshal(current)
	s.entries[key] = memoryEntry{data: data, expires: expires}
	return current, nil
}

func (s *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var keys []string
	for k, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, k)
			continue
		}
		matched, err := filepath.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if matched {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
