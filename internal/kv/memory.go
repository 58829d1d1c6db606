package kv

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is a process-local Store. A single mutex serialises every
// operation, so compare-and-swap is atomic within the process. State is not
// shared across replicas.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

// NewMemoryStore returns an empty store using the wall clock for expiry.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock lets tests control expiry.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{data: make(map[string]memEntry), now: now}
}

// live returns the entry for key, evicting it if it has expired. Caller holds mu.
func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.data[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.data, key)
		return memEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) entry(value []byte, ttl time.Duration) memEntry {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = s.entry(value, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	switch {
	case prev == nil && ok:
		return false, nil
	case prev != nil && (!ok || !bytes.Equal(e.value, prev)):
		return false, nil
	}
	s.data[key] = s.entry(next, ttl)
	return true, nil
}

func (s *MemoryStore) Scan(_ context.Context, prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for k := range s.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if e, ok := s.live(k); ok {
			out[k] = append([]byte(nil), e.value...)
		}
	}
	return out, nil
}
