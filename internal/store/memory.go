package store

import (
	"sync"

	"github.com/i474232898/quake-proxy/internal/quake"
)

// MemoryStore is a concurrency-safe in-memory feed cache. It holds the last
// good snapshot and the most recent fetch failure. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	snapshot  *quake.Snapshot
	lastError *quake.FetchError
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Replace swaps in a new snapshot and clears the last failure.
// A nil snapshot is ignored so a bad caller cannot empty the cache.
func (s *MemoryStore) Replace(snapshot *quake.Snapshot) {
	if snapshot == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snapshot
	s.lastError = nil
}

// RecordFailure stores err as the last failure. The current snapshot is kept.
func (s *MemoryStore) RecordFailure(err *quake.FetchError) {
	if err == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = err
}

// Current returns the last good snapshot, or nil before the first success.
func (s *MemoryStore) Current() *quake.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// LastFailure returns the most recent fetch failure, or nil.
func (s *MemoryStore) LastFailure() *quake.FetchError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}
