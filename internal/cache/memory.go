package cache

import (
	"context"
	"sync"
	"time"
)

type processedEntry struct {
	done    bool
	expires time.Time
}

// MemoryProcessedStore is the single-process counterpart of RedisProcessedStore.
type MemoryProcessedStore struct {
	mu      sync.Mutex
	lease   time.Duration
	ttl     time.Duration
	now     func() time.Time
	entries map[string]processedEntry
}

func NewMemoryProcessedStore(lease, ttl time.Duration) *MemoryProcessedStore {
	return &MemoryProcessedStore{lease: lease, ttl: ttl, now: time.Now, entries: make(map[string]processedEntry)}
}

// live returns the unexpired entry for key. Callers hold mu.
func (s *MemoryProcessedStore) live(key string) (processedEntry, bool) {
	e, ok := s.entries[key]
	if ok && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return processedEntry{}, false
	}
	return e, ok
}

func (s *MemoryProcessedStore) Done(_ context.Context, consumer, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(processedKey(consumer, eventID))
	return ok && e.done, nil
}

func (s *MemoryProcessedStore) Acquire(_ context.Context, consumer, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := processedKey(consumer, eventID)
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = processedEntry{expires: s.now().Add(s.lease)}
	return true, nil
}

func (s *MemoryProcessedStore) Complete(_ context.Context, consumer, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[processedKey(consumer, eventID)] = processedEntry{done: true, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryProcessedStore) Release(_ context.Context, consumer, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := processedKey(consumer, eventID)
	if e, ok := s.entries[key]; ok && !e.done {
		delete(s.entries, key)
	}
	return nil
}
