package ratelimit

import (
	"context"
	"sync"
	"time"
)

// minSweep is the map size at which expired entries are first swept.
const minSweep = 1024

type entry struct {
	at      time.Time
	expires time.Time
}

// MemoryStore keeps cooldowns in process. It serves tests and single-process
// runs; multiple instances need RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	sweepAt int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), sweepAt: minSweep}
}

func (s *MemoryStore) Acquire(_ context.Context, key string, now time.Time, window time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if elapsed := now.Sub(e.at); elapsed < window {
			return Decision{RetryAfter: window - elapsed}, nil
		}
	}
	s.entries[key] = entry{at: now, expires: now.Add(window)}

	// sweep only once the map outgrows twice its live size
	if len(s.entries) >= s.sweepAt {
		s.evictLocked(now)
		s.sweepAt = max(minSweep, 2*len(s.entries))
	}
	return Decision{Allowed: true}, nil
}

func (s *MemoryStore) evictLocked(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
