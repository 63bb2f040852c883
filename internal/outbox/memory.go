package outbox

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory outbox useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

type memEntry struct {
	e    Entry
	done bool
	dead bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memEntry)}
}

// Enqueue adds an entry directly; the tx-coupled path is exercised only by the
// Postgres store.
func (s *MemoryStore) Enqueue(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = &memEntry{e: e}
}

func (s *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, me := range s.entries {
		if me.done || me.dead {
			continue
		}
		if me.e.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, me.e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkDone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if me, ok := s.entries[id]; ok {
		me.done = true
	}
	return nil
}

func (s *MemoryStore) Reschedule(_ context.Context, id string, attempts int, next time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if me, ok := s.entries[id]; ok {
		me.e.Attempts = attempts
		me.e.NextAttemptAt = next
		me.e.LastError = lastErr
	}
	return nil
}

func (s *MemoryStore) MarkDead(_ context.Context, id string, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if me, ok := s.entries[id]; ok {
		me.dead = true
		me.e.LastError = lastErr
	}
	return nil
}

// Pending returns entries that are neither done nor dead.
func (s *MemoryStore) Pending() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, me := range s.entries {
		if !me.done && !me.dead {
			out = append(out, me.e)
		}
	}
	return out
}

// Dead returns parked entries.
func (s *MemoryStore) Dead() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, me := range s.entries {
		if me.dead {
			out = append(out, me.e)
		}
	}
	return out
}
