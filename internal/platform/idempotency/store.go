package idempotency

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const DefaultTTL = 24 * time.Hour

// Entry is a captured response replayed for a repeated Idempotency-Key.
type Entry struct {
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers,omitempty"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Store persists entries. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps entries in process memory. Expired entries are dropped
// on read and by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok || s.now().After(entry.ExpiresAt) {
		return nil, false, nil
	}
	return entry.clone(), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	cp := entry.clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	if cp.ExpiresAt.IsZero() {
		cp.ExpiresAt = cp.CreatedAt.Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep removes expired entries and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (e *Entry) clone() *Entry {
	cp := *e
	if e.Headers != nil {
		cp.Headers = e.Headers.Clone()
	}
	cp.Body = append([]byte(nil), e.Body...)
	return &cp
}
