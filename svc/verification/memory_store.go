package verification

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	hash      string
	expiresAt time.Time
	done      bool
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, normalizedEmail, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[normalizedEmail] = memoryEntry{
		hash:      codeHash,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Verify(ctx context.Context, normalizedEmail, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[normalizedEmail]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, normalizedEmail)
		return ErrCodeExpired
	}

	if !hashEqual(entry.hash, HashCode(code)) {
		return ErrCodeMismatch
	}

	entry.done = true
	s.entries[normalizedEmail] = entry
	return nil
}
