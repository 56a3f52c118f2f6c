package txstore

import (
	"fmt"
	"sync"
	"time"
)

// MemoryStore is the process-local Store backend.
//
// A single mutex covers all mutation so Create, Consume and PurgeExpired
// observe a consistent snapshot. No operation blocks beyond lock contention.
// The store provides no cross-process guarantees; split deployments use
// [FileStore] instead.
type MemoryStore struct {
	mu       sync.Mutex
	pending  map[string]Transaction
	consumed map[string]struct{}
	ttl      time.Duration
}

// NewMemoryStore creates a MemoryStore with the given default TTL.
func NewMemoryStore(ttl time.Duration) (*MemoryStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %v", ErrConfig, ttl)
	}
	return &MemoryStore{
		pending:  make(map[string]Transaction),
		consumed: make(map[string]struct{}),
		ttl:      ttl,
	}, nil
}

// Create persists a new pending transaction. A state is write-once: a second
// Create with the same state fails with ErrUsed whether the first is still
// pending or already consumed.
func (s *MemoryStore) Create(state, codeVerifier string, meta map[string]string, ttl time.Duration) error {
	if err := validateState(state); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[state]; ok {
		return fmt.Errorf("%w: %s", ErrUsed, state)
	}
	if _, ok := s.consumed[state]; ok {
		return fmt.Errorf("%w: %s", ErrUsed, state)
	}

	s.pending[state] = newTransaction(state, codeVerifier, meta, ttl)
	return nil
}

// Consume pops the pending transaction under the lock and marks it consumed.
// An expired entry is still moved to the consumed set inside the same
// critical section, so no caller can observe a half-consumed state and a
// retried Consume reports ErrUsed rather than ErrExpired again.
func (s *MemoryStore) Consume(state string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.pending[state]
	if !ok {
		if _, used := s.consumed[state]; used {
			return Transaction{}, fmt.Errorf("%w: %s", ErrUsed, state)
		}
		return Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, state)
	}

	delete(s.pending, state)
	s.consumed[state] = struct{}{}

	if tx.Expired(time.Now().UTC()) {
		return Transaction{}, fmt.Errorf("%w: %s", ErrExpired, state)
	}
	return tx.clone(), nil
}

// Exists reports whether state is pending or consumed.
func (s *MemoryStore) Exists(state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[state]; ok {
		return true, nil
	}
	_, ok := s.consumed[state]
	return ok, nil
}

// PurgeExpired moves every expired pending entry to the consumed set, so a
// stale Create or Consume on that state afterward reports ErrUsed.
func (s *MemoryStore) PurgeExpired(ref time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(ref), nil
}

// Count returns the number of pending, non-expired transactions, purging
// expired entries first so the count is accurate.
func (s *MemoryStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(time.Now().UTC())
	return len(s.pending), nil
}

// TTL returns the store-level default TTL.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// purgeLocked retires expired pending entries. Callers must hold s.mu.
func (s *MemoryStore) purgeLocked(ref time.Time) int {
	purged := 0
	for state, tx := range s.pending {
		if tx.Expired(ref) {
			delete(s.pending, state)
			s.consumed[state] = struct{}{}
			purged++
		}
	}
	return purged
}
