package dispatchlog

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a Store backed by a map. Records expire after the
// configured TTL, checked lazily on access. Suitable for single-process
// wallets; use the redis store for anything that must survive a restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	ttl     time.Duration
}

// NewInMemoryStore creates an in-memory store. A zero ttl means records
// never expire.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		records: map[string]*Record{},
		ttl:     ttl,
	}
}

func (s *InMemoryStore) expired(rec *Record) bool {
	return s.ttl > 0 && time.Since(rec.UpdatedAt) > s.ttl
}

func copyRecord(rec *Record) *Record {
	c := *rec
	return &c
}

// Create inserts a new pending record, returning the existing one with
// ErrDuplicateID if the ID is already taken.
func (s *InMemoryStore) Create(_ context.Context, rec *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.ID]; ok && !s.expired(existing) {
		return copyRecord(existing), ErrDuplicateID
	}

	now := time.Now()
	stored := copyRecord(rec)
	stored.Status = StatusPending
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.records[rec.ID] = stored

	return copyRecord(stored), nil
}

// Get returns the record for the given ID.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || s.expired(rec) {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// Update replaces an existing record.
func (s *InMemoryStore) Update(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.ID]
	if !ok || s.expired(existing) {
		return ErrNotFound
	}

	stored := copyRecord(rec)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	s.records[rec.ID] = stored
	return nil
}

// ListByOrigin returns all live records created by the given origin.
func (s *InMemoryStore) ListByOrigin(_ context.Context, origin string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.records {
		if rec.Origin == origin && !s.expired(rec) {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

// DeleteOlderThan removes records whose last update is older than age.
func (s *InMemoryStore) DeleteOlderThan(_ context.Context, age time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-age)
	deleted := 0
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Verify InMemoryStore implements Store
var _ Store = (*InMemoryStore)(nil)
