package results

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/types"
)

// MemoryStore is an in-process Store guarded by a single mutex.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[Key]Result
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[Key]Result),
		now:  time.Now,
	}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, key Key, status types.Status) (UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if existing, ok := s.rows[key]; ok {
		existing.Status = status
		existing.UpdatedAt = now
		s.rows[key] = existing
		return UpsertOutcome{Created: false, Result: existing}, nil
	}

	r := Result{Key: key, Status: status, CreatedAt: now, UpdatedAt: now}
	s.rows[key] = r
	return UpsertOutcome{Created: true, Result: r}, nil
}

// Find implements Store.
func (s *MemoryStore) Find(_ context.Context, key Key) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[key]; !ok {
		return false, nil
	}
	delete(s.rows, key)
	return true, nil
}

// ListByCandidate implements Store.
func (s *MemoryStore) ListByCandidate(_ context.Context, candidateID uuid.UUID) ([]Result, error) {
	return s.filter(func(k Key) bool { return k.CandidateID == candidateID }), nil
}

// ListByRound implements Store.
func (s *MemoryStore) ListByRound(_ context.Context, jobID, roundID uuid.UUID) ([]Result, error) {
	return s.filter(func(k Key) bool { return k.JobID == jobID && k.RoundID == roundID }), nil
}

// Len returns the number of stored results.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore) filter(match func(Key) bool) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Result{}
	for k, r := range s.rows {
		if match(k) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Result) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.CandidateID[:], b.CandidateID[:])
	})
	return out
}
