// Package memstore keeps candidates and jobs in memory. It satisfies the same lookup
// interfaces as the Postgres store and backs unit tests.
package memstore

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/eligibility"
	"github.com/jonathan/placement-portal/internal/types"
)

// Store holds candidates and jobs.
type Store struct {
	mu         sync.RWMutex
	candidates map[uuid.UUID]types.Candidate
	jobs       map[uuid.UUID]types.Job
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		candidates: make(map[uuid.UUID]types.Candidate),
		jobs:       make(map[uuid.UUID]types.Job),
	}
}

// AddCandidate stores c, assigning an ID when it has none.
func (s *Store) AddCandidate(c types.Candidate) types.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.candidates[c.ID] = c
	return c
}

// GetCandidate returns nil, nil for an unknown ID.
func (s *Store) GetCandidate(_ context.Context, candidateID uuid.UUID) (*types.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ResolveCandidate matches identifier against candidate ID, email and roll number.
func (s *Store) ResolveCandidate(_ context.Context, identifier string) (*types.Candidate, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, err := uuid.Parse(identifier); err == nil {
		if c, ok := s.candidates[id]; ok {
			return &c, nil
		}
		return nil, nil
	}
	for _, c := range s.candidates {
		if strings.EqualFold(c.Email, identifier) || strings.EqualFold(c.RollNumber, identifier) {
			return &c, nil
		}
	}
	return nil, nil
}

// ForEach implements eligibility.Population over a snapshot taken at call time.
func (s *Store) ForEach(ctx context.Context, fn func(eligibility.Member) error) error {
	s.mu.RLock()
	members := make([]eligibility.Member, 0, len(s.candidates))
	for _, c := range s.candidates {
		members = append(members, eligibility.Member{ID: c.ID, Profile: c.Profile})
	}
	s.mu.RUnlock()

	slices.SortFunc(members, func(a, b eligibility.Member) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return eligibility.Members(members).ForEach(ctx, fn)
}

// CreateJob stores job with fresh IDs.
func (s *Store) CreateJob(_ context.Context, job *types.Job) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := cloneJob(job)
	j.ID = uuid.New()
	now := time.Now().UTC()
	j.CreatedAt, j.UpdatedAt = now, now
	for i := range j.Rounds {
		j.Rounds[i].ID = uuid.New()
		j.Rounds[i].JobID = j.ID
	}
	sortRounds(j.Rounds)
	s.jobs[j.ID] = j

	out := cloneJob(&j)
	return &out, nil
}

// GetJob returns nil, nil for an unknown ID.
func (s *Store) GetJob(_ context.Context, jobID uuid.UUID) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	out := cloneJob(&j)
	return &out, nil
}

// GetRoundByName returns nil, nil when the job or round is unknown.
func (s *Store) GetRoundByName(ctx context.Context, jobID uuid.UUID, name string) (*types.Round, error) {
	j, err := s.GetJob(ctx, jobID)
	if err != nil || j == nil {
		return nil, err
	}
	return j.RoundByName(name), nil
}

// ReplaceJob swaps in job's details and rounds. Rounds keep their ID when their number
// already existed.
func (s *Store) ReplaceJob(_ context.Context, job *types.Job) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.jobs[job.ID]
	if !ok {
		return nil, nil
	}

	byNumber := make(map[int]uuid.UUID, len(existing.Rounds))
	for _, r := range existing.Rounds {
		byNumber[r.Number] = r.ID
	}

	j := cloneJob(job)
	j.CreatedAt = existing.CreatedAt
	j.UpdatedAt = time.Now().UTC()
	for i := range j.Rounds {
		if id, ok := byNumber[j.Rounds[i].Number]; ok {
			j.Rounds[i].ID = id
		} else {
			j.Rounds[i].ID = uuid.New()
		}
		j.Rounds[i].JobID = j.ID
	}
	sortRounds(j.Rounds)
	s.jobs[j.ID] = j

	out := cloneJob(&j)
	return &out, nil
}

func cloneJob(j *types.Job) types.Job {
	out := *j
	out.Rounds = slices.Clone(j.Rounds)
	out.Rules.AllowedBranches = slices.Clone(j.Rules.AllowedBranches)
	out.Rules.AllowedYears = slices.Clone(j.Rules.AllowedYears)
	return out
}

func sortRounds(rounds []types.Round) {
	slices.SortFunc(rounds, func(a, b types.Round) int { return a.Number - b.Number })
}
