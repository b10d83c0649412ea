// Package results records each candidate's outcome at each interview round.
//
// A Result is identified by the (candidate, job, round) tuple alone; no Store implementation
// may hold two rows for the same tuple. Rounds are referenced by their surrogate ID so that
// renaming a round keeps its results attached.
package results

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/types"
)

// Key is the identity of a Result.
type Key struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	JobID       uuid.UUID `json:"job_id"`
	RoundID     uuid.UUID `json:"round_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.CandidateID, k.JobID, k.RoundID)
}

// Result is the recorded outcome of one candidate at one round of one job.
type Result struct {
	Key
	Status    types.Status `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UpsertOutcome reports what an Upsert did.
type UpsertOutcome struct {
	Created bool
	Result  Result
}

// Store persists Results.
type Store interface {
	// Upsert creates the Result for key or overwrites its status and timestamp.
	// It must be a single atomic create-or-update so that concurrent calls for the
	// same key never produce two rows.
	Upsert(ctx context.Context, key Key, status types.Status) (UpsertOutcome, error)
	// Find returns nil, nil when no Result exists for key.
	Find(ctx context.Context, key Key) (*Result, error)
	// Delete reports whether a Result existed and was removed.
	Delete(ctx context.Context, key Key) (bool, error)
	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]Result, error)
	ListByRound(ctx context.Context, jobID, roundID uuid.UUID) ([]Result, error)
}
