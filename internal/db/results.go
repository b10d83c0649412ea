package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/placement-portal/internal/results"
	"github.com/jonathan/placement-portal/internal/types"
)

const resultColumns = `candidate_id, job_id, round_id, status, created_at, updated_at`

// ResultStore implements results.Store on the round_results table.
type ResultStore struct {
	db *DB
}

// Results returns the round result store backed by db.
func (db *DB) Results() *ResultStore {
	return &ResultStore{db: db}
}

func scanResult(row pgx.Row) (*results.Result, error) {
	var r results.Result
	var status string
	if err := row.Scan(&r.CandidateID, &r.JobID, &r.RoundID, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = types.Status(status)
	return &r, nil
}

// Upsert creates or overwrites the result in a single statement. The primary key on
// (candidate_id, job_id, round_id) serializes concurrent writers; xmax is zero only on the
// row version an INSERT produced.
func (s *ResultStore) Upsert(ctx context.Context, key results.Key, status types.Status) (results.UpsertOutcome, error) {
	out := results.UpsertOutcome{Result: results.Result{Key: key, Status: status}}
	err := s.db.pool.QueryRow(ctx,
		`INSERT INTO round_results (candidate_id, job_id, round_id, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (candidate_id, job_id, round_id) DO UPDATE SET
		     status = EXCLUDED.status,
		     updated_at = NOW()
		 RETURNING created_at, updated_at, (xmax = 0)`,
		key.CandidateID, key.JobID, key.RoundID, string(status),
	).Scan(&out.Result.CreatedAt, &out.Result.UpdatedAt, &out.Created)
	if err != nil {
		return results.UpsertOutcome{}, fmt.Errorf("failed to upsert result %s: %w", key, err)
	}
	return out, nil
}

// Find returns nil, nil if no result exists for key.
func (s *ResultStore) Find(ctx context.Context, key results.Key) (*results.Result, error) {
	r, err := scanResult(s.db.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM round_results
		 WHERE candidate_id = $1 AND job_id = $2 AND round_id = $3`,
		key.CandidateID, key.JobID, key.RoundID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find result %s: %w", key, err)
	}
	return r, nil
}

// Delete reports whether a row was removed.
func (s *ResultStore) Delete(ctx context.Context, key results.Key) (bool, error) {
	tag, err := s.db.pool.Exec(ctx,
		`DELETE FROM round_results WHERE candidate_id = $1 AND job_id = $2 AND round_id = $3`,
		key.CandidateID, key.JobID, key.RoundID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete result %s: %w", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByCandidate returns a candidate's results across all jobs, most recent first.
func (s *ResultStore) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]results.Result, error) {
	return s.list(ctx,
		`SELECT `+resultColumns+` FROM round_results WHERE candidate_id = $1 ORDER BY updated_at DESC`,
		candidateID)
}

// ListByRound returns every result recorded at one round, most recent first.
func (s *ResultStore) ListByRound(ctx context.Context, jobID, roundID uuid.UUID) ([]results.Result, error) {
	return s.list(ctx,
		`SELECT `+resultColumns+` FROM round_results WHERE job_id = $1 AND round_id = $2 ORDER BY updated_at DESC`,
		jobID, roundID)
}

func (s *ResultStore) list(ctx context.Context, query string, args ...any) ([]results.Result, error) {
	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	out := []results.Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
