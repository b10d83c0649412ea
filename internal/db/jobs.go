package db

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/placement-portal/internal/types"
)

const jobColumns = `id, company, title, allowed_branches, allowed_years, cpt_mode, require_zero_backlogs, created_at, updated_at`

func scanJob(row pgx.Row) (*types.Job, error) {
	var j types.Job
	var cols ruleColumns
	err := row.Scan(&j.ID, &j.Company, &j.Title,
		&cols.AllowedBranches, &cols.AllowedYears, &cols.CPTMode, &cols.RequireZeroBacklogs,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if j.Rules, err = cols.ruleSet(); err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a job and its rounds in one transaction.
func (db *DB) CreateJob(ctx context.Context, job *types.Job) (*types.Job, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cols := toRuleColumns(job.Rules)
	created, err := scanJob(tx.QueryRow(ctx,
		`INSERT INTO jobs (company, title, allowed_branches, allowed_years, cpt_mode, require_zero_backlogs)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+jobColumns,
		job.Company, job.Title, cols.AllowedBranches, cols.AllowedYears, cols.CPTMode, cols.RequireZeroBacklogs,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	created.Rounds = make([]types.Round, 0, len(job.Rounds))
	for _, r := range job.Rounds {
		round := types.Round{JobID: created.ID, Number: r.Number, Name: r.Name}
		err = tx.QueryRow(ctx,
			`INSERT INTO rounds (job_id, number, name) VALUES ($1, $2, $3) RETURNING id`,
			created.ID, r.Number, r.Name,
		).Scan(&round.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert round %q: %w", r.Name, err)
		}
		created.Rounds = append(created.Rounds, round)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	sortRounds(created.Rounds)
	return created, nil
}

// GetJob retrieves a job with its rounds. Returns nil, nil if not found.
func (db *DB) GetJob(ctx context.Context, jobID uuid.UUID) (*types.Job, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`,
		jobID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if job.Rounds, err = db.listRounds(ctx, jobID); err != nil {
		return nil, err
	}
	return job, nil
}

func (db *DB) listRounds(ctx context.Context, jobID uuid.UUID) ([]types.Round, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, number, name FROM rounds WHERE job_id = $1 ORDER BY number`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	rounds := []types.Round{}
	for rows.Next() {
		var r types.Round
		if err := rows.Scan(&r.ID, &r.JobID, &r.Number, &r.Name); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// GetRoundByName finds a job's round by case-insensitive name. Returns nil, nil if not found.
func (db *DB) GetRoundByName(ctx context.Context, jobID uuid.UUID, name string) (*types.Round, error) {
	var r types.Round
	err := db.pool.QueryRow(ctx,
		`SELECT id, job_id, number, name FROM rounds WHERE job_id = $1 AND lower(name) = lower($2)`,
		jobID, name,
	).Scan(&r.ID, &r.JobID, &r.Number, &r.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return &r, nil
}

// ReplaceJob overwrites a job's details, rule-set and rounds in one transaction. Rounds are
// matched by number, so a renamed round keeps its ID and its results; rounds whose number
// disappears are deleted along with their results. Returns nil, nil if the job does not exist.
func (db *DB) ReplaceJob(ctx context.Context, job *types.Job) (*types.Job, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cols := toRuleColumns(job.Rules)
	updated, err := scanJob(tx.QueryRow(ctx,
		`UPDATE jobs SET
		     company = $2,
		     title = $3,
		     allowed_branches = $4,
		     allowed_years = $5,
		     cpt_mode = $6,
		     require_zero_backlogs = $7,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+jobColumns,
		job.ID, job.Company, job.Title, cols.AllowedBranches, cols.AllowedYears, cols.CPTMode, cols.RequireZeroBacklogs,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	numbers := make([]int, 0, len(job.Rounds))
	for _, r := range job.Rounds {
		numbers = append(numbers, r.Number)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM rounds WHERE job_id = $1 AND NOT (number = ANY($2))`,
		job.ID, numbers,
	); err != nil {
		return nil, fmt.Errorf("failed to delete removed rounds: %w", err)
	}

	// Park surviving names on their IDs so swapped names do not trip the unique name index.
	if _, err := tx.Exec(ctx, `UPDATE rounds SET name = id::text WHERE job_id = $1`, job.ID); err != nil {
		return nil, fmt.Errorf("failed to reset round names: %w", err)
	}

	updated.Rounds = make([]types.Round, 0, len(job.Rounds))
	for _, r := range job.Rounds {
		round := types.Round{JobID: job.ID, Number: r.Number, Name: r.Name}
		err = tx.QueryRow(ctx,
			`INSERT INTO rounds (job_id, number, name) VALUES ($1, $2, $3)
			 ON CONFLICT (job_id, number) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			job.ID, r.Number, r.Name,
		).Scan(&round.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert round %q: %w", r.Name, err)
		}
		updated.Rounds = append(updated.Rounds, round)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	sortRounds(updated.Rounds)
	return updated, nil
}

func sortRounds(rounds []types.Round) {
	slices.SortFunc(rounds, func(a, b types.Round) int { return a.Number - b.Number })
}
