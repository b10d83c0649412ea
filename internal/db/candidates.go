package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/placement-portal/internal/eligibility"
	"github.com/jonathan/placement-portal/internal/types"
)

const candidateColumns = `id, email, roll_number, name, branch, passing_year, active_backlogs, cpt, created_at, updated_at`

func scanCandidate(row pgx.Row) (*types.Candidate, error) {
	var c types.Candidate
	err := row.Scan(&c.ID, &c.Email, &c.RollNumber, &c.Name,
		&c.Profile.Branch, &c.Profile.PassingYear, &c.Profile.ActiveBacklogs, &c.Profile.CPT,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCandidate inserts a candidate and returns it with its generated ID.
func (db *DB) CreateCandidate(ctx context.Context, c *types.Candidate) (*types.Candidate, error) {
	created, err := scanCandidate(db.pool.QueryRow(ctx,
		`INSERT INTO candidates (email, roll_number, name, branch, passing_year, active_backlogs, cpt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+candidateColumns,
		strings.TrimSpace(c.Email), strings.TrimSpace(c.RollNumber), c.Name,
		strings.ToUpper(strings.TrimSpace(c.Profile.Branch)), c.Profile.PassingYear, c.Profile.ActiveBacklogs, c.Profile.CPT,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}
	return created, nil
}

// GetCandidate retrieves a candidate by ID. Returns nil, nil if not found.
func (db *DB) GetCandidate(ctx context.Context, candidateID uuid.UUID) (*types.Candidate, error) {
	c, err := scanCandidate(db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`,
		candidateID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// ResolveCandidate finds a candidate by ID, email or roll number. Email and roll number
// match case-insensitively. Returns nil, nil if nothing matches.
func (db *DB) ResolveCandidate(ctx context.Context, identifier string) (*types.Candidate, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	if id, err := uuid.Parse(identifier); err == nil {
		return db.GetCandidate(ctx, id)
	}

	c, err := scanCandidate(db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE lower(email) = lower($1) OR lower(roll_number) = lower($1)
		 ORDER BY created_at
		 LIMIT 1`,
		identifier,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve candidate %q: %w", identifier, err)
	}
	return c, nil
}

// ForEach streams every candidate's eligibility profile in ID order. It implements
// eligibility.Population without loading the whole table into memory.
func (db *DB) ForEach(ctx context.Context, fn func(eligibility.Member) error) error {
	rows, err := db.pool.Query(ctx,
		`SELECT id, branch, passing_year, active_backlogs, cpt FROM candidates ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to scan candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m eligibility.Member
		if err := rows.Scan(&m.ID, &m.Profile.Branch, &m.Profile.PassingYear, &m.Profile.ActiveBacklogs, &m.Profile.CPT); err != nil {
			return fmt.Errorf("failed to scan candidate: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return rows.Err()
}
