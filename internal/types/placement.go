// Package types provides type definitions for structured data used throughout the placement portal.
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/eligibility"
)

// Status is an open result label such as "Qualified" or "Rejected".
// The vocabulary is defined by call sites and checked against a configured allow-list.
type Status string

// Common status labels
const (
	StatusQualified Status = "Qualified"
	StatusRejected  Status = "Rejected"
	StatusOnHold    Status = "On Hold"
	StatusSelected  Status = "Selected"
)

// Normalize trims surrounding whitespace.
func (s Status) Normalize() Status {
	return Status(strings.TrimSpace(string(s)))
}

// Candidate is a registered user who can apply to jobs.
type Candidate struct {
	ID         uuid.UUID           `json:"id"`
	Email      string              `json:"email"`
	RollNumber string              `json:"roll_number"`
	Name       string              `json:"name"`
	Profile    eligibility.Profile `json:"profile"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Contact returns the address notifications for this candidate go to.
func (c *Candidate) Contact() string {
	return c.Email
}

// Job is a job opening with its eligibility rules and interview rounds.
type Job struct {
	ID        uuid.UUID           `json:"id"`
	Company   string              `json:"company"`
	Title     string              `json:"title"`
	Rules     eligibility.RuleSet `json:"rules"`
	Rounds    []Round             `json:"rounds,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Round is one interview stage of a job. Name is unique within the job.
type Round struct {
	ID     uuid.UUID `json:"id"`
	JobID  uuid.UUID `json:"job_id"`
	Number int       `json:"number"`
	Name   string    `json:"name"`
}

// RoundByName returns the round with the given name, matched case-insensitively.
func (j *Job) RoundByName(name string) *Round {
	name = strings.TrimSpace(name)
	for i := range j.Rounds {
		if strings.EqualFold(j.Rounds[i].Name, name) {
			return &j.Rounds[i]
		}
	}
	return nil
}
