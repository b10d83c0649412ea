package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/jonathan/placement-portal/internal/eligibility"
)

// RoundInput describes a round when creating or updating a job.
type RoundInput struct {
	Number int    `json:"number" validate:"required,min=1"`
	Name   string `json:"name" validate:"required,min=1,max=100"`
}

// RuleSetInput is the wire form of an eligibility rule-set.
type RuleSetInput struct {
	AllowedBranches     []string `json:"allowed_branches" validate:"dive,required"`
	AllowedYears        []int    `json:"allowed_years" validate:"dive,min=1900,max=2100"`
	CPTMode             string   `json:"cpt_mode" validate:"omitempty,oneof=CPT NON_CPT BOTH"`
	RequireZeroBacklogs bool     `json:"require_zero_backlogs"`
}

// ToRuleSet converts the input into a normalized rule-set.
func (r RuleSetInput) ToRuleSet() (eligibility.RuleSet, error) {
	mode, err := eligibility.ParseCPTMode(r.CPTMode)
	if err != nil {
		return eligibility.RuleSet{}, err
	}
	return eligibility.RuleSet{
		AllowedBranches:     r.AllowedBranches,
		AllowedYears:        r.AllowedYears,
		CPTMode:             mode,
		RequireZeroBacklogs: r.RequireZeroBacklogs,
	}.Normalize(), nil
}

// JobRequest creates or replaces a job's rules and rounds.
type JobRequest struct {
	Company string       `json:"company" validate:"required,max=200"`
	Title   string       `json:"title" validate:"required,max=200"`
	Rules   RuleSetInput `json:"rules"`
	Rounds  []RoundInput `json:"rounds" validate:"dive"`
}

// BulkResultRequest uploads one status for many candidates at a round.
type BulkResultRequest struct {
	Status      string   `json:"status" validate:"required"`
	Identifiers []string `json:"identifiers" validate:"required,min=1"`
}

// BulkRetractRequest removes results for many candidates at a round.
type BulkRetractRequest struct {
	Identifiers []string `json:"identifiers" validate:"required,min=1"`
}

// Validate validates the JobRequest using the validator.
func (r *JobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the BulkResultRequest using the validator.
func (r *BulkResultRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the BulkRetractRequest using the validator.
func (r *BulkRetractRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
