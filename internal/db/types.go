package db

import (
	"fmt"

	"github.com/jonathan/placement-portal/internal/eligibility"
)

// ruleColumns is the column form of an eligibility rule-set on the jobs table.
type ruleColumns struct {
	AllowedBranches     []string
	AllowedYears        []int
	CPTMode             string
	RequireZeroBacklogs bool
}

func toRuleColumns(r eligibility.RuleSet) ruleColumns {
	r = r.Normalize()
	cols := ruleColumns{
		AllowedBranches:     r.AllowedBranches,
		AllowedYears:        r.AllowedYears,
		CPTMode:             string(r.CPTMode),
		RequireZeroBacklogs: r.RequireZeroBacklogs,
	}
	// Postgres arrays are NOT NULL here; send empty arrays instead of NULL.
	if cols.AllowedBranches == nil {
		cols.AllowedBranches = []string{}
	}
	if cols.AllowedYears == nil {
		cols.AllowedYears = []int{}
	}
	return cols
}

func (c ruleColumns) ruleSet() (eligibility.RuleSet, error) {
	mode, err := eligibility.ParseCPTMode(c.CPTMode)
	if err != nil {
		return eligibility.RuleSet{}, fmt.Errorf("invalid stored rule-set: %w", err)
	}
	return eligibility.RuleSet{
		AllowedBranches:     c.AllowedBranches,
		AllowedYears:        c.AllowedYears,
		CPTMode:             mode,
		RequireZeroBacklogs: c.RequireZeroBacklogs,
	}.Normalize(), nil
}
