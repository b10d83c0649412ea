// Package eligibility decides whether a candidate qualifies for a job opening and computes
// which candidates become newly eligible when a job's rule-set changes.
package eligibility

import (
	"fmt"
	"slices"
	"strings"
)

// CPTMode restricts a job to candidates inside or outside the central placement track.
type CPTMode string

// CPTMode values
const (
	CPTOnly    CPTMode = "CPT"
	CPTExclude CPTMode = "NON_CPT"
	CPTBoth    CPTMode = "BOTH"
)

// ParseCPTMode parses a mode label. An empty label means BOTH.
func ParseCPTMode(s string) (CPTMode, error) {
	switch CPTMode(strings.ToUpper(strings.TrimSpace(s))) {
	case CPTOnly:
		return CPTOnly, nil
	case CPTExclude:
		return CPTExclude, nil
	case CPTBoth, "":
		return CPTBoth, nil
	default:
		return "", fmt.Errorf("unknown cpt mode %q", s)
	}
}

// Reason identifies a single failed eligibility check.
type Reason string

// Reason values, in the order Evaluate reports them
const (
	ReasonActiveBacklogs   Reason = "ActiveBacklogs"
	ReasonBranchNotAllowed Reason = "BranchNotAllowed"
	ReasonYearNotAllowed   Reason = "YearNotAllowed"
	ReasonCPTMismatch      Reason = "CptMismatch"
)

// Profile is the part of a candidate that eligibility rules look at.
type Profile struct {
	Branch         string `json:"branch"`
	PassingYear    int    `json:"passing_year"`
	ActiveBacklogs int    `json:"active_backlogs"`
	CPT            bool   `json:"cpt"`
}

// RuleSet holds the eligibility constraints attached to a job.
// Empty AllowedBranches or AllowedYears means no restriction on that axis.
type RuleSet struct {
	AllowedBranches     []string `json:"allowed_branches"`
	AllowedYears        []int    `json:"allowed_years"`
	CPTMode             CPTMode  `json:"cpt_mode"`
	RequireZeroBacklogs bool     `json:"require_zero_backlogs"`
}

// Normalize returns a copy with branch codes upper-cased, duplicates removed and both sets sorted.
func (r RuleSet) Normalize() RuleSet {
	out := RuleSet{
		CPTMode:             r.CPTMode,
		RequireZeroBacklogs: r.RequireZeroBacklogs,
	}
	if out.CPTMode == "" {
		out.CPTMode = CPTBoth
	}
	for _, b := range r.AllowedBranches {
		b = normalizeBranch(b)
		if b != "" {
			out.AllowedBranches = append(out.AllowedBranches, b)
		}
	}
	slices.Sort(out.AllowedBranches)
	out.AllowedBranches = slices.Compact(out.AllowedBranches)

	out.AllowedYears = append(out.AllowedYears, r.AllowedYears...)
	slices.Sort(out.AllowedYears)
	out.AllowedYears = slices.Compact(out.AllowedYears)
	return out
}

// Equal reports whether two rule-sets admit exactly the same profiles.
func (r RuleSet) Equal(other RuleSet) bool {
	a, b := r.Normalize(), other.Normalize()
	return a.CPTMode == b.CPTMode &&
		a.RequireZeroBacklogs == b.RequireZeroBacklogs &&
		slices.Equal(a.AllowedBranches, b.AllowedBranches) &&
		slices.Equal(a.AllowedYears, b.AllowedYears)
}

// Validate checks that the rule-set can be evaluated.
func (r RuleSet) Validate() error {
	switch r.CPTMode {
	case CPTOnly, CPTExclude, CPTBoth, "":
	default:
		return fmt.Errorf("unknown cpt mode %q", r.CPTMode)
	}
	for _, y := range r.AllowedYears {
		if y <= 0 {
			return fmt.Errorf("allowed year must be positive, got %d", y)
		}
	}
	return nil
}

// Verdict is the outcome of evaluating one profile against one rule-set.
type Verdict struct {
	Admitted bool     `json:"admitted"`
	Reasons  []Reason `json:"reasons"`
}

// Evaluate checks profile against rules. Every check runs, so the verdict lists all failing
// reasons at once. Evaluate has no side effects.
func Evaluate(profile Profile, rules RuleSet) Verdict {
	reasons := []Reason{}

	if rules.RequireZeroBacklogs && profile.ActiveBacklogs > 0 {
		reasons = append(reasons, ReasonActiveBacklogs)
	}

	if len(rules.AllowedBranches) > 0 && !containsBranch(rules.AllowedBranches, profile.Branch) {
		reasons = append(reasons, ReasonBranchNotAllowed)
	}

	if len(rules.AllowedYears) > 0 && !slices.Contains(rules.AllowedYears, profile.PassingYear) {
		reasons = append(reasons, ReasonYearNotAllowed)
	}

	switch rules.CPTMode {
	case CPTOnly:
		if !profile.CPT {
			reasons = append(reasons, ReasonCPTMismatch)
		}
	case CPTExclude:
		if profile.CPT {
			reasons = append(reasons, ReasonCPTMismatch)
		}
	}

	return Verdict{Admitted: len(reasons) == 0, Reasons: reasons}
}

func containsBranch(allowed []string, branch string) bool {
	branch = normalizeBranch(branch)
	for _, b := range allowed {
		if normalizeBranch(b) == branch {
			return true
		}
	}
	return false
}

func normalizeBranch(b string) string {
	return strings.ToUpper(strings.TrimSpace(b))
}
