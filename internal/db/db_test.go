package db

import (
	"strings"
	"testing"

	"github.com/jonathan/placement-portal/internal/eligibility"
	"github.com/jonathan/placement-portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_DefinesTables(t *testing.T) {
	schema := Schema()
	tables := []string{
		"candidates",
		"jobs",
		"rounds",
		"round_results",
		"notification_outbox",
	}

	for _, table := range tables {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", "schema should define %s", table)
	}
	assert.Contains(t, schema, "PRIMARY KEY (candidate_id, job_id, round_id)", "results must be unique per tuple")
}

func TestSchema_Idempotent(t *testing.T) {
	for _, line := range strings.Split(Schema(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "CREATE ") {
			assert.Contains(t, line, "IF NOT EXISTS", "statement should be re-runnable: %s", line)
		}
	}
}

func TestRuleColumns_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		rules eligibility.RuleSet
		want  eligibility.RuleSet
	}{
		{
			name:  "empty rules",
			rules: eligibility.RuleSet{},
			want:  eligibility.RuleSet{CPTMode: eligibility.CPTBoth},
		},
		{
			name: "normalizes branches",
			rules: eligibility.RuleSet{
				AllowedBranches:     []string{"ece", " CSE", "cse"},
				AllowedYears:        []int{2025, 2024},
				CPTMode:             eligibility.CPTOnly,
				RequireZeroBacklogs: true,
			},
			want: eligibility.RuleSet{
				AllowedBranches:     []string{"CSE", "ECE"},
				AllowedYears:        []int{2024, 2025},
				CPTMode:             eligibility.CPTOnly,
				RequireZeroBacklogs: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := toRuleColumns(tt.rules)
			assert.NotNil(t, cols.AllowedBranches)
			assert.NotNil(t, cols.AllowedYears)

			got, err := cols.ruleSet()
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %+v", got)
		})
	}
}

func TestRuleColumns_InvalidMode(t *testing.T) {
	_, err := ruleColumns{CPTMode: "SOMETIMES"}.ruleSet()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stored rule-set")
}

func TestSortRounds(t *testing.T) {
	rounds := []types.Round{{Number: 3, Name: "HR"}, {Number: 1, Name: "Test"}, {Number: 2, Name: "Tech"}}
	sortRounds(rounds)
	assert.Equal(t, []int{1, 2, 3}, []int{rounds[0].Number, rounds[1].Number, rounds[2].Number})
}
