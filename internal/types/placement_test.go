//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/eligibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Normalize(t *testing.T) {
	assert.Equal(t, StatusOnHold, Status("  On Hold\t").Normalize())
	assert.Equal(t, Status(""), Status("   ").Normalize())
}

func TestJob_RoundByName(t *testing.T) {
	job := &Job{Rounds: []Round{
		{ID: uuid.New(), Number: 1, Name: "Aptitude"},
		{ID: uuid.New(), Number: 2, Name: "Final Interview"},
	}}

	tests := []struct {
		name   string
		lookup string
		want   int
	}{
		{"exact", "Aptitude", 1},
		{"case insensitive", "final interview", 2},
		{"surrounding whitespace", "  APTITUDE ", 1},
		{"missing", "HR", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			round := job.RoundByName(tt.lookup)
			if tt.want == 0 {
				assert.Nil(t, round)
				return
			}
			require.NotNil(t, round)
			assert.Equal(t, tt.want, round.Number)
		})
	}
}

func TestJob_RoundByNameReturnsSliceElement(t *testing.T) {
	job := &Job{Rounds: []Round{{Number: 1, Name: "R1"}}}
	job.RoundByName("R1").Name = "Renamed"
	assert.Equal(t, "Renamed", job.Rounds[0].Name)
}

func TestCandidate_JSON(t *testing.T) {
	c := Candidate{
		ID:         uuid.New(),
		Email:      "alice@example.com",
		RollNumber: "21CS001",
		Profile:    eligibility.Profile{Branch: "CSE", PassingYear: 2024, CPT: true},
	}
	assert.Equal(t, "alice@example.com", c.Contact())

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "21CS001", raw["roll_number"])
	profile, ok := raw["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CSE", profile["branch"])
	assert.Equal(t, true, profile["cpt"])
}
