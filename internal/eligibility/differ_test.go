package eligibility

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func population() []Member {
	return []Member{
		{ID: uuid.New(), Profile: Profile{Branch: "CSE", PassingYear: 2024}},
		{ID: uuid.New(), Profile: Profile{Branch: "ECE", PassingYear: 2024}},
		{ID: uuid.New(), Profile: Profile{Branch: "ECE", PassingYear: 2025, CPT: true}},
		{ID: uuid.New(), Profile: Profile{Branch: "MECH", PassingYear: 2024, ActiveBacklogs: 1}},
		{ID: uuid.New(), Profile: Profile{Branch: "CSE", PassingYear: 2023}},
	}
}

// bruteForceDiff is the set-builder definition of the diff.
func bruteForceDiff(pop []Member, oldRules, newRules RuleSet) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool)
	for _, m := range pop {
		if Evaluate(m.Profile, newRules).Admitted && !Evaluate(m.Profile, oldRules).Admitted {
			out[m.ID] = true
		}
	}
	return out
}

func TestDiff_Widening(t *testing.T) {
	pop := population()
	oldRules := RuleSet{AllowedBranches: []string{"CSE"}, AllowedYears: []int{2024}, CPTMode: CPTBoth}
	newRules := RuleSet{AllowedBranches: []string{"CSE", "ECE"}, AllowedYears: []int{2024}, CPTMode: CPTBoth}

	got := Diff(pop, oldRules, newRules)
	assert.Equal(t, []uuid.UUID{pop[1].ID}, got)
}

func TestDiff_MatchesDefinition(t *testing.T) {
	pop := population()
	cases := []struct {
		name     string
		oldRules RuleSet
		newRules RuleSet
	}{
		{"open everything", RuleSet{AllowedBranches: []string{"CSE"}, RequireZeroBacklogs: true}, RuleSet{}},
		{"switch cpt", RuleSet{CPTMode: CPTOnly}, RuleSet{CPTMode: CPTExclude}},
		{"add year", RuleSet{AllowedYears: []int{2024}}, RuleSet{AllowedYears: []int{2023, 2024, 2025}}},
		{"identical", RuleSet{AllowedYears: []int{2024}}, RuleSet{AllowedYears: []int{2024}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := bruteForceDiff(pop, tc.oldRules, tc.newRules)
			got := Diff(pop, tc.oldRules, tc.newRules)

			require.Len(t, got, len(want))
			for _, id := range got {
				assert.True(t, want[id], "unexpected id %s", id)
			}
		})
	}
}

func TestDiff_NarrowingIsEmpty(t *testing.T) {
	pop := population()
	oldRules := RuleSet{CPTMode: CPTBoth}
	newRules := RuleSet{AllowedBranches: []string{"CSE"}, AllowedYears: []int{2024}, CPTMode: CPTExclude, RequireZeroBacklogs: true}

	got := Diff(pop, oldRules, newRules)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDiff_PreviouslyEligibleNotRepeated(t *testing.T) {
	pop := population()
	oldRules := RuleSet{AllowedBranches: []string{"CSE"}}
	newRules := RuleSet{AllowedBranches: []string{"CSE", "MECH"}}

	got := Diff(pop, oldRules, newRules)
	for _, id := range got {
		assert.NotEqual(t, pop[0].ID, id, "candidate eligible under both rule-sets must not be included")
	}
	assert.Equal(t, []uuid.UUID{pop[3].ID}, got)
}

func TestAdmitted(t *testing.T) {
	pop := population()
	got, err := Admitted(context.Background(), Members(pop), RuleSet{AllowedBranches: []string{"ECE"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{pop[1].ID, pop[2].ID}, got)
}

type failingPopulation struct{ err error }

func (f failingPopulation) ForEach(context.Context, func(Member) error) error { return f.err }

func TestDiffPopulation_SourceError(t *testing.T) {
	boom := errors.New("scan failed")
	_, err := DiffPopulation(context.Background(), failingPopulation{err: boom}, RuleSet{}, RuleSet{})
	assert.ErrorIs(t, err, boom)
}

func TestMembers_ForEachRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Members(population()).ForEach(ctx, func(Member) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
