package eligibility

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"
)

// Member is one candidate in a population.
type Member struct {
	ID      uuid.UUID
	Profile Profile
}

// Population streams candidates to fn. Implementations may scan everything or push filters
// down to an index; callers only rely on seeing each candidate once.
type Population interface {
	ForEach(ctx context.Context, fn func(Member) error) error
}

// Members adapts an in-memory slice to Population.
type Members []Member

// ForEach implements Population.
func (m Members) ForEach(ctx context.Context, fn func(Member) error) error {
	for _, member := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(member); err != nil {
			return err
		}
	}
	return nil
}

// Diff returns the candidates admitted by newRules but not by oldRules, sorted by ID.
// A narrower newRules yields an empty result.
func Diff(population []Member, oldRules, newRules RuleSet) []uuid.UUID {
	ids, _ := DiffPopulation(context.Background(), Members(population), oldRules, newRules)
	return ids
}

// DiffPopulation is Diff over a Population. It makes two passes, one per rule-set, and never
// writes to the population.
func DiffPopulation(ctx context.Context, src Population, oldRules, newRules RuleSet) ([]uuid.UUID, error) {
	before, err := admittedSet(ctx, src, oldRules)
	if err != nil {
		return nil, err
	}
	after, err := admittedSet(ctx, src, newRules)
	if err != nil {
		return nil, err
	}

	out := make([]uuid.UUID, 0)
	for id := range after {
		if _, ok := before[id]; !ok {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out, nil
}

// Admitted returns every candidate in src that rules admit, sorted by ID.
func Admitted(ctx context.Context, src Population, rules RuleSet) ([]uuid.UUID, error) {
	set, err := admittedSet(ctx, src, rules)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out, nil
}

func admittedSet(ctx context.Context, src Population, rules RuleSet) (map[uuid.UUID]struct{}, error) {
	set := make(map[uuid.UUID]struct{})
	err := src.ForEach(ctx, func(m Member) error {
		if Evaluate(m.Profile, rules).Admitted {
			set[m.ID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
}
