// Package jobs creates and updates job openings and tells candidates when they become
// eligible for one.
package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/eligibility"
	"github.com/jonathan/placement-portal/internal/notify"
	"github.com/jonathan/placement-portal/internal/types"
	"go.uber.org/zap"
)

// Repository stores jobs and their rounds.
type Repository interface {
	// CreateJob assigns IDs to the job and its rounds and stores them.
	CreateJob(ctx context.Context, job *types.Job) (*types.Job, error)
	// GetJob returns nil, nil when the job does not exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.Job, error)
	// ReplaceJob atomically replaces the job's details, rule-set and rounds. Rounds are matched
	// by number so a renamed round keeps its ID and results.
	ReplaceJob(ctx context.Context, job *types.Job) (*types.Job, error)
}

// Candidates looks up candidates by ID.
type Candidates interface {
	// GetCandidate returns nil, nil when the candidate does not exist.
	GetCandidate(ctx context.Context, candidateID uuid.UUID) (*types.Candidate, error)
}

// Dispatcher accepts notifications for asynchronous delivery.
type Dispatcher interface {
	Dispatch(msg notify.Message) <-chan error
}

// Service implements job creation, updates and eligibility checks.
type Service struct {
	repo       Repository
	candidates Candidates
	population eligibility.Population
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewService creates a Service.
func NewService(repo Repository, candidates Candidates, population eligibility.Population, dispatcher Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		candidates: candidates,
		population: population,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Change describes the effect of creating or updating a job.
type Change struct {
	Job          *types.Job  `json:"job"`
	RulesChanged bool        `json:"rules_changed"`
	Notified     []uuid.UUID `json:"notified"`
}

// CreateJob stores a new job and notifies every candidate its rules admit.
func (s *Service) CreateJob(ctx context.Context, req *types.JobRequest) (*Change, error) {
	job, err := buildJob(req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	audience, err := eligibility.Admitted(ctx, s.population, created.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to compute eligible candidates: %w", err)
	}

	notified := s.announce(ctx, created, audience)
	s.logger.Info("job created",
		zap.String("job_id", created.ID.String()),
		zap.Int("rounds", len(created.Rounds)),
		zap.Int("eligible", len(audience)),
		zap.Int("notified", len(notified)))

	return &Change{Job: created, RulesChanged: true, Notified: notified}, nil
}

// UpdateJob replaces a job's details, rules and rounds. When the rule-set changes, only
// candidates who were not eligible before and are now get notified.
func (s *Service) UpdateJob(ctx context.Context, jobID uuid.UUID, req *types.JobRequest) (*Change, error) {
	existing, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if existing == nil {
		return nil, &NotFoundError{Resource: "job", ID: jobID.String()}
	}

	job, err := buildJob(req)
	if err != nil {
		return nil, err
	}
	job.ID = jobID

	updated, err := s.repo.ReplaceJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if updated == nil {
		return nil, &NotFoundError{Resource: "job", ID: jobID.String()}
	}

	change := &Change{Job: updated, Notified: []uuid.UUID{}}
	if existing.Rules.Equal(updated.Rules) {
		return change, nil
	}
	change.RulesChanged = true

	newlyEligible, err := eligibility.DiffPopulation(ctx, s.population, existing.Rules, updated.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to compute newly eligible candidates: %w", err)
	}
	change.Notified = s.announce(ctx, updated, newlyEligible)

	s.logger.Info("job rules updated",
		zap.String("job_id", updated.ID.String()),
		zap.Int("newly_eligible", len(newlyEligible)),
		zap.Int("notified", len(change.Notified)))

	return change, nil
}

// GetJob returns a job with its rounds.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*types.Job, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, &NotFoundError{Resource: "job", ID: jobID.String()}
	}
	return job, nil
}

// Check is a single-candidate admission decision.
type Check struct {
	CandidateID uuid.UUID           `json:"candidate_id"`
	JobID       uuid.UUID           `json:"job_id"`
	Verdict     eligibility.Verdict `json:"verdict"`
}

// CheckEligibility evaluates one candidate against one job's current rules.
func (s *Service) CheckEligibility(ctx context.Context, candidateID, jobID uuid.UUID) (*Check, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	candidate, err := s.candidates.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	if candidate == nil {
		return nil, &NotFoundError{Resource: "candidate", ID: candidateID.String()}
	}
	return &Check{
		CandidateID: candidateID,
		JobID:       jobID,
		Verdict:     eligibility.Evaluate(candidate.Profile, job.Rules),
	}, nil
}

// PreviewDiff returns who would become newly eligible if the job's rules were replaced by
// rules. Nothing is written and nobody is notified.
func (s *Service) PreviewDiff(ctx context.Context, jobID uuid.UUID, input types.RuleSetInput) ([]uuid.UUID, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	rules, err := toRuleSet(input)
	if err != nil {
		return nil, err
	}
	ids, err := eligibility.DiffPopulation(ctx, s.population, job.Rules, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to compute newly eligible candidates: %w", err)
	}
	return ids, nil
}

// announce queues a job opening notification for each candidate and returns who was queued.
func (s *Service) announce(ctx context.Context, job *types.Job, candidateIDs []uuid.UUID) []uuid.UUID {
	notified := make([]uuid.UUID, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		candidate, err := s.candidates.GetCandidate(ctx, id)
		if err != nil || candidate == nil {
			s.logger.Warn("skipping notification for unknown candidate",
				zap.String("candidate_id", id.String()),
				zap.Error(err))
			continue
		}
		// Delivery failures are logged by the dispatcher.
		s.dispatcher.Dispatch(notify.Message{
			Contact: notify.Contact{
				CandidateID: candidate.ID,
				Name:        candidate.Name,
				Email:       candidate.Contact(),
			},
			Template: notify.TemplateJobOpening,
			Payload: notify.Payload{
				"job_id":  job.ID.String(),
				"company": job.Company,
				"title":   job.Title,
			},
		})
		notified = append(notified, id)
	}
	return notified
}

func buildJob(req *types.JobRequest) (*types.Job, error) {
	if req == nil {
		return nil, &ValidationError{Field: "request", Message: "request body is required"}
	}
	if err := req.Validate(); err != nil {
		return nil, fromValidator(err)
	}
	rules, err := toRuleSet(req.Rules)
	if err != nil {
		return nil, err
	}

	job := &types.Job{
		Company: strings.TrimSpace(req.Company),
		Title:   strings.TrimSpace(req.Title),
		Rules:   rules,
		Rounds:  make([]types.Round, 0, len(req.Rounds)),
	}

	names := make(map[string]struct{}, len(req.Rounds))
	numbers := make(map[int]struct{}, len(req.Rounds))
	for _, r := range req.Rounds {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, &ValidationError{Field: "rounds", Message: "round name is required"}
		}
		key := strings.ToLower(name)
		if _, dup := names[key]; dup {
			return nil, &ValidationError{Field: "rounds", Message: "duplicate round name " + name}
		}
		if _, dup := numbers[r.Number]; dup {
			return nil, &ValidationError{Field: "rounds", Message: fmt.Sprintf("duplicate round number %d", r.Number)}
		}
		names[key] = struct{}{}
		numbers[r.Number] = struct{}{}
		job.Rounds = append(job.Rounds, types.Round{Number: r.Number, Name: name})
	}
	return job, nil
}

func toRuleSet(input types.RuleSetInput) (eligibility.RuleSet, error) {
	rules, err := input.ToRuleSet()
	if err != nil {
		return eligibility.RuleSet{}, &ValidationError{Field: "rules.cpt_mode", Message: err.Error()}
	}
	if err := rules.Validate(); err != nil {
		return eligibility.RuleSet{}, &ValidationError{Field: "rules", Message: err.Error()}
	}
	return rules, nil
}
