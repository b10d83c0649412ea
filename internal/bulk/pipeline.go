// Package bulk records and retracts round results for many candidates at once.
//
// Every input identifier ends up in exactly one report bucket. Problems with individual
// candidates never fail the call; only invalid parameters or an unknown job or round do.
package bulk

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/notify"
	"github.com/jonathan/placement-portal/internal/results"
	"github.com/jonathan/placement-portal/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Directory resolves candidate identifiers (ID, email or roll number).
type Directory interface {
	// ResolveCandidate returns nil, nil when the identifier matches no candidate.
	ResolveCandidate(ctx context.Context, identifier string) (*types.Candidate, error)
}

// Catalog looks up jobs and their rounds.
type Catalog interface {
	// GetJob returns nil, nil when the job does not exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.Job, error)
	// GetRoundByName returns nil, nil when the job has no round with that name.
	GetRoundByName(ctx context.Context, jobID uuid.UUID, name string) (*types.Round, error)
}

// Dispatcher accepts notifications for asynchronous delivery.
type Dispatcher interface {
	Dispatch(msg notify.Message) <-chan error
}

// Options tunes a Pipeline.
type Options struct {
	Statuses StatusPolicy
	// Concurrency bounds how many identifiers are processed at once.
	Concurrency int
	// MaxIdentifiers caps the batch size; 0 means no cap.
	MaxIdentifiers int
	// NotifyWait bounds how long a call waits for notification outcomes before reporting the
	// rest as pending.
	NotifyWait time.Duration
}

// Pipeline runs bulk ingestion and retraction.
type Pipeline struct {
	directory  Directory
	catalog    Catalog
	store      results.Store
	dispatcher Dispatcher
	opts       Options
	logger     *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(directory Directory, catalog Catalog, store results.Store, dispatcher Dispatcher, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.NotifyWait <= 0 {
		opts.NotifyWait = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		directory:  directory,
		catalog:    catalog,
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
}

// IngestRequest records one status for a batch of candidates at a round.
type IngestRequest struct {
	JobID       uuid.UUID
	RoundName   string
	Status      types.Status
	Identifiers []string
}

// RetractRequest removes a batch of candidates' results at a round.
type RetractRequest struct {
	JobID       uuid.UUID
	RoundName   string
	Identifiers []string
}

type outcomeKind int

const (
	kindNotFound outcomeKind = iota
	kindDuplicate
	kindAdded
	kindUpdated
	kindDeleted
)

// entry is the per-identifier state of a batch.
type entry struct {
	identifier string
	kind       outcomeKind
	candidate  *types.Candidate
	failure    string
	ticket     <-chan error
}

// target is the resolved job and round a batch applies to.
type target struct {
	job   *types.Job
	round *types.Round
}

func (p *Pipeline) validateBatch(jobID uuid.UUID, roundName string, identifiers []string) error {
	if jobID == uuid.Nil {
		return &ValidationError{Field: "job_id", Message: "job id is required"}
	}
	if strings.TrimSpace(roundName) == "" {
		return &ValidationError{Field: "round_name", Message: "round name is required"}
	}
	if len(identifiers) == 0 {
		return &ValidationError{Field: "identifiers", Message: "at least one candidate identifier is required"}
	}
	if p.opts.MaxIdentifiers > 0 && len(identifiers) > p.opts.MaxIdentifiers {
		return &ValidationError{Field: "identifiers", Message: "too many identifiers in one batch"}
	}
	return nil
}

func (p *Pipeline) resolveTarget(ctx context.Context, jobID uuid.UUID, roundName string) (*target, error) {
	job, err := p.catalog.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &NotFoundError{Resource: "job", ID: jobID.String()}
	}
	round, err := p.catalog.GetRoundByName(ctx, jobID, strings.TrimSpace(roundName))
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, &NotFoundError{Resource: "round", ID: roundName}
	}
	return &target{job: job, round: round}, nil
}

// newEntries marks repeated identifiers as duplicates; the first occurrence wins. Different
// identifiers for the same candidate are caught later by claim.
func newEntries(identifiers []string, markDuplicates bool) ([]*entry, []int) {
	entries := make([]*entry, len(identifiers))
	work := make([]int, 0, len(identifiers))
	seen := make(map[string]struct{}, len(identifiers))

	for i, id := range identifiers {
		e := &entry{identifier: id, kind: kindNotFound}
		entries[i] = e

		key := normalizeIdentifier(id)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			if markDuplicates {
				e.kind = kindDuplicate
			}
			continue
		}
		seen[key] = struct{}{}
		work = append(work, i)
	}
	return entries, work
}

// forEach runs fn for every entry in work, at most Concurrency at a time.
func (p *Pipeline) forEach(entries []*entry, work []int, fn func(*entry)) {
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for _, i := range work {
		e := entries[i]
		g.Go(func() error {
			fn(e)
			return nil
		})
	}
	_ = g.Wait()
}

// resolveBatch looks up every pending entry and returns, in input order, the ones that claimed a
// candidate first. A later entry resolving to an already claimed candidate is marked duplicate
// when markDuplicates is set and left NotFound otherwise.
func (p *Pipeline) resolveBatch(ctx context.Context, entries []*entry, work []int, markDuplicates bool) []int {
	p.forEach(entries, work, func(e *entry) {
		p.resolve(ctx, e)
	})

	claimed := make(map[uuid.UUID]struct{}, len(work))
	resolved := make([]int, 0, len(work))
	for _, i := range work {
		e := entries[i]
		if e.candidate == nil {
			continue
		}
		if _, dup := claimed[e.candidate.ID]; dup {
			e.candidate = nil
			if markDuplicates {
				e.kind = kindDuplicate
			}
			continue
		}
		claimed[e.candidate.ID] = struct{}{}
		resolved = append(resolved, i)
	}
	return resolved
}

func normalizeIdentifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (p *Pipeline) resolve(ctx context.Context, e *entry) {
	candidate, err := p.directory.ResolveCandidate(ctx, strings.TrimSpace(e.identifier))
	if err != nil {
		e.failure = "resolve candidate: " + err.Error()
		return
	}
	e.candidate = candidate
}

func (p *Pipeline) notify(e *entry, t *target, tmpl notify.Template, payload notify.Payload) {
	payload["job_id"] = t.job.ID.String()
	payload["company"] = t.job.Company
	payload["title"] = t.job.Title
	payload["round"] = t.round.Name

	e.ticket = p.dispatcher.Dispatch(notify.Message{
		Contact: notify.Contact{
			CandidateID: e.candidate.ID,
			Name:        e.candidate.Name,
			Email:       e.candidate.Contact(),
		},
		Template: tmpl,
		Payload:  payload,
	})
}

// collect fills the report in input order and waits, up to NotifyWait, for notification outcomes.
func (p *Pipeline) collect(report *Report, entries []*entry) {
	timer := time.NewTimer(p.opts.NotifyWait)
	defer timer.Stop()
	expired := false

	for _, e := range entries {
		report.add(e.kind, e.identifier)
		if e.failure != "" {
			report.Failures = append(report.Failures, EntryFailure{Identifier: e.identifier, Message: e.failure})
		}
		if e.ticket == nil {
			continue
		}

		var err error
		done := false
		if !expired {
			select {
			case err = <-e.ticket:
				done = true
			case <-timer.C:
				expired = true
			}
		}
		if !done {
			select {
			case err = <-e.ticket:
				done = true
			default:
			}
		}

		if !done {
			report.NotificationsPending++
			continue
		}
		if err != nil {
			report.NotificationErrors = append(report.NotificationErrors, NotificationError{
				Identifier:  e.identifier,
				CandidateID: e.candidate.ID.String(),
				Message:     err.Error(),
			})
		}
	}
	report.finalize()
}

func (p *Pipeline) logReport(report *Report) {
	p.logger.Info("bulk results processed",
		zap.String("operation", report.Operation),
		zap.String("job_id", report.JobID.String()),
		zap.String("round", report.RoundName),
		zap.Int("total", report.Total),
		zap.Int("added", report.Counts.Added),
		zap.Int("updated", report.Counts.Updated),
		zap.Int("deleted", report.Counts.Deleted),
		zap.Int("not_found", report.Counts.NotFound),
		zap.Int("duplicates", report.Counts.Duplicates),
		zap.Int("notification_errors", report.Counts.NotificationErrors),
		zap.Int("notifications_pending", report.NotificationsPending))
}
