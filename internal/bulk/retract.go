package bulk

import (
	"context"

	"github.com/jonathan/placement-portal/internal/notify"
	"github.com/jonathan/placement-portal/internal/results"
	"go.uber.org/zap"
)

// Retract deletes the round result of every identifier. Each identifier lands in Deleted or
// NotFound; an identifier repeated within the batch, or another identifier for a candidate
// already listed, reports NotFound after its first occurrence, as a second delete would. Every deletion queues a correction notification.
func (p *Pipeline) Retract(ctx context.Context, req RetractRequest) (*Report, error) {
	if err := p.validateBatch(req.JobID, req.RoundName, req.Identifiers); err != nil {
		return nil, err
	}

	t, err := p.resolveTarget(ctx, req.JobID, req.RoundName)
	if err != nil {
		return nil, err
	}

	entries, work := newEntries(req.Identifiers, false)
	work = p.resolveBatch(ctx, entries, work, false)
	p.forEach(entries, work, func(e *entry) {
		p.retractOne(ctx, t, e)
	})

	report := newReport(OperationRetract, t.job.ID, t.round.Name, "", len(req.Identifiers))
	p.collect(report, entries)
	p.logReport(report)
	return report, nil
}

func (p *Pipeline) retractOne(ctx context.Context, t *target, e *entry) {
	key := results.Key{CandidateID: e.candidate.ID, JobID: t.job.ID, RoundID: t.round.ID}
	removed, err := p.store.Delete(ctx, key)
	if err != nil {
		e.failure = "delete result: " + err.Error()
		p.logger.Error("failed to delete result",
			zap.String("identifier", e.identifier),
			zap.String("key", key.String()),
			zap.Error(err))
		return
	}
	if !removed {
		return
	}

	e.kind = kindDeleted
	p.notify(e, t, notify.TemplateResultRetracted, notify.Payload{})
}
