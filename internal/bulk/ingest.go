package bulk

import (
	"context"

	"github.com/jonathan/placement-portal/internal/notify"
	"github.com/jonathan/placement-portal/internal/results"
	"github.com/jonathan/placement-portal/internal/types"
	"go.uber.org/zap"
)

// Ingest records req.Status for every identifier at the round. Each identifier lands in
// exactly one of Added, Updated, NotFound or Duplicates. A notification is queued for every
// Added or Updated entry; its failure is reported but never undoes the write.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*Report, error) {
	if err := p.validateBatch(req.JobID, req.RoundName, req.Identifiers); err != nil {
		return nil, err
	}
	status, err := p.opts.Statuses.Check(req.Status)
	if err != nil {
		return nil, err
	}

	t, err := p.resolveTarget(ctx, req.JobID, req.RoundName)
	if err != nil {
		return nil, err
	}

	entries, work := newEntries(req.Identifiers, true)
	work = p.resolveBatch(ctx, entries, work, true)
	p.forEach(entries, work, func(e *entry) {
		p.ingestOne(ctx, t, e, status)
	})

	report := newReport(OperationIngest, t.job.ID, t.round.Name, status, len(req.Identifiers))
	p.collect(report, entries)
	p.logReport(report)
	return report, nil
}

// ingestOne upserts the result of a resolved entry, then queues its notification.
func (p *Pipeline) ingestOne(ctx context.Context, t *target, e *entry, status types.Status) {
	key := results.Key{CandidateID: e.candidate.ID, JobID: t.job.ID, RoundID: t.round.ID}
	out, err := p.store.Upsert(ctx, key, status)
	if err != nil {
		e.failure = "store result: " + err.Error()
		p.logger.Error("failed to store result",
			zap.String("identifier", e.identifier),
			zap.String("key", key.String()),
			zap.Error(err))
		return
	}

	tmpl := notify.TemplateResultUpdated
	e.kind = kindUpdated
	if out.Created {
		tmpl = notify.TemplateResultPublished
		e.kind = kindAdded
	}

	p.notify(e, t, tmpl, notify.Payload{"status": string(status)})
}
