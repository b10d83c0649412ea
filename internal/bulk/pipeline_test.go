package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/eligibility"
	"github.com/jonathan/placement-portal/internal/memstore"
	"github.com/jonathan/placement-portal/internal/notify"
	"github.com/jonathan/placement-portal/internal/results"
	"github.com/jonathan/placement-portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher resolves every message immediately. Messages to addresses in fail get an error;
// messages to addresses in hang never resolve.
type fakeDispatcher struct {
	mu   sync.Mutex
	sent []notify.Message
	fail map[string]bool
	hang map[string]bool
}

func (f *fakeDispatcher) Dispatch(msg notify.Message) <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)

	done := make(chan error, 1)
	switch {
	case f.hang[msg.Contact.Email]:
	case f.fail[msg.Contact.Email]:
		done <- errors.New("mailbox unavailable")
	default:
		done <- nil
	}
	return done
}

func (f *fakeDispatcher) templates() map[string]notify.Template {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]notify.Template)
	for _, m := range f.sent {
		out[m.Contact.Email] = m.Template
	}
	return out
}

type fixture struct {
	dir        *memstore.Store
	store      *results.MemoryStore
	dispatcher *fakeDispatcher
	pipeline   *Pipeline
	job        *types.Job
	alice      types.Candidate
	bob        types.Candidate
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	dir := memstore.New()
	alice := dir.AddCandidate(types.Candidate{Email: "alice@example.com", RollNumber: "alice", Name: "Alice",
		Profile: eligibility.Profile{Branch: "CSE", PassingYear: 2024}})
	bob := dir.AddCandidate(types.Candidate{Email: "bob@example.com", RollNumber: "bob", Name: "Bob",
		Profile: eligibility.Profile{Branch: "ECE", PassingYear: 2024}})

	job, err := dir.CreateJob(ctx, &types.Job{
		Company: "Acme",
		Title:   "SDE",
		Rounds:  []types.Round{{Number: 1, Name: "R1"}, {Number: 2, Name: "Final"}},
	})
	require.NoError(t, err)

	store := results.NewMemoryStore()
	d := &fakeDispatcher{fail: map[string]bool{}, hang: map[string]bool{}}

	return &fixture{
		dir:        dir,
		store:      store,
		dispatcher: d,
		pipeline:   NewPipeline(dir, dir, store, d, opts, nil),
		job:        job,
		alice:      alice,
		bob:        bob,
	}
}

func (f *fixture) ingest(t *testing.T, ids ...string) *Report {
	t.Helper()
	report, err := f.pipeline.Ingest(context.Background(), IngestRequest{
		JobID:       f.job.ID,
		RoundName:   "R1",
		Status:      "Qualified",
		Identifiers: ids,
	})
	require.NoError(t, err)
	require.True(t, report.Partitioned(), "buckets must cover the input exactly")
	return report
}

func TestIngest_ClassifiesBatch(t *testing.T) {
	f := newFixture(t, Options{})

	report := f.ingest(t, "alice", "alice", "bob", "ghost")

	assert.Equal(t, []string{"alice", "bob"}, report.Added)
	assert.Empty(t, report.Updated)
	assert.Equal(t, []string{"alice"}, report.Duplicates)
	assert.Equal(t, []string{"ghost"}, report.NotFound)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, Counts{Added: 2, NotFound: 1, Duplicates: 1}, report.Counts)
	assert.Equal(t, 2, f.store.Len())
}

func TestIngest_RerunUpdates(t *testing.T) {
	f := newFixture(t, Options{})

	f.ingest(t, "alice", "alice", "bob", "ghost")
	report := f.ingest(t, "alice", "alice", "bob", "ghost")

	assert.Empty(t, report.Added)
	assert.Equal(t, []string{"alice", "bob"}, report.Updated)
	assert.Equal(t, []string{"alice"}, report.Duplicates)
	assert.Equal(t, []string{"ghost"}, report.NotFound)
	assert.Equal(t, 2, f.store.Len(), "rerun must not create rows")
}

func TestIngest_NotificationTemplates(t *testing.T) {
	f := newFixture(t, Options{})

	f.ingest(t, "alice")
	assert.Equal(t, notify.TemplateResultPublished, f.dispatcher.templates()["alice@example.com"])

	f.ingest(t, "alice")
	assert.Equal(t, notify.TemplateResultUpdated, f.dispatcher.templates()["alice@example.com"])

	f.dispatcher.mu.Lock()
	last := f.dispatcher.sent[len(f.dispatcher.sent)-1]
	f.dispatcher.mu.Unlock()
	assert.Equal(t, "R1", last.Payload["round"])
	assert.Equal(t, "Qualified", last.Payload["status"])
	assert.Equal(t, "Acme", last.Payload["company"])
}

func TestIngest_DuplicateMatchingIsNormalized(t *testing.T) {
	f := newFixture(t, Options{Concurrency: 1})

	report := f.ingest(t, "Alice", " alice ", "ALICE@example.com", "alice@example.com")

	assert.Equal(t, []string{"Alice"}, report.Added)
	assert.Empty(t, report.Updated)
	assert.Equal(t, []string{" alice ", "ALICE@example.com", "alice@example.com"}, report.Duplicates)
	assert.Equal(t, 1, f.store.Len())
}

func TestIngest_AliasesOfOneCandidateAreDuplicates(t *testing.T) {
	tests := []struct {
		name  string
		ids   []string
		added []string
		dups  []string
	}{
		{"roll then email", []string{"alice", "alice@example.com"}, []string{"alice"}, []string{"alice@example.com"}},
		{"email then roll", []string{"alice@example.com", "alice"}, []string{"alice@example.com"}, []string{"alice"}},
		{"interleaved", []string{"alice", "bob@example.com", "alice@example.com", "bob"},
			[]string{"alice", "bob@example.com"}, []string{"alice@example.com", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for run := 0; run < 20; run++ {
				f := newFixture(t, Options{})

				report := f.ingest(t, tt.ids...)

				require.Equal(t, tt.added, report.Added)
				require.Empty(t, report.Updated)
				require.Equal(t, tt.dups, report.Duplicates)
				require.Len(t, f.dispatcher.sent, len(tt.added), "one notification per candidate")
				for _, m := range f.dispatcher.sent {
					require.Equal(t, notify.TemplateResultPublished, m.Template)
				}
			}
		})
	}
}

func TestIngest_BlankIdentifierIsNotFound(t *testing.T) {
	f := newFixture(t, Options{})

	report := f.ingest(t, "", "  ", "bob")
	assert.Equal(t, []string{"", "  "}, report.NotFound)
	assert.Equal(t, []string{"bob"}, report.Added)
}

func TestIngest_NotificationFailureKeepsResult(t *testing.T) {
	f := newFixture(t, Options{})
	f.dispatcher.fail["bob@example.com"] = true

	report := f.ingest(t, "alice", "bob")

	assert.Equal(t, []string{"alice", "bob"}, report.Added)
	require.Len(t, report.NotificationErrors, 1)
	assert.Equal(t, "bob", report.NotificationErrors[0].Identifier)
	assert.Equal(t, f.bob.ID.String(), report.NotificationErrors[0].CandidateID)
	assert.Equal(t, 1, report.Counts.NotificationErrors)

	found, err := f.store.Find(context.Background(), results.Key{CandidateID: f.bob.ID, JobID: f.job.ID, RoundID: f.job.Rounds[0].ID})
	require.NoError(t, err)
	require.NotNil(t, found, "result must survive a failed notification")
	assert.Equal(t, types.Status("Qualified"), found.Status)
}

func TestIngest_SlowNotificationsReportedPending(t *testing.T) {
	f := newFixture(t, Options{NotifyWait: 20 * time.Millisecond})
	f.dispatcher.hang["alice@example.com"] = true
	f.dispatcher.hang["bob@example.com"] = true

	start := time.Now()
	report := f.ingest(t, "alice", "bob")

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 2, report.NotificationsPending)
	assert.Empty(t, report.NotificationErrors)
	assert.Len(t, report.Added, 2)
}

type flakyDirectory struct {
	*memstore.Store
	broken string
}

func (d *flakyDirectory) ResolveCandidate(ctx context.Context, identifier string) (*types.Candidate, error) {
	if identifier == d.broken {
		return nil, errors.New("directory timeout")
	}
	return d.Store.ResolveCandidate(ctx, identifier)
}

func TestIngest_ResolutionErrorDegradesToNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	f.pipeline.directory = &flakyDirectory{Store: f.dir, broken: "bob"}

	report := f.ingest(t, "alice", "bob")

	assert.Equal(t, []string{"alice"}, report.Added)
	assert.Equal(t, []string{"bob"}, report.NotFound)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bob", report.Failures[0].Identifier)
	assert.Contains(t, report.Failures[0].Message, "directory timeout")
}

type brokenStore struct {
	*results.MemoryStore
}

func (brokenStore) Upsert(context.Context, results.Key, types.Status) (results.UpsertOutcome, error) {
	return results.UpsertOutcome{}, errors.New("connection reset")
}

func TestIngest_StoreErrorDegradesToNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	f.pipeline.store = brokenStore{MemoryStore: f.store}

	report := f.ingest(t, "alice", "bob", "ghost")

	assert.Empty(t, report.Added)
	assert.Equal(t, []string{"alice", "bob", "ghost"}, report.NotFound)
	assert.Len(t, report.Failures, 2)
	assert.Empty(t, f.dispatcher.sent, "nothing is announced when nothing was written")
}

func TestIngest_Validation(t *testing.T) {
	f := newFixture(t, Options{Statuses: NewStatusPolicy([]string{"Qualified", "Rejected"}), MaxIdentifiers: 3})

	tests := []struct {
		name  string
		req   IngestRequest
		field string
	}{
		{"missing job", IngestRequest{RoundName: "R1", Status: "Qualified", Identifiers: []string{"alice"}}, "job_id"},
		{"missing round", IngestRequest{JobID: f.job.ID, RoundName: " ", Status: "Qualified", Identifiers: []string{"alice"}}, "round_name"},
		{"missing identifiers", IngestRequest{JobID: f.job.ID, RoundName: "R1", Status: "Qualified"}, "identifiers"},
		{"too many identifiers", IngestRequest{JobID: f.job.ID, RoundName: "R1", Status: "Qualified", Identifiers: []string{"a", "b", "c", "d"}}, "identifiers"},
		{"blank status", IngestRequest{JobID: f.job.ID, RoundName: "R1", Status: "  ", Identifiers: []string{"alice"}}, "status"},
		{"status not allowed", IngestRequest{JobID: f.job.ID, RoundName: "R1", Status: "Maybe", Identifiers: []string{"alice"}}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := f.pipeline.Ingest(context.Background(), tt.req)
			assert.Nil(t, report)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Equal(t, 0, f.store.Len(), "validation failures must not write")
}

func TestIngest_StatusCanonicalized(t *testing.T) {
	f := newFixture(t, Options{Statuses: NewStatusPolicy([]string{"Qualified"})})

	report, err := f.pipeline.Ingest(context.Background(), IngestRequest{
		JobID: f.job.ID, RoundName: "r1", Status: "qualified", Identifiers: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.Status("Qualified"), report.Status)
	assert.Equal(t, "R1", report.RoundName)
}

func TestIngest_UnknownJobOrRound(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.pipeline.Ingest(context.Background(), IngestRequest{
		JobID: uuid.New(), RoundName: "R1", Status: "Qualified", Identifiers: []string{"alice"},
	})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "job", nf.Resource)

	_, err = f.pipeline.Ingest(context.Background(), IngestRequest{
		JobID: f.job.ID, RoundName: "R9", Status: "Qualified", Identifiers: []string{"alice"},
	})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "round", nf.Resource)
	assert.Equal(t, 0, f.store.Len())
}

func TestIngest_OverlappingConcurrentBatches(t *testing.T) {
	f := newFixture(t, Options{Concurrency: 4})

	ids := []string{"alice", "bob"}
	for i := 0; i < 20; i++ {
		c := f.dir.AddCandidate(types.Candidate{RollNumber: fmt.Sprintf("r%02d", i), Email: fmt.Sprintf("r%02d@example.com", i)})
		ids = append(ids, c.RollNumber)
	}

	var wg sync.WaitGroup
	reports := make([]*Report, 6)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.pipeline.Ingest(context.Background(), IngestRequest{
				JobID: f.job.ID, RoundName: "R1", Status: "Qualified", Identifiers: ids,
			})
			if err == nil {
				reports[i] = r
			}
		}(i)
	}
	wg.Wait()

	added := 0
	for _, r := range reports {
		require.NotNil(t, r)
		assert.True(t, r.Partitioned())
		added += len(r.Added)
	}
	assert.Equal(t, len(ids), added, "each tuple is created exactly once across batches")
	assert.Equal(t, len(ids), f.store.Len())
}

func TestRetract(t *testing.T) {
	f := newFixture(t, Options{})
	f.ingest(t, "alice", "bob")

	report, err := f.pipeline.Retract(context.Background(), RetractRequest{
		JobID:       f.job.ID,
		RoundName:   "R1",
		Identifiers: []string{"alice", "alice", "ghost"},
	})
	require.NoError(t, err)

	assert.True(t, report.Partitioned())
	assert.Equal(t, []string{"alice"}, report.Deleted)
	assert.Equal(t, []string{"alice", "ghost"}, report.NotFound)
	assert.Empty(t, report.Duplicates)
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, notify.TemplateResultRetracted, f.dispatcher.templates()["alice@example.com"])
}

func TestRetract_AliasOfListedCandidateIsNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	f.ingest(t, "alice")
	f.dispatcher.sent = nil

	report, err := f.pipeline.Retract(context.Background(), RetractRequest{
		JobID:       f.job.ID,
		RoundName:   "R1",
		Identifiers: []string{"alice@example.com", "alice"},
	})
	require.NoError(t, err)

	assert.True(t, report.Partitioned())
	assert.Equal(t, []string{"alice@example.com"}, report.Deleted)
	assert.Equal(t, []string{"alice"}, report.NotFound)
	assert.Empty(t, report.Duplicates)
	assert.Len(t, f.dispatcher.sent, 1)
}

func TestRetract_SecondCallReportsNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	f.ingest(t, "bob")

	req := RetractRequest{JobID: f.job.ID, RoundName: "R1", Identifiers: []string{"bob"}}
	first, err := f.pipeline.Retract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, first.Deleted)

	second, err := f.pipeline.Retract(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, second.Deleted)
	assert.Equal(t, []string{"bob"}, second.NotFound)
}

func TestRetract_OnlyTouchesRequestedRound(t *testing.T) {
	f := newFixture(t, Options{})
	f.ingest(t, "alice")

	report, err := f.pipeline.Retract(context.Background(), RetractRequest{
		JobID: f.job.ID, RoundName: "Final", Identifiers: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, report.NotFound)
	assert.Equal(t, 1, f.store.Len())
}

func TestRetract_NotificationFailureKeepsDeletion(t *testing.T) {
	f := newFixture(t, Options{})
	f.ingest(t, "alice")
	f.dispatcher.fail["alice@example.com"] = true

	report, err := f.pipeline.Retract(context.Background(), RetractRequest{
		JobID: f.job.ID, RoundName: "R1", Identifiers: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, report.Deleted)
	assert.Len(t, report.NotificationErrors, 1)
	assert.Equal(t, 0, f.store.Len())
}

func TestRetract_Validation(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.pipeline.Retract(context.Background(), RetractRequest{JobID: f.job.ID, RoundName: "R1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "identifiers", verr.Field)

	_, err = f.pipeline.Retract(context.Background(), RetractRequest{JobID: f.job.ID, RoundName: "nope", Identifiers: []string{"alice"}})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestReport_PartitionAcrossShapes(t *testing.T) {
	f := newFixture(t, Options{Concurrency: 3})

	batches := [][]string{
		{"ghost"},
		{"alice", "ALICE", "alice", "bob", "bob", "", "x", "y"},
		{"bob@example.com", "bob", "alice@example.com", "alice"},
	}
	for _, ids := range batches {
		report := f.ingest(t, ids...)
		assert.Equal(t, len(ids), report.Total)

		retract, err := f.pipeline.Retract(context.Background(), RetractRequest{JobID: f.job.ID, RoundName: "R1", Identifiers: ids})
		require.NoError(t, err)
		assert.True(t, retract.Partitioned())
	}
}

func TestStatusPolicy(t *testing.T) {
	open := NewStatusPolicy(nil)
	got, err := open.Check(" Shortlisted ")
	require.NoError(t, err)
	assert.Equal(t, types.Status("Shortlisted"), got)

	closed := NewStatusPolicy([]string{"Qualified", " ", "On Hold"})
	got, err = closed.Check("on hold")
	require.NoError(t, err)
	assert.Equal(t, types.Status("On Hold"), got)

	_, err = closed.Check("Shortlisted")
	assert.Error(t, err)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "validation error: status - status is required", (&ValidationError{Field: "status", Message: "status is required"}).Error())
	assert.Equal(t, "round not found: R9", (&NotFoundError{Resource: "round", ID: "R9"}).Error())
	assert.Equal(t, "notification for bob failed: boom", (&NotificationError{Identifier: "bob", Message: "boom"}).Error())
}
