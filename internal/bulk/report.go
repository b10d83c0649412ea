package bulk

import (
	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/types"
)

// Operation names
const (
	OperationIngest  = "ingest"
	OperationRetract = "retract"
)

// Counts summarizes a Report.
type Counts struct {
	Added              int `json:"added"`
	Updated            int `json:"updated"`
	Deleted            int `json:"deleted"`
	NotFound           int `json:"not_found"`
	Duplicates         int `json:"duplicates"`
	NotificationErrors int `json:"notification_errors"`
}

// Report classifies every identifier of a bulk call. The outcome buckets (Added, Updated,
// Deleted, NotFound, Duplicates) are disjoint and together hold exactly Total entries.
// Members keep input order.
type Report struct {
	Operation string       `json:"operation"`
	JobID     uuid.UUID    `json:"job_id"`
	RoundName string       `json:"round_name"`
	Status    types.Status `json:"status,omitempty"`
	Total     int          `json:"total"`
	Counts    Counts       `json:"counts"`

	Added      []string `json:"added"`
	Updated    []string `json:"updated"`
	Deleted    []string `json:"deleted"`
	NotFound   []string `json:"not_found"`
	Duplicates []string `json:"duplicates"`

	NotificationErrors []NotificationError `json:"notification_errors"`
	// NotificationsPending counts notifications still in flight when the report was built.
	NotificationsPending int            `json:"notifications_pending"`
	Failures             []EntryFailure `json:"failures,omitempty"`
}

func newReport(op string, jobID uuid.UUID, roundName string, status types.Status, total int) *Report {
	return &Report{
		Operation:          op,
		JobID:              jobID,
		RoundName:          roundName,
		Status:             status,
		Total:              total,
		Added:              []string{},
		Updated:            []string{},
		Deleted:            []string{},
		NotFound:           []string{},
		Duplicates:         []string{},
		NotificationErrors: []NotificationError{},
	}
}

// Partitioned reports whether the buckets account for every input identifier exactly once.
func (r *Report) Partitioned() bool {
	n := len(r.Added) + len(r.Updated) + len(r.Deleted) + len(r.NotFound) + len(r.Duplicates)
	return n == r.Total
}

func (r *Report) add(kind outcomeKind, identifier string) {
	switch kind {
	case kindAdded:
		r.Added = append(r.Added, identifier)
	case kindUpdated:
		r.Updated = append(r.Updated, identifier)
	case kindDeleted:
		r.Deleted = append(r.Deleted, identifier)
	case kindDuplicate:
		r.Duplicates = append(r.Duplicates, identifier)
	default:
		r.NotFound = append(r.NotFound, identifier)
	}
}

func (r *Report) finalize() {
	r.Counts = Counts{
		Added:              len(r.Added),
		Updated:            len(r.Updated),
		Deleted:            len(r.Deleted),
		NotFound:           len(r.NotFound),
		Duplicates:         len(r.Duplicates),
		NotificationErrors: len(r.NotificationErrors),
	}
}
