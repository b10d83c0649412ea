package bulk

import "fmt"

// ValidationError rejects a whole call because a required parameter is missing or invalid.
// Nothing has been written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NotFoundError rejects a whole call because the job or round does not exist.
// Unknown candidates are never reported this way; they land in the NotFound bucket instead.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotificationError records a failed notification for one identifier. The state change it
// followed is kept.
type NotificationError struct {
	Identifier  string `json:"identifier"`
	CandidateID string `json:"candidate_id"`
	Message     string `json:"error"`
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification for %s failed: %s", e.Identifier, e.Message)
}

// EntryFailure explains why an identifier that looked valid ended up in the NotFound bucket.
type EntryFailure struct {
	Identifier string `json:"identifier"`
	Message    string `json:"error"`
}
