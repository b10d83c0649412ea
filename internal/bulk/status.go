package bulk

import (
	"strings"

	"github.com/jonathan/placement-portal/internal/types"
)

// StatusPolicy checks result labels against an allow-list. An empty policy accepts any
// non-blank label.
type StatusPolicy struct {
	allowed map[string]types.Status
}

// NewStatusPolicy builds a policy from configured labels. Matching is case-insensitive and
// accepted labels are returned in their configured spelling.
func NewStatusPolicy(labels []string) StatusPolicy {
	p := StatusPolicy{}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if p.allowed == nil {
			p.allowed = make(map[string]types.Status)
		}
		p.allowed[strings.ToLower(l)] = types.Status(l)
	}
	return p
}

// Check returns the canonical status or a ValidationError.
func (p StatusPolicy) Check(status types.Status) (types.Status, error) {
	status = status.Normalize()
	if status == "" {
		return "", &ValidationError{Field: "status", Message: "status is required"}
	}
	if len(p.allowed) == 0 {
		return status, nil
	}
	canonical, ok := p.allowed[strings.ToLower(string(status))]
	if !ok {
		return "", &ValidationError{Field: "status", Message: "status " + string(status) + " is not allowed"}
	}
	return canonical, nil
}
