package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/types"
)

// PreviewResponse lists who a proposed rule-set would newly admit.
type PreviewResponse struct {
	JobID         uuid.UUID   `json:"job_id"`
	NewlyEligible []uuid.UUID `json:"newly_eligible"`
	Count         int         `json:"count"`
}

// handleCreateJob creates a job and notifies every candidate its rules admit
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.JobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	change, err := s.deps.Jobs.CreateJob(r.Context(), &req)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, change)
}

// handleGetJob returns a job with its rounds
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.failure(w, r, err)
		return
	}

	job, err := s.deps.Jobs.GetJob(r.Context(), jobID)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleUpdateJob replaces a job's details, rules and rounds
func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req types.JobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	change, err := s.deps.Jobs.UpdateJob(r.Context(), jobID, &req)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, change)
}

// handleCheckEligibility evaluates one candidate against a job's current rules.
// The candidate may be addressed by ID, email or roll number.
func (s *Server) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.failure(w, r, err)
		return
	}

	candidate, err := s.resolveCandidate(r, r.PathValue("candidate_id"))
	if err != nil {
		s.failure(w, r, err)
		return
	}

	check, err := s.deps.Jobs.CheckEligibility(r.Context(), candidate.ID, jobID)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, check)
}

// handlePreviewEligibility reports who the posted rule-set would newly admit, without saving it
func (s *Server) handlePreviewEligibility(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var rules types.RuleSetInput
	if err := decodeJSON(w, r, &rules); err != nil {
		s.failure(w, r, err)
		return
	}

	ids, err := s.deps.Jobs.PreviewDiff(r.Context(), jobID, rules)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	s.jsonResponse(w, http.StatusOK, PreviewResponse{JobID: jobID, NewlyEligible: ids, Count: len(ids)})
}

// resolveCandidate looks up a candidate by ID, email or roll number.
func (s *Server) resolveCandidate(r *http.Request, identifier string) (*types.Candidate, error) {
	candidate, err := s.deps.Directory.ResolveCandidate(r.Context(), identifier)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, &ErrNotFound{Resource: "candidate", ID: identifier}
	}
	return candidate, nil
}
