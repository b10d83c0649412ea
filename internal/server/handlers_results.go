package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/bulk"
	"github.com/jonathan/placement-portal/internal/results"
	"github.com/jonathan/placement-portal/internal/types"
)

// CandidateResultsResponse lists every round result recorded for a candidate.
type CandidateResultsResponse struct {
	CandidateID uuid.UUID        `json:"candidate_id"`
	Results     []results.Result `json:"results"`
	Count       int              `json:"count"`
}

// handleIngestResults records one status for a batch of candidates at a round
func (s *Server) handleIngestResults(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req types.BulkResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failure(w, r, fromValidator(err))
		return
	}

	report, err := s.deps.Bulk.Ingest(r.Context(), bulk.IngestRequest{
		JobID:       jobID,
		RoundName:   r.PathValue("round"),
		Status:      types.Status(req.Status),
		Identifiers: req.Identifiers,
	})
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleRetractResults removes a batch of candidates' results at a round
func (s *Server) handleRetractResults(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req types.BulkRetractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failure(w, r, fromValidator(err))
		return
	}

	report, err := s.deps.Bulk.Retract(r.Context(), bulk.RetractRequest{
		JobID:       jobID,
		RoundName:   r.PathValue("round"),
		Identifiers: req.Identifiers,
	})
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleGetRoundResult returns one candidate's result at a round
func (s *Server) handleGetRoundResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, err := pathUUID(r, "id")
	if err != nil {
		s.failure(w, r, err)
		return
	}

	roundName := r.PathValue("round")
	round, err := s.deps.Catalog.GetRoundByName(ctx, jobID, roundName)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if round == nil {
		s.failure(w, r, &ErrNotFound{Resource: "round", ID: roundName})
		return
	}

	candidate, err := s.resolveCandidate(r, r.PathValue("candidate_id"))
	if err != nil {
		s.failure(w, r, err)
		return
	}

	result, err := s.deps.Results.Find(ctx, results.Key{CandidateID: candidate.ID, JobID: jobID, RoundID: round.ID})
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if result == nil {
		s.failure(w, r, &ErrNotFound{Resource: "result", ID: candidate.ID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleListCandidateResults lists a candidate's results across all jobs and rounds
func (s *Server) handleListCandidateResults(w http.ResponseWriter, r *http.Request) {
	candidate, err := s.resolveCandidate(r, r.PathValue("id"))
	if err != nil {
		s.failure(w, r, err)
		return
	}

	list, err := s.deps.Results.ListByCandidate(r.Context(), candidate.ID)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if list == nil {
		list = []results.Result{}
	}
	s.jsonResponse(w, http.StatusOK, CandidateResultsResponse{
		CandidateID: candidate.ID,
		Results:     list,
		Count:       len(list),
	})
}
