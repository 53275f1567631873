package http

import (
	"net/http"
	"time"

	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/usecase"
	"github.com/sangam-civic/sangam/pkg/utils/errutil"
)

type consolidateRequest struct {
	Prune bool `json:"prune"`
}

type skippedResponse struct {
	PetitionID string `json:"petition_id"`
	Reason     string `json:"reason"`
}

type threadResponse struct {
	ID              string    `json:"id"`
	Label           string    `json:"label"`
	Summary         string    `json:"summary"`
	PetitionIDs     []string  `json:"petition_ids"`
	PetitionCount   int       `json:"petition_count"`
	TotalSupporters int64     `json:"total_supporters"`
	Fallback        bool      `json:"fallback"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type consolidateResponse struct {
	Considered int               `json:"considered"`
	Embedded   int               `json:"embedded"`
	Created    int               `json:"created"`
	Reused     int               `json:"reused"`
	Pruned     int               `json:"pruned"`
	Skipped    []skippedResponse `json:"skipped"`
	Threads    []threadResponse  `json:"threads"`
}

type listThreadsResponse struct {
	Threads []threadResponse `json:"threads"`
}

func toThreadResponse(t *model.Thread) threadResponse {
	ids := make([]string, len(t.PetitionIDs))
	for i, id := range t.PetitionIDs {
		ids[i] = string(id)
	}
	return threadResponse{
		ID:              string(t.ID),
		Label:           t.Label,
		Summary:         t.Summary,
		PetitionIDs:     ids,
		PetitionCount:   t.PetitionCount,
		TotalSupporters: t.TotalSupporters,
		Fallback:        t.Fallback,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toThreadResponses(threads []*model.Thread) []threadResponse {
	resp := make([]threadResponse, len(threads))
	for i, t := range threads {
		resp[i] = toThreadResponse(t)
	}
	return resp
}

func (s *Server) consolidateHandler(w http.ResponseWriter, r *http.Request) {
	var req consolidateRequest
	if !s.decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := s.uc.Consolidate.Run(r.Context(), usecase.ConsolidateOption{Prune: req.Prune})
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	resp := consolidateResponse{
		Considered: result.Considered,
		Embedded:   result.Embedded,
		Created:    result.Created,
		Reused:     result.Reused,
		Pruned:     result.Pruned,
		Skipped:    make([]skippedResponse, len(result.Skipped)),
		Threads:    toThreadResponses(result.Threads),
	}
	for i, sk := range result.Skipped {
		resp.Skipped[i] = skippedResponse{PetitionID: string(sk.ID), Reason: sk.Reason}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) listThreadsHandler(w http.ResponseWriter, r *http.Request) {
	threads, err := s.uc.Consolidate.ListThreads(r.Context())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, listThreadsResponse{Threads: toThreadResponses(threads)})
}
