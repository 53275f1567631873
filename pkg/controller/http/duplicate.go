package http

import (
	"errors"
	"net/http"

	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/usecase"
	"github.com/sangam-civic/sangam/pkg/utils/errutil"
)

type probeRequest struct {
	DraftKey    string `json:"draft_key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	ExcludeID   string `json:"exclude_id"`
	CreatedBy   string `json:"created_by"`
}

type matchResponse struct {
	PetitionID string  `json:"petition_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

type probeResponse struct {
	Match    *matchResponse `json:"match"`
	Degraded bool           `json:"degraded"`
}

func (s *Server) probeHandler(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.uc.Duplicate.Probe(r.Context(), usecase.ProbeInput{
		DraftKey:  req.DraftKey,
		Text:      model.CanonicalText(req.Title, req.Description, req.Category, req.Location),
		ExcludeID: model.PetitionID(req.ExcludeID),
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrProbeSuperseded) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	resp := probeResponse{Degraded: result.Degraded}
	if result.Match != nil {
		resp.Match = &matchResponse{
			PetitionID: string(result.Match.PetitionID),
			Title:      result.Match.Title,
			Score:      result.Match.Score,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}
