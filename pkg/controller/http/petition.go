package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/usecase"
	"github.com/sangam-civic/sangam/pkg/utils/errutil"
)

type createPetitionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	CreatedBy   string `json:"created_by"`
	Supporters  int64  `json:"supporters"`
}

type petitionResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	CreatedBy   string    `json:"created_by"`
	Supporters  int64     `json:"supporters"`
	Status      string    `json:"status"`
	Embedded    bool      `json:"embedded"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toPetitionResponse(p *model.Petition) petitionResponse {
	return petitionResponse{
		ID:          string(p.ID),
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Location:    p.Location,
		CreatedBy:   p.CreatedBy,
		Supporters:  p.Supporters,
		Status:      p.Status,
		Embedded:    p.HasFreshEmbedding(0),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (s *Server) createPetitionHandler(w http.ResponseWriter, r *http.Request) {
	var req createPetitionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	created, err := s.uc.Petition.Create(r.Context(), usecase.CreatePetitionInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		CreatedBy:   req.CreatedBy,
		Supporters:  req.Supporters,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrInvalidPetition) {
			status = http.StatusBadRequest
		}
		errutil.HandleHTTP(r.Context(), w, err, status)
		return
	}

	writeJSON(w, r, http.StatusCreated, toPetitionResponse(created))
}

func (s *Server) getPetitionHandler(w http.ResponseWriter, r *http.Request) {
	id := model.PetitionID(chi.URLParam(r, "id"))

	p, err := s.uc.Petition.Get(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		errutil.HandleHTTP(r.Context(), w, err, status)
		return
	}

	writeJSON(w, r, http.StatusOK, toPetitionResponse(p))
}
