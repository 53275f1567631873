package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
)

// PetitionUseCase is the thin document store shell used by the HTTP API
type PetitionUseCase struct {
	repo interfaces.Repository
}

func NewPetitionUseCase(repo interfaces.Repository) *PetitionUseCase {
	return &PetitionUseCase{repo: repo}
}

// CreatePetitionInput holds the user supplied fields of a new petition
type CreatePetitionInput struct {
	Title       string
	Description string
	Category    string
	Location    string
	CreatedBy   string
	Supporters  int64
}

func (uc *PetitionUseCase) Create(ctx context.Context, input CreatePetitionInput) (*model.Petition, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, goerr.Wrap(ErrInvalidPetition, "title is required")
	}
	if input.Supporters < 0 {
		return nil, goerr.Wrap(ErrInvalidPetition, "supporters must not be negative",
			goerr.V("supporters", input.Supporters))
	}

	created, err := uc.repo.Petition().Create(ctx, &model.Petition{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Location:    strings.TrimSpace(input.Location),
		CreatedBy:   input.CreatedBy,
		Supporters:  input.Supporters,
		Status:      "open",
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create petition")
	}
	return created, nil
}

func (uc *PetitionUseCase) Get(ctx context.Context, id model.PetitionID) (*model.Petition, error) {
	p, err := uc.repo.Petition().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get petition", goerr.V(PetitionIDKey, id))
	}
	return p, nil
}
