package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/similarity"
)

type petitionRepository struct {
	mu        sync.RWMutex
	petitions map[model.PetitionID]*model.Petition
}

func newPetitionRepository() *petitionRepository {
	return &petitionRepository{
		petitions: make(map[model.PetitionID]*model.Petition),
	}
}

func (r *petitionRepository) Create(ctx context.Context, petition *model.Petition) (*model.Petition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := petition.Copy()
	if created.ID == "" {
		created.ID = model.NewPetitionID()
	}
	if _, exists := r.petitions[created.ID]; exists {
		return nil, goerr.New("petition already exists", goerr.V("petitionID", created.ID))
	}

	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	r.petitions[created.ID] = created
	return created.Copy(), nil
}

func (r *petitionRepository) Update(ctx context.Context, petition *model.Petition) (*model.Petition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.petitions[petition.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", petition.ID))
	}

	existing.Title = petition.Title
	existing.Description = petition.Description
	existing.Category = petition.Category
	existing.Location = petition.Location
	existing.CreatedBy = petition.CreatedBy
	existing.Supporters = petition.Supporters
	existing.Status = petition.Status
	existing.UpdatedAt = time.Now().UTC()

	return existing.Copy(), nil
}

func (r *petitionRepository) Get(ctx context.Context, id model.PetitionID) (*model.Petition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.petitions[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", id))
	}
	return p.Copy(), nil
}

func (r *petitionRepository) ListRecent(ctx context.Context, limit int) ([]*model.Petition, error) {
	return r.list(func(*model.Petition) bool { return true }, limit), nil
}

func (r *petitionRepository) ListByCreator(ctx context.Context, createdBy string, limit int) ([]*model.Petition, error) {
	return r.list(func(p *model.Petition) bool { return p.CreatedBy == createdBy }, limit), nil
}

func (r *petitionRepository) list(match func(*model.Petition) bool, limit int) []*model.Petition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Petition, 0, len(r.petitions))
	for _, p := range r.petitions {
		if match(p) {
			result = append(result, p.Copy())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (r *petitionRepository) FindByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*model.Petition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		petition *model.Petition
		score    float64
	}

	var candidates []scored
	for _, p := range r.petitions {
		if len(p.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{
			petition: p.Copy(),
			score:    similarity.Cosine(embedding, p.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].petition.ID < candidates[j].petition.ID
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}

	result := make([]*model.Petition, limit)
	for i := 0; i < limit; i++ {
		result[i] = candidates[i].petition
	}

	return result, nil
}

func (r *petitionRepository) UpdateEmbedding(ctx context.Context, id model.PetitionID, embedding []float32, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.petitions[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", id))
	}

	p.Embedding = slices.Clone(embedding)
	p.EmbeddingFingerprint = fingerprint
	return nil
}
