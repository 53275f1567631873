package interfaces

import (
	"context"

	"github.com/sangam-civic/sangam/pkg/domain/model"
)

// PetitionRepository is the document store as seen by the similarity engine.
// The engine only reads petitions and writes back cached embeddings;
// Create and Update exist for the surrounding application.
type PetitionRepository interface {
	// Create stores a new petition. An empty ID is assigned by the store.
	Create(ctx context.Context, petition *model.Petition) (*model.Petition, error)

	// Update replaces the user-editable fields of an existing petition.
	// The cached embedding is left as is, so an edit makes it stale.
	Update(ctx context.Context, petition *model.Petition) (*model.Petition, error)

	// Get retrieves a petition by ID
	Get(ctx context.Context, id model.PetitionID) (*model.Petition, error)

	// ListRecent returns up to limit petitions, newest first
	ListRecent(ctx context.Context, limit int) ([]*model.Petition, error)

	// ListByCreator returns up to limit petitions created by createdBy, newest first
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]*model.Petition, error)

	// FindByEmbedding returns up to limit petitions whose cached embedding is
	// nearest to embedding by cosine distance
	FindByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*model.Petition, error)

	// UpdateEmbedding overwrites the cached embedding and its fingerprint.
	// Concurrent writers for the same ID resolve by last write wins.
	UpdateEmbedding(ctx context.Context, id model.PetitionID, embedding []float32, fingerprint string) error
}
