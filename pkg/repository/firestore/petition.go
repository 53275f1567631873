package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// petitionDoc is the Firestore document representation of model.Petition.
// Embedding is stored as firestore.Vector32 so that FindNearest vector search works.
type petitionDoc struct {
	ID                   model.PetitionID   `firestore:"ID"`
	Title                string             `firestore:"Title"`
	Description          string             `firestore:"Description"`
	Category             string             `firestore:"Category"`
	Location             string             `firestore:"Location"`
	CreatedBy            string             `firestore:"CreatedBy"`
	Supporters           int64              `firestore:"Supporters"`
	Status               string             `firestore:"Status"`
	Embedding            firestore.Vector32 `firestore:"Embedding,omitempty"`
	EmbeddingFingerprint string             `firestore:"EmbeddingFingerprint"`
	CreatedAt            time.Time          `firestore:"CreatedAt"`
	UpdatedAt            time.Time          `firestore:"UpdatedAt"`
}

func toPetitionDoc(p *model.Petition) *petitionDoc {
	doc := &petitionDoc{
		ID:                   p.ID,
		Title:                p.Title,
		Description:          p.Description,
		Category:             p.Category,
		Location:             p.Location,
		CreatedBy:            p.CreatedBy,
		Supporters:           p.Supporters,
		Status:               p.Status,
		EmbeddingFingerprint: p.EmbeddingFingerprint,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if len(p.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(p.Embedding)
	}
	return doc
}

func fromPetitionDoc(d *petitionDoc) *model.Petition {
	p := &model.Petition{
		ID:                   d.ID,
		Title:                d.Title,
		Description:          d.Description,
		Category:             d.Category,
		Location:             d.Location,
		CreatedBy:            d.CreatedBy,
		Supporters:           d.Supporters,
		Status:               d.Status,
		EmbeddingFingerprint: d.EmbeddingFingerprint,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	if len(d.Embedding) > 0 {
		p.Embedding = []float32(d.Embedding)
	}
	return p
}

type petitionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newPetitionRepository(client *firestore.Client) *petitionRepository {
	return &petitionRepository{client: client}
}

func (r *petitionRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + PetitionCollection)
}

func (r *petitionRepository) Create(ctx context.Context, petition *model.Petition) (*model.Petition, error) {
	created := petition.Copy()
	if created.ID == "" {
		created.ID = model.NewPetitionID()
	}

	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	docRef := r.collection().Doc(string(created.ID))
	if _, err := docRef.Create(ctx, toPetitionDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create petition", goerr.V("petitionID", created.ID))
	}

	return created, nil
}

func (r *petitionRepository) Update(ctx context.Context, petition *model.Petition) (*model.Petition, error) {
	docRef := r.collection().Doc(string(petition.ID))

	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "Title", Value: petition.Title},
		{Path: "Description", Value: petition.Description},
		{Path: "Category", Value: petition.Category},
		{Path: "Location", Value: petition.Location},
		{Path: "CreatedBy", Value: petition.CreatedBy},
		{Path: "Supporters", Value: petition.Supporters},
		{Path: "Status", Value: petition.Status},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", petition.ID))
		}
		return nil, goerr.Wrap(err, "failed to update petition", goerr.V("petitionID", petition.ID))
	}

	return r.Get(ctx, petition.ID)
}

func (r *petitionRepository) Get(ctx context.Context, id model.PetitionID) (*model.Petition, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", id))
		}
		return nil, goerr.Wrap(err, "failed to get petition", goerr.V("petitionID", id))
	}

	var d petitionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal petition", goerr.V("petitionID", id))
	}

	return fromPetitionDoc(&d), nil
}

func (r *petitionRepository) ListRecent(ctx context.Context, limit int) ([]*model.Petition, error) {
	q := r.collection().OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.collect(q.Documents(ctx), "failed to iterate petitions")
}

func (r *petitionRepository) ListByCreator(ctx context.Context, createdBy string, limit int) ([]*model.Petition, error) {
	q := r.collection().
		Where("CreatedBy", "==", createdBy).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.collect(q.Documents(ctx), "failed to iterate petitions by creator")
}

func (r *petitionRepository) FindByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*model.Petition, error) {
	vq := r.collection().
		FindNearest("Embedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine, nil)

	return r.collect(vq.Documents(ctx), "failed to iterate petition vector search results")
}

func (r *petitionRepository) collect(iter *firestore.DocumentIterator, msg string) ([]*model.Petition, error) {
	defer iter.Stop()

	petitions := make([]*model.Petition, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, msg)
		}

		var d petitionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal petition", goerr.V("docID", doc.Ref.ID))
		}

		petitions = append(petitions, fromPetitionDoc(&d))
	}

	return petitions, nil
}

func (r *petitionRepository) UpdateEmbedding(ctx context.Context, id model.PetitionID, embedding []float32, fingerprint string) error {
	_, err := r.collection().Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "Embedding", Value: firestore.Vector32(embedding)},
		{Path: "EmbeddingFingerprint", Value: fingerprint},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "petition not found", goerr.V("petitionID", id))
		}
		return goerr.Wrap(err, "failed to update petition embedding", goerr.V("petitionID", id))
	}
	return nil
}
