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

type threadDoc struct {
	ID              model.ThreadID     `firestore:"ID"`
	MemberKey       string             `firestore:"MemberKey"`
	PetitionIDs     []model.PetitionID `firestore:"PetitionIDs"`
	Label           string             `firestore:"Label"`
	Summary         string             `firestore:"Summary"`
	PetitionCount   int                `firestore:"PetitionCount"`
	TotalSupporters int64              `firestore:"TotalSupporters"`
	Fallback        bool               `firestore:"Fallback"`
	CreatedAt       time.Time          `firestore:"CreatedAt"`
	UpdatedAt       time.Time          `firestore:"UpdatedAt"`
}

func toThreadDoc(t *model.Thread) *threadDoc {
	return &threadDoc{
		ID:              t.ID,
		MemberKey:       t.MemberKey,
		PetitionIDs:     t.PetitionIDs,
		Label:           t.Label,
		Summary:         t.Summary,
		PetitionCount:   t.PetitionCount,
		TotalSupporters: t.TotalSupporters,
		Fallback:        t.Fallback,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func fromThreadDoc(d *threadDoc) *model.Thread {
	return &model.Thread{
		ID:              d.ID,
		MemberKey:       d.MemberKey,
		PetitionIDs:     d.PetitionIDs,
		Label:           d.Label,
		Summary:         d.Summary,
		PetitionCount:   d.PetitionCount,
		TotalSupporters: d.TotalSupporters,
		Fallback:        d.Fallback,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type threadRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newThreadRepository(client *firestore.Client) *threadRepository {
	return &threadRepository{client: client}
}

func (r *threadRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + ThreadCollection)
}

func (r *threadRepository) Create(ctx context.Context, thread *model.Thread) (*model.Thread, error) {
	created := thread.Copy()
	if created.ID == "" {
		created.ID = model.NewThreadID()
	}
	if created.MemberKey == "" {
		created.MemberKey = model.MemberKey(created.PetitionIDs)
	}

	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(string(created.ID)).Create(ctx, toThreadDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create thread", goerr.V("threadID", created.ID))
	}

	return created, nil
}

func (r *threadRepository) Update(ctx context.Context, thread *model.Thread) (*model.Thread, error) {
	existing, err := r.Get(ctx, thread.ID)
	if err != nil {
		return nil, err
	}

	updated := thread.Copy()
	updated.MemberKey = model.MemberKey(updated.PetitionIDs)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if _, err := r.collection().Doc(string(updated.ID)).Set(ctx, toThreadDoc(updated)); err != nil {
		return nil, goerr.Wrap(err, "failed to update thread", goerr.V("threadID", updated.ID))
	}

	return updated, nil
}

func (r *threadRepository) Get(ctx context.Context, id model.ThreadID) (*model.Thread, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", id))
		}
		return nil, goerr.Wrap(err, "failed to get thread", goerr.V("threadID", id))
	}

	var d threadDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal thread", goerr.V("threadID", id))
	}

	return fromThreadDoc(&d), nil
}

func (r *threadRepository) List(ctx context.Context) ([]*model.Thread, error) {
	iter := r.collection().OrderBy("CreatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	threads := make([]*model.Thread, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate threads")
		}

		var d threadDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal thread", goerr.V("docID", doc.Ref.ID))
		}
		threads = append(threads, fromThreadDoc(&d))
	}

	return threads, nil
}

func (r *threadRepository) FindByMemberKey(ctx context.Context, memberKey string) (*model.Thread, error) {
	iter := r.collection().Where("MemberKey", "==", memberKey).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find thread by member key", goerr.V("memberKey", memberKey))
	}

	var d threadDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal thread", goerr.V("docID", doc.Ref.ID))
	}
	return fromThreadDoc(&d), nil
}

func (r *threadRepository) Delete(ctx context.Context, id model.ThreadID) error {
	docRef := r.collection().Doc(string(id))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", id))
		}
		return goerr.Wrap(err, "failed to get thread", goerr.V("threadID", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete thread", goerr.V("threadID", id))
	}
	return nil
}
