package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
)

const (
	// PetitionCollection is the collection that holds petitions
	PetitionCollection = "petitions"
	// ThreadCollection is the collection that holds unified issue threads
	ThreadCollection = "threads"
)

type Firestore struct {
	client   *firestore.Client
	petition *petitionRepository
	thread   *threadRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every collection name, e.g. for test isolation
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.petition.collectionPrefix = prefix
		f.thread.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:   client,
		petition: newPetitionRepository(client),
		thread:   newThreadRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Petition() interfaces.PetitionRepository {
	return f.petition
}

func (f *Firestore) Thread() interfaces.ThreadRepository {
	return f.thread
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
