package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
)

type threadRepository struct {
	mu      sync.RWMutex
	threads map[model.ThreadID]*model.Thread
}

func newThreadRepository() *threadRepository {
	return &threadRepository{
		threads: make(map[model.ThreadID]*model.Thread),
	}
}

func (r *threadRepository) Create(ctx context.Context, thread *model.Thread) (*model.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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

	r.threads[created.ID] = created
	return created.Copy(), nil
}

func (r *threadRepository) Update(ctx context.Context, thread *model.Thread) (*model.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.threads[thread.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", thread.ID))
	}

	updated := thread.Copy()
	updated.MemberKey = model.MemberKey(updated.PetitionIDs)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.threads[updated.ID] = updated
	return updated.Copy(), nil
}

func (r *threadRepository) Get(ctx context.Context, id model.ThreadID) (*model.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.threads[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", id))
	}
	return t.Copy(), nil
}

func (r *threadRepository) List(ctx context.Context) ([]*model.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Thread, 0, len(r.threads))
	for _, t := range r.threads {
		result = append(result, t.Copy())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *threadRepository) FindByMemberKey(ctx context.Context, memberKey string) (*model.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.threads {
		if t.MemberKey == memberKey {
			return t.Copy(), nil
		}
	}
	return nil, nil
}

func (r *threadRepository) Delete(ctx context.Context, id model.ThreadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.threads[id]; !exists {
		return goerr.Wrap(ErrNotFound, "thread not found", goerr.V("threadID", id))
	}
	delete(r.threads, id)
	return nil
}
