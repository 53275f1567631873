package interfaces

import (
	"context"

	"github.com/sangam-civic/sangam/pkg/domain/model"
)

// ThreadRepository persists unified issue threads
type ThreadRepository interface {
	Create(ctx context.Context, thread *model.Thread) (*model.Thread, error)
	Update(ctx context.Context, thread *model.Thread) (*model.Thread, error)
	Get(ctx context.Context, id model.ThreadID) (*model.Thread, error)

	// List returns all threads, newest first
	List(ctx context.Context) ([]*model.Thread, error)

	// FindByMemberKey returns the thread with the given member key, or nil if none exists
	FindByMemberKey(ctx context.Context, memberKey string) (*model.Thread, error)

	Delete(ctx context.Context, id model.ThreadID) error
}
