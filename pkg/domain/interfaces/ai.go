package interfaces

import (
	"context"

	"github.com/sangam-civic/sangam/pkg/domain/model"
)

// Embedder converts text into a fixed-dimension embedding vector.
// It never returns an empty vector without an error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer generates a label and summary for a cluster of petitions
type Summarizer interface {
	Summarize(ctx context.Context, members []*model.Petition) (*model.ThreadSummary, error)
}

// Notifier announces newly created threads
type Notifier interface {
	NotifyThreads(ctx context.Context, threads []*model.Thread) error
}
