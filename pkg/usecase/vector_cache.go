package usecase

import (
	"context"
	"errors"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/utils/async"
)

// Dispatcher runs handler without blocking the caller
type Dispatcher func(ctx context.Context, handler func(ctx context.Context) error)

// VectorCache returns a petition's embedding, computing and writing it back
// only when the cached one is missing or stale. There is no locking: two
// concurrent misses for one petition both call the embedder and the last
// write-back wins.
type VectorCache struct {
	petitions interfaces.PetitionRepository
	embedder  interfaces.Embedder
	dimension int
	dispatch  Dispatcher
}

type VectorCacheOption func(*VectorCache)

// WithDimension sets the expected vector length. A cached vector of any other
// length is treated as stale. Zero disables the check.
func WithDimension(dimension int) VectorCacheOption {
	return func(c *VectorCache) {
		c.dimension = dimension
	}
}

// WithWriteBackDispatcher replaces async.Dispatch for cache write-backs
func WithWriteBackDispatcher(dispatch Dispatcher) VectorCacheOption {
	return func(c *VectorCache) {
		c.dispatch = dispatch
	}
}

func NewVectorCache(petitions interfaces.PetitionRepository, embedder interfaces.Embedder, opts ...VectorCacheOption) *VectorCache {
	c := &VectorCache{
		petitions: petitions,
		embedder:  embedder,
		dimension: model.EmbeddingDimension,
		dispatch:  async.Dispatch,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached vector of p when it is fresh. Otherwise it
// embeds p's canonical text, schedules the write-back and returns the new
// vector right away. A failed write-back is logged and never reaches the
// caller. p is not modified.
func (c *VectorCache) GetOrCompute(ctx context.Context, p *model.Petition) ([]float32, error) {
	if p.HasFreshEmbedding(c.dimension) {
		return p.Embedding, nil
	}

	text := p.CanonicalText()
	vector, err := embedText(ctx, c.embedder, text, c.dimension)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compute petition embedding", goerr.V(PetitionIDKey, p.ID))
	}

	id := p.ID
	stored := slices.Clone(vector)
	fingerprint := model.Fingerprint(text)
	c.dispatch(ctx, func(ctx context.Context) error {
		if err := c.petitions.UpdateEmbedding(ctx, id, stored, fingerprint); err != nil {
			return goerr.Wrap(err, "failed to write back petition embedding", goerr.V(PetitionIDKey, id))
		}
		return nil
	})

	return vector, nil
}

// embedText calls the embedder directly. Every failure, including an empty or
// wrongly sized vector, is reported as ErrEmbeddingUnavailable.
func embedText(ctx context.Context, embedder interfaces.Embedder, text string, dimension int) ([]float32, error) {
	if text == "" {
		return nil, goerr.Wrap(ErrEmbeddingUnavailable, "no text to embed")
	}

	vector, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrEmbeddingUnavailable, err), "embedding provider failed")
	}
	if len(vector) == 0 {
		return nil, goerr.Wrap(ErrEmbeddingUnavailable, "embedding provider returned an empty vector")
	}
	if dimension > 0 && len(vector) != dimension {
		return nil, goerr.Wrap(ErrEmbeddingUnavailable, "embedding provider returned an unexpected dimension",
			goerr.V("expected", dimension),
			goerr.V("actual", len(vector)))
	}

	return vector, nil
}
