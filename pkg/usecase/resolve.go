package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// ResolvedPetition is a corpus member together with its usable vector
type ResolvedPetition struct {
	Petition *model.Petition
	Vector   []float32
}

// ResolveVectors fetches or computes the vectors of petitions with at most
// concurrency embedding calls in flight, each bounded by timeout. Results keep
// the input order. A petition that cannot be embedded is logged and reported
// as skipped; the rest of the corpus is unaffected. The only error returned is
// the cancellation of ctx itself.
func ResolveVectors(ctx context.Context, cache *VectorCache, petitions []*model.Petition, concurrency int, timeout time.Duration) ([]ResolvedPetition, []model.SkippedPetition, error) {
	vectors := make([][]float32, len(petitions))
	errs := make([]error, len(petitions))

	var eg errgroup.Group
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}

	for i, p := range petitions {
		if p.HasFreshEmbedding(cache.dimension) {
			vectors[i] = p.Embedding
			continue
		}

		eg.Go(func() error {
			taskCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			vectors[i], errs[i] = cache.GetOrCompute(taskCtx, p)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, goerr.Wrap(err, "vector resolution cancelled")
	}

	logger := logging.From(ctx)
	resolved := make([]ResolvedPetition, 0, len(petitions))
	var skipped []model.SkippedPetition
	for i, p := range petitions {
		if errs[i] != nil {
			logger.Warn("skipping petition without embedding",
				"petition_id", p.ID,
				"reason", errs[i].Error(),
			)
			skipped = append(skipped, model.SkippedPetition{ID: p.ID, Reason: errs[i].Error()})
			continue
		}
		resolved = append(resolved, ResolvedPetition{Petition: p, Vector: vectors[i]})
	}

	return resolved, skipped, nil
}
