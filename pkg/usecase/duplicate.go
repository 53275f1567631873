package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/domain/model/config"
	"github.com/sangam-civic/sangam/pkg/similarity"
	"github.com/sangam-civic/sangam/pkg/utils/logging"
)

// DuplicateUseCase warns about existing petitions similar to a draft
type DuplicateUseCase struct {
	petitions     interfaces.PetitionRepository
	embedder      interfaces.Embedder
	cache         *VectorCache
	warnThreshold float64
	corpusLimit   int
	corpusMode    config.CorpusMode
	concurrency   int
	timeout       time.Duration

	mu       sync.Mutex
	inflight map[string]*probeTicket
}

type probeTicket struct {
	cancel context.CancelCauseFunc
}

// ProbeInput is a draft petition being typed by a user
type ProbeInput struct {
	// DraftKey identifies the input field. A new probe with the same key
	// cancels the one still running.
	DraftKey  string
	Text      string
	ExcludeID model.PetitionID
	// CreatedBy is the draft's author, used by the creator corpus mode
	CreatedBy string
}

// ProbeResult is the outcome of a duplicate probe. Match is nil when nothing
// scored above the warning threshold. Degraded is set when the embedding
// provider was unavailable and no check was made.
type ProbeResult struct {
	Match    *model.DuplicateMatch
	Degraded bool
}

func NewDuplicateUseCase(petitions interfaces.PetitionRepository, embedder interfaces.Embedder, cache *VectorCache, cfg *config.EngineConfig) *DuplicateUseCase {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	return &DuplicateUseCase{
		petitions:     petitions,
		embedder:      embedder,
		cache:         cache,
		warnThreshold: cfg.WarnThreshold,
		corpusLimit:   cfg.ProbeCorpusLimit,
		corpusMode:    cfg.ProbeCorpusMode,
		concurrency:   cfg.MaxConcurrency,
		timeout:       cfg.EmbedTimeout,
		inflight:      make(map[string]*probeTicket),
	}
}

// Probe checks a draft against a bounded sample of the stored corpus. It never
// fails because the embedding provider is down; the result is marked Degraded
// instead so the caller can let the submission through.
func (uc *DuplicateUseCase) Probe(ctx context.Context, input ProbeInput) (*ProbeResult, error) {
	ctx, release := uc.begin(ctx, input.DraftKey)
	defer release()

	if strings.TrimSpace(input.Text) == "" {
		return &ProbeResult{}, nil
	}

	candidate, err := uc.embedCandidate(ctx, input.Text)
	if err != nil {
		if superseded(ctx) {
			return nil, goerr.Wrap(ErrProbeSuperseded, "probe cancelled", goerr.V(DraftKeyKey, input.DraftKey))
		}
		if errors.Is(err, ErrEmbeddingUnavailable) {
			logging.From(ctx).Warn("duplicate probe degraded",
				"draft_key", input.DraftKey,
				"error", err.Error(),
			)
			return &ProbeResult{Degraded: true}, nil
		}
		return nil, err
	}

	corpus, err := uc.loadCorpus(ctx, candidate, input.CreatedBy)
	if err != nil {
		if superseded(ctx) {
			return nil, goerr.Wrap(ErrProbeSuperseded, "probe cancelled", goerr.V(DraftKeyKey, input.DraftKey))
		}
		return nil, err
	}

	match, err := uc.bestMatch(ctx, candidate, corpus, input.ExcludeID)
	if superseded(ctx) {
		return nil, goerr.Wrap(ErrProbeSuperseded, "probe result discarded", goerr.V(DraftKeyKey, input.DraftKey))
	}
	if err != nil {
		return nil, err
	}

	return &ProbeResult{Match: match}, nil
}

// FindBestMatch embeds text directly, without a cache lookup since a draft has
// no stable id, and returns the corpus member scoring highest, provided it
// scores strictly above the warning threshold. Ties go to the member that
// comes first in corpus. Members with stale or missing vectors are refreshed
// through the vector cache; members that still cannot be embedded are left
// out. Empty text never matches and costs no provider call.
func (uc *DuplicateUseCase) FindBestMatch(ctx context.Context, text string, corpus []*model.Petition, excludeID model.PetitionID) (*model.DuplicateMatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	candidate, err := uc.embedCandidate(ctx, text)
	if err != nil {
		return nil, err
	}

	return uc.bestMatch(ctx, candidate, corpus, excludeID)
}

func (uc *DuplicateUseCase) embedCandidate(ctx context.Context, text string) ([]float32, error) {
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}
	vector, err := embedText(ctx, uc.embedder, text, uc.cache.dimension)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed draft")
	}
	return vector, nil
}

func (uc *DuplicateUseCase) loadCorpus(ctx context.Context, candidate []float32, createdBy string) ([]*model.Petition, error) {
	switch {
	case uc.corpusMode == config.CorpusModeCreator && createdBy != "":
		corpus, err := uc.petitions.ListByCreator(ctx, createdBy, uc.corpusLimit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load petitions by creator", goerr.V("createdBy", createdBy))
		}
		return corpus, nil
	case uc.corpusMode == config.CorpusModeNearest:
		corpus, err := uc.petitions.FindByEmbedding(ctx, candidate, uc.corpusLimit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load nearest petitions")
		}
		return corpus, nil
	default:
		corpus, err := uc.petitions.ListRecent(ctx, uc.corpusLimit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load recent petitions")
		}
		return corpus, nil
	}
}

func (uc *DuplicateUseCase) bestMatch(ctx context.Context, candidate []float32, corpus []*model.Petition, excludeID model.PetitionID) (*model.DuplicateMatch, error) {
	members := make([]*model.Petition, 0, len(corpus))
	for _, p := range corpus {
		if excludeID != "" && p.ID == excludeID {
			continue
		}
		members = append(members, p)
	}

	resolved, _, err := ResolveVectors(ctx, uc.cache, members, uc.concurrency, uc.timeout)
	if err != nil {
		return nil, err
	}

	var best *model.DuplicateMatch
	for _, r := range resolved {
		score := similarity.Cosine(candidate, r.Vector)
		if best == nil || score > best.Score {
			best = &model.DuplicateMatch{
				PetitionID: r.Petition.ID,
				Title:      r.Petition.Title,
				Score:      score,
			}
		}
	}

	if best == nil || best.Score <= uc.warnThreshold {
		return nil, nil
	}
	return best, nil
}

// begin registers a probe for key and cancels the previous one. The returned
// release must be called when the probe is done.
func (uc *DuplicateUseCase) begin(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	if key == "" {
		return ctx, func() { cancel(nil) }
	}

	ticket := &probeTicket{cancel: cancel}

	uc.mu.Lock()
	if prev, ok := uc.inflight[key]; ok {
		prev.cancel(ErrProbeSuperseded)
	}
	uc.inflight[key] = ticket
	uc.mu.Unlock()

	return ctx, func() {
		uc.mu.Lock()
		if uc.inflight[key] == ticket {
			delete(uc.inflight, key)
		}
		uc.mu.Unlock()
		cancel(nil)
	}
}

func superseded(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrProbeSuperseded)
}
