package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/domain/model/config"
)

type UseCases struct {
	repo         interfaces.Repository
	engineConfig *config.EngineConfig
	embedder     interfaces.Embedder
	summarizer   interfaces.Summarizer
	notifier     interfaces.Notifier
	cacheOptions []VectorCacheOption

	Petition    *PetitionUseCase
	Cache       *VectorCache
	Duplicate   *DuplicateUseCase
	Consolidate *ConsolidateUseCase
}

type Option func(*UseCases)

func WithEngineConfig(cfg *config.EngineConfig) Option {
	return func(uc *UseCases) {
		uc.engineConfig = cfg
	}
}

// WithEmbedder sets the embedding provider. nil keeps the unavailable one.
func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(uc *UseCases) {
		if embedder != nil {
			uc.embedder = embedder
		}
	}
}

func WithSummarizer(summarizer interfaces.Summarizer) Option {
	return func(uc *UseCases) {
		uc.summarizer = summarizer
	}
}

func WithNotifier(notifier interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

func WithVectorCacheOptions(opts ...VectorCacheOption) Option {
	return func(uc *UseCases) {
		uc.cacheOptions = append(uc.cacheOptions, opts...)
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:         repo,
		engineConfig: config.DefaultEngineConfig(),
		embedder:     unavailableEmbedder{},
	}

	for _, opt := range opts {
		opt(uc)
	}

	cacheOpts := append([]VectorCacheOption{WithDimension(model.EmbeddingDimension)}, uc.cacheOptions...)
	uc.Cache = NewVectorCache(repo.Petition(), uc.embedder, cacheOpts...)
	uc.Petition = NewPetitionUseCase(repo)
	uc.Duplicate = NewDuplicateUseCase(repo.Petition(), uc.embedder, uc.Cache, uc.engineConfig)
	uc.Consolidate = NewConsolidateUseCase(repo, uc.Cache, uc.summarizer, uc.notifier, uc.engineConfig)

	return uc
}

// unavailableEmbedder is used when no embedding provider is configured, so
// probes degrade and batch runs skip every petition without a cached vector
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, goerr.New("embedding provider is not configured")
}
