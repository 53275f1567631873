package embedding

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"golang.org/x/time/rate"
)

// Service turns text into embedding vectors through a gollem LLM client
type Service struct {
	llmClient gollem.LLMClient
	dimension int
	limiter   *rate.Limiter
}

var _ interfaces.Embedder = &Service{}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithDimension overrides model.EmbeddingDimension
func WithDimension(dimension int) Option {
	return func(s *Service) {
		s.dimension = dimension
	}
}

// WithRateLimit caps provider calls at perSecond with the given burst.
// A non-positive perSecond disables the limiter.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Service) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates a new embedding service with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (*Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	s := &Service{
		llmClient: llmClient,
		dimension: model.EmbeddingDimension,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Embed returns the embedding of text. An empty provider result is an error.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.New("text to embed is empty")
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "rate limiter wait aborted")
		}
	}

	embeddings, err := s.llmClient.GenerateEmbedding(ctx, s.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding", goerr.V("dimension", s.dimension))
	}

	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("no embedding returned")
	}

	// Convert float64 to float32
	result := make([]float32, len(embeddings[0]))
	for i, v := range embeddings[0] {
		result[i] = float32(v)
	}

	return result, nil
}
