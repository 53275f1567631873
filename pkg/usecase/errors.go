package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// ErrEmbeddingUnavailable means the embedding provider failed, timed out or
	// returned an unusable vector. Interactive callers degrade, batch callers skip.
	ErrEmbeddingUnavailable = goerr.New("embedding unavailable")

	// ErrSummarizerUnavailable means the summarizer failed and a fallback
	// label was used instead
	ErrSummarizerUnavailable = goerr.New("summarizer unavailable")

	// ErrProbeSuperseded is returned to a duplicate probe whose draft key was
	// probed again before it finished
	ErrProbeSuperseded = goerr.New("probe superseded by a newer request")

	ErrInvalidPetition = goerr.New("invalid petition")
)

// Context keys for error values
const (
	PetitionIDKey = "petition_id"
	DraftKeyKey   = "draft_key"
)
