package config

import (
	"time"

	"github.com/sangam-civic/sangam/pkg/similarity"
)

// CorpusMode selects how the duplicate probe samples the corpus
type CorpusMode string

const (
	// CorpusModeRecent scans the most recently created petitions
	CorpusModeRecent CorpusMode = "recent"
	// CorpusModeNearest scans the petitions nearest to the draft by cached vector
	CorpusModeNearest CorpusMode = "nearest"
	// CorpusModeCreator scans the petitions filed by the draft's author, so a
	// user is warned about repeating their own petition. A draft without an
	// author falls back to the recent corpus.
	CorpusModeCreator CorpusMode = "creator"
)

// EngineConfig holds the tuning knobs of the similarity engine
type EngineConfig struct {
	// WarnThreshold is the duplicate probe cut-off. A match must score strictly above it.
	WarnThreshold float64
	// ClusterThreshold is the pairwise cut-off used by consolidation
	ClusterThreshold float64

	ProbeCorpusLimit   int
	ProbeCorpusMode    CorpusMode
	ClusterCorpusLimit int
	ClusterStrategy    similarity.Strategy

	// MaxConcurrency caps in-flight embedding calls per operation
	MaxConcurrency int
	// EmbedTimeout bounds every single embedding call
	EmbedTimeout time.Duration

	EmbedRatePerSecond float64
	EmbedBurst         int

	// PruneStaleThreads deletes threads whose member set no longer appears
	PruneStaleThreads bool
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		WarnThreshold:      0.6,
		ClusterThreshold:   0.75,
		ProbeCorpusLimit:   100,
		ProbeCorpusMode:    CorpusModeRecent,
		ClusterCorpusLimit: 100,
		ClusterStrategy:    similarity.StrategyStar,
		MaxConcurrency:     4,
		EmbedTimeout:       10 * time.Second,
		EmbedRatePerSecond: 5,
		EmbedBurst:         5,
		PruneStaleThreads:  false,
	}
}
