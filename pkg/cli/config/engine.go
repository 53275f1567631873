package config

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/sangam-civic/sangam/pkg/domain/model/config"
	"github.com/sangam-civic/sangam/pkg/similarity"
	"github.com/urfave/cli/v3"
)

// Engine holds the path of the optional engine tuning file
type Engine struct {
	path string
}

func (x *Engine) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "engine-config",
			Usage:       "Path to the similarity engine TOML file (defaults apply when omitted)",
			Category:    "Engine",
			Sources:     cli.EnvVars("SANGAM_ENGINE_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x Engine) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// EngineFile is the TOML layout of the engine tuning file. Omitted keys keep
// their defaults.
type EngineFile struct {
	WarnThreshold      *float64 `toml:"warn_threshold"`
	ClusterThreshold   *float64 `toml:"cluster_threshold"`
	ProbeCorpusLimit   *int     `toml:"probe_corpus_limit"`
	ProbeCorpusMode    *string  `toml:"probe_corpus_mode"`
	ClusterCorpusLimit *int     `toml:"cluster_corpus_limit"`
	ClusterStrategy    *string  `toml:"cluster_strategy"`
	MaxConcurrency     *int     `toml:"max_concurrency"`
	EmbedTimeout       *string  `toml:"embed_timeout"`
	EmbedRatePerSecond *float64 `toml:"embed_rate_per_second"`
	EmbedBurst         *int     `toml:"embed_burst"`
	PruneStaleThreads  *bool    `toml:"prune_stale_threads"`
}

// Configure returns the engine configuration, read from the file when a path
// is set
func (x *Engine) Configure() (*domainConfig.EngineConfig, error) {
	if x.path == "" {
		return domainConfig.DefaultEngineConfig(), nil
	}
	return LoadEngineConfig(x.path)
}

// LoadEngineConfig reads and validates an engine TOML file
func LoadEngineConfig(path string) (*domainConfig.EngineConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "engine config file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read engine config", goerr.V(ConfigPathKey, path))
	}

	cfg, err := ParseEngineConfig(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load engine config", goerr.V(ConfigPathKey, path))
	}
	return cfg, nil
}

// ParseEngineConfig applies TOML data over the defaults and validates the result
func ParseEngineConfig(data []byte) (*domainConfig.EngineConfig, error) {
	var file EngineFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse TOML config")
	}

	cfg, err := file.toDomain()
	if err != nil {
		return nil, err
	}
	if err := ValidateEngineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *EngineFile) toDomain() (*domainConfig.EngineConfig, error) {
	cfg := domainConfig.DefaultEngineConfig()

	if f.WarnThreshold != nil {
		cfg.WarnThreshold = *f.WarnThreshold
	}
	if f.ClusterThreshold != nil {
		cfg.ClusterThreshold = *f.ClusterThreshold
	}
	if f.ProbeCorpusLimit != nil {
		cfg.ProbeCorpusLimit = *f.ProbeCorpusLimit
	}
	if f.ProbeCorpusMode != nil {
		cfg.ProbeCorpusMode = domainConfig.CorpusMode(*f.ProbeCorpusMode)
	}
	if f.ClusterCorpusLimit != nil {
		cfg.ClusterCorpusLimit = *f.ClusterCorpusLimit
	}
	if f.ClusterStrategy != nil {
		cfg.ClusterStrategy = similarity.Strategy(*f.ClusterStrategy)
	}
	if f.MaxConcurrency != nil {
		cfg.MaxConcurrency = *f.MaxConcurrency
	}
	if f.EmbedTimeout != nil {
		d, err := time.ParseDuration(*f.EmbedTimeout)
		if err != nil {
			return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid embed_timeout",
				goerr.V(FieldKey, "embed_timeout"), goerr.V(ValueKey, *f.EmbedTimeout))
		}
		cfg.EmbedTimeout = d
	}
	if f.EmbedRatePerSecond != nil {
		cfg.EmbedRatePerSecond = *f.EmbedRatePerSecond
	}
	if f.EmbedBurst != nil {
		cfg.EmbedBurst = *f.EmbedBurst
	}
	if f.PruneStaleThreads != nil {
		cfg.PruneStaleThreads = *f.PruneStaleThreads
	}

	return cfg, nil
}

// ValidateEngineConfig checks value ranges and names
func ValidateEngineConfig(cfg *domainConfig.EngineConfig) error {
	invalid := func(field string, value any, msg string) error {
		return goerr.Wrap(ErrInvalidConfig, msg, goerr.V(FieldKey, field), goerr.V(ValueKey, value))
	}

	if cfg.WarnThreshold < -1 || cfg.WarnThreshold > 1 {
		return invalid("warn_threshold", cfg.WarnThreshold, "threshold must be within [-1, 1]")
	}
	if cfg.ClusterThreshold < -1 || cfg.ClusterThreshold > 1 {
		return invalid("cluster_threshold", cfg.ClusterThreshold, "threshold must be within [-1, 1]")
	}
	if cfg.ProbeCorpusLimit <= 0 {
		return invalid("probe_corpus_limit", cfg.ProbeCorpusLimit, "limit must be positive")
	}
	if cfg.ClusterCorpusLimit <= 0 {
		return invalid("cluster_corpus_limit", cfg.ClusterCorpusLimit, "limit must be positive")
	}
	switch cfg.ProbeCorpusMode {
	case domainConfig.CorpusModeRecent, domainConfig.CorpusModeNearest, domainConfig.CorpusModeCreator:
	default:
		return invalid("probe_corpus_mode", cfg.ProbeCorpusMode, "unknown corpus mode")
	}
	if err := cfg.ClusterStrategy.Validate(); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "unknown cluster strategy",
			goerr.V(FieldKey, "cluster_strategy"), goerr.V(ValueKey, cfg.ClusterStrategy))
	}
	if cfg.MaxConcurrency <= 0 {
		return invalid("max_concurrency", cfg.MaxConcurrency, "concurrency must be positive")
	}
	if cfg.EmbedTimeout <= 0 {
		return invalid("embed_timeout", cfg.EmbedTimeout, "timeout must be positive")
	}
	if cfg.EmbedRatePerSecond < 0 {
		return invalid("embed_rate_per_second", cfg.EmbedRatePerSecond, "rate must not be negative")
	}
	if cfg.EmbedBurst < 0 {
		return invalid("embed_burst", cfg.EmbedBurst, "burst must not be negative")
	}

	return nil
}
