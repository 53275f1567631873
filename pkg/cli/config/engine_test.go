package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/sangam-civic/sangam/pkg/cli/config"
	domainConfig "github.com/sangam-civic/sangam/pkg/domain/model/config"
	"github.com/sangam-civic/sangam/pkg/similarity"
)

func TestParseEngineConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		cfg, err := config.ParseEngineConfig([]byte(`
warn_threshold = 0.5
cluster_threshold = 0.8
probe_corpus_limit = 50
probe_corpus_mode = "nearest"
cluster_corpus_limit = 200
cluster_strategy = "transitive"
max_concurrency = 8
embed_timeout = "3s"
embed_rate_per_second = 2.5
embed_burst = 1
prune_stale_threads = true
`))
		gt.NoError(t, err).Required()
		gt.Value(t, cfg.WarnThreshold).Equal(0.5)
		gt.Value(t, cfg.ClusterThreshold).Equal(0.8)
		gt.Value(t, cfg.ProbeCorpusLimit).Equal(50)
		gt.Value(t, cfg.ProbeCorpusMode).Equal(domainConfig.CorpusModeNearest)
		gt.Value(t, cfg.ClusterCorpusLimit).Equal(200)
		gt.Value(t, cfg.ClusterStrategy).Equal(similarity.StrategyTransitive)
		gt.Value(t, cfg.MaxConcurrency).Equal(8)
		gt.Value(t, cfg.EmbedTimeout).Equal(3 * time.Second)
		gt.Value(t, cfg.EmbedRatePerSecond).Equal(2.5)
		gt.Value(t, cfg.EmbedBurst).Equal(1)
		gt.Bool(t, cfg.PruneStaleThreads).True()
	})

	t.Run("omitted keys keep defaults", func(t *testing.T) {
		cfg, err := config.ParseEngineConfig([]byte(`cluster_threshold = 0.9`))
		gt.NoError(t, err).Required()

		def := domainConfig.DefaultEngineConfig()
		gt.Value(t, cfg.ClusterThreshold).Equal(0.9)
		gt.Value(t, cfg.WarnThreshold).Equal(def.WarnThreshold)
		gt.Value(t, cfg.ClusterStrategy).Equal(similarity.StrategyStar)
		gt.Value(t, cfg.EmbedTimeout).Equal(def.EmbedTimeout)
	})

	t.Run("creator corpus mode", func(t *testing.T) {
		cfg, err := config.ParseEngineConfig([]byte(`probe_corpus_mode = "creator"`))
		gt.NoError(t, err).Required()
		gt.Value(t, cfg.ProbeCorpusMode).Equal(domainConfig.CorpusModeCreator)
	})

	t.Run("empty file is the default config", func(t *testing.T) {
		cfg, err := config.ParseEngineConfig(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, *cfg).Equal(*domainConfig.DefaultEngineConfig())
	})

	invalid := map[string]string{
		"threshold above one":     `warn_threshold = 1.5`,
		"threshold below minus 1": `cluster_threshold = -2.0`,
		"zero probe limit":        `probe_corpus_limit = 0`,
		"negative cluster limit":  `cluster_corpus_limit = -1`,
		"unknown corpus mode":     `probe_corpus_mode = "random"`,
		"unknown strategy":        `cluster_strategy = "kmeans"`,
		"zero concurrency":        `max_concurrency = 0`,
		"unparseable timeout":     `embed_timeout = "soon"`,
		"negative timeout":        `embed_timeout = "-1s"`,
		"negative rate":           `embed_rate_per_second = -1.0`,
		"broken toml":             `warn_threshold = `,
	}
	for name, data := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := config.ParseEngineConfig([]byte(data))
			gt.Error(t, err)
			gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).True()
		})
	}
}

func TestEngine_Configure(t *testing.T) {
	t.Run("no path gives defaults", func(t *testing.T) {
		cfg, err := config.NewEngineForTest("").Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, *cfg).Equal(*domainConfig.DefaultEngineConfig())
	})

	t.Run("reads the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "engine.toml")
		gt.NoError(t, os.WriteFile(path, []byte(`warn_threshold = 0.7`), 0600)).Required()

		cfg, err := config.NewEngineForTest(path).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, cfg.WarnThreshold).Equal(0.7)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.NewEngineForTest(filepath.Join(t.TempDir(), "missing.toml")).Configure()
		gt.Bool(t, errors.Is(err, config.ErrConfigNotFound)).True()
	})
}
