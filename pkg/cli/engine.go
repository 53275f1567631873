package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/cli/config"
	"github.com/sangam-civic/sangam/pkg/usecase"
	"github.com/sangam-civic/sangam/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// engineConfig groups the flags every engine command needs
type engineConfig struct {
	repo   config.Repository
	gemini config.Gemini
	engine config.Engine
	slack  config.Slack
}

func (x *engineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.gemini.Flags()...)
	flags = append(flags, x.engine.Flags()...)
	flags = append(flags, x.slack.Flags()...)
	return flags
}

// configure builds the use cases. The returned closer releases the repository.
func (x *engineConfig) configure(ctx context.Context) (*usecase.UseCases, func(), error) {
	engineCfg, err := x.engine.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load engine configuration")
	}

	embedder, summarizer, err := x.gemini.ConfigureServices(ctx, engineCfg)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure Gemini")
	}
	if embedder == nil {
		logging.Default().Warn("Gemini is not configured, probes are degraded and petitions without cached vectors are skipped")
	}

	notifier, err := x.slack.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure Slack")
	}

	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}
	closer := func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}

	opts := []usecase.Option{
		usecase.WithEngineConfig(engineCfg),
		usecase.WithEmbedder(embedder),
	}
	if summarizer != nil {
		opts = append(opts, usecase.WithSummarizer(summarizer))
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
		logging.Default().Info("Slack notification enabled", "slack", x.slack)
	}

	logging.Default().Info("Engine configured",
		"repository", x.repo,
		"engine", x.engine,
		"warn_threshold", engineCfg.WarnThreshold,
		"cluster_threshold", engineCfg.ClusterThreshold,
		"cluster_strategy", engineCfg.ClusterStrategy,
	)

	return usecase.New(repo, opts...), closer, nil
}
