package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	domainConfig "github.com/sangam-civic/sangam/pkg/domain/model/config"
	"github.com/sangam-civic/sangam/pkg/service/embedding"
	"github.com/sangam-civic/sangam/pkg/service/summarizer"
	"github.com/urfave/cli/v3"
)

// Gemini holds configuration for the Gemini LLM client
type Gemini struct {
	projectID string
	location  string
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("SANGAM_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("SANGAM_GEMINI_LOCATION"),
			Destination: &g.location,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
	}
}

// Configure creates a new Gemini LLM client from the configured flags.
// Returns nil if projectID is not configured (embedding and summaries will be disabled).
func (g *Gemini) Configure(ctx context.Context) (gollem.LLMClient, error) {
	if g.projectID == "" {
		return nil, nil
	}

	client, err := gemini.New(ctx, g.projectID, g.location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	return client, nil
}

// ConfigureServices builds the embedder and summarizer over one Gemini client.
// Both are nil when Gemini is not configured.
func (g *Gemini) ConfigureServices(ctx context.Context, engine *domainConfig.EngineConfig) (interfaces.Embedder, interfaces.Summarizer, error) {
	client, err := g.Configure(ctx)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, nil, nil
	}

	embedder, err := embedding.New(client, embedding.WithRateLimit(engine.EmbedRatePerSecond, engine.EmbedBurst))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create embedding service")
	}

	summary, err := summarizer.New(client)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create summarizer service")
	}

	return embedder, summary, nil
}
