package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for thread notifications
type Slack struct {
	botToken  string
	channelID string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting new threads)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("SANGAM_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel ID that receives new threads",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("SANGAM_SLACK_CHANNEL_ID"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel-id", x.channelID),
	)
}

// IsConfigured checks if both the token and the channel are set
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure returns a notifier, or nil when Slack is not configured
func (x *Slack) Configure() (interfaces.Notifier, error) {
	if x.botToken == "" && x.channelID == "" {
		return nil, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrInvalidConfig, "both --slack-bot-token and --slack-channel-id are required")
	}

	svc, err := slack.New(x.botToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}

	notifier, err := slack.NewNotifier(svc, x.channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack notifier")
	}
	return notifier, nil
}
