package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Notifier posts newly created threads to a Slack channel
type Notifier struct {
	svc       Service
	channelID string
}

var _ interfaces.Notifier = &Notifier{}

func NewNotifier(svc Service, channelID string) (*Notifier, error) {
	if svc == nil {
		return nil, goerr.New("Slack service is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}
	return &Notifier{svc: svc, channelID: channelID}, nil
}

// NotifyThreads posts one message listing every thread
func (n *Notifier) NotifyThreads(ctx context.Context, threads []*model.Thread) error {
	if len(threads) == 0 {
		return nil
	}

	text := fmt.Sprintf("%d new unified issue thread(s)", len(threads))
	if _, err := n.svc.PostMessage(ctx, n.channelID, buildThreadBlocks(threads), text); err != nil {
		return goerr.Wrap(err, "failed to notify threads", goerr.V("threads", len(threads)))
	}
	return nil
}

func buildThreadBlocks(threads []*model.Thread) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("%d new unified issue thread(s)", len(threads)), true, false)),
	}

	for _, t := range threads {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", t.Label, t.Summary), false, false),
				nil, nil,
			),
			slack.NewContextBlock("",
				slack.NewTextBlockObject(slack.MarkdownType,
					fmt.Sprintf("%d petitions · %d supporters · `%s`", t.PetitionCount, t.TotalSupporters, t.ID),
					false, false),
			),
		)
	}

	return blocks
}
