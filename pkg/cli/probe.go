package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdProbe() *cli.Command {
	var engineCfg engineConfig
	var title, description, category, location, excludeID, createdBy string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Usage:       "Draft petition title",
			Category:    "Draft",
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "description",
			Usage:       "Draft petition description",
			Category:    "Draft",
			Destination: &description,
		},
		&cli.StringFlag{
			Name:        "category",
			Usage:       "Draft petition category",
			Category:    "Draft",
			Destination: &category,
		},
		&cli.StringFlag{
			Name:        "location",
			Usage:       "Draft petition location",
			Category:    "Draft",
			Destination: &location,
		},
		&cli.StringFlag{
			Name:        "exclude-id",
			Usage:       "Petition ID to leave out of the comparison (when editing an existing petition)",
			Category:    "Draft",
			Destination: &excludeID,
		},
		&cli.StringFlag{
			Name:        "created-by",
			Usage:       "Author of the draft (used by the creator corpus mode)",
			Category:    "Draft",
			Destination: &createdBy,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "probe",
		Aliases: []string{"p"},
		Usage:   "Check a draft petition for likely duplicates",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := engineCfg.configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			result, err := uc.Duplicate.Probe(ctx, usecase.ProbeInput{
				DraftKey:  "cli",
				Text:      model.CanonicalText(title, description, category, location),
				ExcludeID: model.PetitionID(excludeID),
				CreatedBy: createdBy,
			})
			if err != nil {
				return goerr.Wrap(err, "duplicate probe failed")
			}

			printProbeResult(c.Root().Writer, result)
			return nil
		},
	}
}

func printProbeResult(w io.Writer, result *usecase.ProbeResult) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	switch {
	case result.Degraded:
		fmt.Fprintf(w, "%s embedding provider unavailable, no duplicate check was made\n", yellow("!"))
	case result.Match == nil:
		fmt.Fprintf(w, "%s no similar petition found\n", green("✓"))
	default:
		fmt.Fprintf(w, "%s similar petition found: %s (%s) score %.3f\n",
			red("⚠"), result.Match.Title, result.Match.PetitionID, result.Match.Score)
	}
}
