package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdConsolidate() *cli.Command {
	var engineCfg engineConfig
	var prune bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "prune",
			Usage:       "Delete threads whose member set did not come out of this run",
			Sources:     cli.EnvVars("SANGAM_PRUNE"),
			Destination: &prune,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "consolidate",
		Aliases: []string{"c"},
		Usage:   "Group similar petitions into unified issue threads (one batch run)",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := engineCfg.configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			result, err := uc.Consolidate.Run(ctx, usecase.ConsolidateOption{Prune: prune})
			if err != nil {
				return goerr.Wrap(err, "consolidation failed")
			}

			printConsolidateResult(c.Root().Writer, result)
			return nil
		},
	}
}

func printConsolidateResult(w io.Writer, result *usecase.ConsolidateResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== Consolidation ==="))
	fmt.Fprintf(w, "  Petitions: %d considered, %d embedded\n", result.Considered, result.Embedded)
	fmt.Fprintf(w, "  Threads:   %s created, %d reused, %d pruned\n",
		green(fmt.Sprintf("%d", result.Created)), result.Reused, result.Pruned)

	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "  Skipped:   %s\n", yellow(fmt.Sprintf("%d", len(result.Skipped))))
		for _, s := range result.Skipped {
			fmt.Fprintf(w, "    %s %s\n", s.ID, gray(s.Reason))
		}
	}

	for _, t := range result.Threads {
		marker := ""
		if t.Fallback {
			marker = yellow(" (fallback label)")
		}
		fmt.Fprintf(w, "\n  %s%s\n", cyan(t.Label), marker)
		fmt.Fprintf(w, "    %s\n", t.Summary)
		fmt.Fprintf(w, "    %d petitions, %d supporters\n", t.PetitionCount, t.TotalSupporters)
		for _, id := range t.PetitionIDs {
			fmt.Fprintf(w, "    - %s\n", gray(id))
		}
	}
	fmt.Fprintln(w)
}
