package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/repository/firestore"
	"github.com/sangam-civic/sangam/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// indexTarget is the Firestore database whose petition indexes are managed
type indexTarget struct {
	projectID        string
	databaseID       string
	collectionPrefix string
	dimension        int
}

func (x *indexTarget) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID",
			Required:    true,
			Sources:     cli.EnvVars("SANGAM_FIRESTORE_PROJECT_ID"),
			Destination: &x.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("SANGAM_FIRESTORE_DATABASE_ID"),
			Destination: &x.databaseID,
		},
		&cli.StringFlag{
			Name:        "collection-prefix",
			Usage:       "Prefix of the collection names (e.g. a staging namespace)",
			Sources:     cli.EnvVars("SANGAM_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &x.collectionPrefix,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Dimension of the petition embedding vector index",
			Value:       model.EmbeddingDimension,
			Destination: &x.dimension,
		},
	}
}

func cmdMigrate() *cli.Command {
	var target indexTarget
	var dryRun bool

	flags := append(target.Flags(), &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Show the index changes without applying them",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the Firestore indexes petitions are queried with",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if target.dimension <= 0 {
				return goerr.New("embedding dimension must be positive", goerr.V("dimension", target.dimension))
			}
			indexes := getIndexConfig(target.collectionPrefix, target.dimension)

			client, err := fireconf.New(ctx, target.projectID, target.databaseID, indexes,
				fireconf.WithLogger(logging.From(ctx)),
				fireconf.WithDryRun(dryRun),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client",
					goerr.V("projectID", target.projectID),
					goerr.V("databaseID", target.databaseID))
			}
			defer func() {
				if err := client.Close(); err != nil {
					logging.From(ctx).Warn("failed to close fireconf client", "error", err.Error())
				}
			}()

			names := make([]string, len(indexes.Collections))
			for i, col := range indexes.Collections {
				names[i] = col.Name
			}
			current, err := client.Import(ctx, names...)
			if err != nil {
				return goerr.Wrap(err, "failed to read current indexes")
			}
			diff, err := client.DiffConfigs(current)
			if err != nil {
				return goerr.Wrap(err, "failed to compare indexes")
			}

			changes := printIndexDiff(c.Root().Writer, diff, dryRun)
			if dryRun || changes == 0 {
				return nil
			}

			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply index migration")
			}
			fmt.Fprintf(c.Root().Writer, "%s %d index change(s) applied\n", color.GreenString("✓"), changes)
			return nil
		},
	}
}

// printIndexDiff writes the pending index changes and returns how many there are
func printIndexDiff(w io.Writer, diff *fireconf.DiffResult, dryRun bool) int {
	changes := 0
	for _, col := range diff.Collections {
		changes += len(col.IndexesToAdd) + len(col.IndexesToDelete)
	}
	if changes == 0 {
		fmt.Fprintf(w, "%s indexes are up to date\n", color.GreenString("✓"))
		return 0
	}

	header := "Planned index changes"
	if dryRun {
		header += " (dry run)"
	}
	fmt.Fprintln(w, color.New(color.FgCyan, color.Bold).Sprint(header))
	for _, col := range diff.Collections {
		for _, idx := range col.IndexesToAdd {
			fmt.Fprintf(w, "  + %s %s\n", col.Name, describeIndex(idx))
		}
		for _, idx := range col.IndexesToDelete {
			fmt.Fprintf(w, "  %s %s %s\n", color.RedString("-"), col.Name, describeIndex(idx))
		}
	}
	return changes
}

func describeIndex(idx fireconf.Index) string {
	parts := make([]string, len(idx.Fields))
	for i, f := range idx.Fields {
		switch {
		case f.Vector != nil:
			parts[i] = fmt.Sprintf("%s VECTOR(%d)", f.Path, f.Vector.Dimension)
		case f.Array != "":
			parts[i] = fmt.Sprintf("%s %s", f.Path, f.Array)
		default:
			parts[i] = fmt.Sprintf("%s %s", f.Path, f.Order)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// getIndexConfig returns the indexes behind the petition queries. Thread
// lookups use single-field indexes that Firestore creates on its own.
func getIndexConfig(prefix string, dimension int) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: prefix + firestore.PetitionCollection,
				Indexes: []fireconf.Index{
					// creator corpus
					{
						Fields: []fireconf.IndexField{
							{Path: "CreatedBy", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderDescending},
						},
					},
					// nearest corpus
					{
						Fields: []fireconf.IndexField{
							{
								Path:   "Embedding",
								Vector: &fireconf.VectorConfig{Dimension: dimension},
							},
						},
					},
				},
			},
		},
	}
}
