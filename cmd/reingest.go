package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlandry/stac-populator/internal/publish"
)

// newReingestCmd creates and configures the 'reingest' subcommand, which
// republishes previously exported records from a local directory.
func newReingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reingest",
		Short: "Publishes a local tree of STAC records to a STAC API",
		Long: `Walks a local directory looking for collection.json files. Every other
JSON file under a collection's directory is treated as one of its items,
and all records are upserted into the STAC API unchanged. Nested
directories carrying their own collection.json form separate
collections; with --prune only the top-most collections are ingested.`,

		RunE: runReingestCommand,
	}
	flags := cmd.Flags()
	flags.String("dir", "", "directory tree holding collection.json and item files")
	flags.Bool("prune", false, "ingest only top-most collections, ignoring nested ones")
	flags.String("stac-host", "", "STAC API root URL")
	flags.Bool("update", false, "replace records that already exist")
	flags.String("error-log", "populate-errors.jsonl", "file for failure records, one JSON object per line")

	return cmd
}

func runReingestCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if app.Config.STAC.Host == "" {
		return errors.New("a STAC API host is required (--stac-host)")
	}

	dir := app.Config.Reingest.Dir
	if f := cmd.Flags().Lookup("dir"); f != nil && f.Changed {
		dir = f.Value.String()
	}
	if dir == "" {
		return errors.New("a record directory is required (--dir)")
	}
	prune := app.Config.Reingest.Prune
	if f := cmd.Flags().Lookup("prune"); f != nil && f.Changed {
		prune, _ = cmd.Flags().GetBool("prune")
	}

	client, err := publish.NewClient(publish.ClientConfig{
		Host:   app.Config.STAC.Host,
		Update: app.Config.STAC.Update,
	})
	if err != nil {
		return err
	}

	reingester := publish.NewReingester(client, app.Logger)
	reingester.Prune = prune
	rep, err := reingester.Run(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("reingest records: %w", err)
	}

	errorLog, _ := cmd.Flags().GetString("error-log")
	return writeFailureLog(app, rep, errorLog)
}
