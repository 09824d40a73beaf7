package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlandry/stac-populator/internal/publish"
)

// newExportCmd creates and configures the 'export' subcommand, which
// writes composed records to a local directory instead of an API.
func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Walks the source catalog and writes items as local JSON files",
		Long: `Walks the catalog tree rooted at the configured URL, composes one
item per dataset, and writes collection.json plus one JSON file per item
into the output directory. Useful for inspecting results without a STAC
API, or for bulk loading later.`,

		RunE: runExportCommand,
	}
	flags := cmd.Flags()
	flags.String("dir", "stac-output", "output directory for exported records")
	flags.String("error-log", "populate-errors.jsonl", "file for failure records, one JSON object per line")

	return cmd
}

func runExportCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(app)
	if err != nil {
		return err
	}

	dir := app.Config.Export.Dir
	if dir == "" {
		dir, _ = cmd.Flags().GetString("dir")
	}
	exporter, err := publish.NewExporter(dir)
	if err != nil {
		return err
	}

	driver := publish.NewDriver(pipe.crawler, pipe.composer, exporter, app.Logger)
	rep, err := driver.Run(cmd.Context(), app.Config.Source.URL, pipe.collection)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("export populator: %w", err)
	}

	errorLog, _ := cmd.Flags().GetString("error-log")
	if rep != nil {
		if err := writeFailureLog(app, rep, errorLog); err != nil {
			return err
		}
	}
	return nil
}
