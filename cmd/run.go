package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/metrics"
	"github.com/jlandry/stac-populator/internal/publish"
)

// newRunCmd creates and configures the 'run' subcommand, which walks
// the source tree and publishes every composed item to a STAC API.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Walks the source catalog and publishes items to a STAC API",
		Long: `Walks the catalog tree rooted at the configured URL, composes one
item per dataset, and upserts collection and items into the STAC API.
Existing records are replaced only when --update is set.`,

		RunE: runRunCommand,
	}
	flags := cmd.Flags()
	flags.String("stac-host", "", "STAC API root URL")
	flags.Bool("update", false, "replace records that already exist")
	flags.String("error-log", "populate-errors.jsonl", "file for failure records, one JSON object per line")

	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if app.Config.STAC.Host == "" {
		return errors.New("a STAC API host is required (--stac-host)")
	}

	pipe, err := buildPipeline(app)
	if err != nil {
		return err
	}

	client, err := publish.NewClient(publish.ClientConfig{
		Host:   app.Config.STAC.Host,
		Update: app.Config.STAC.Update,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if app.Config.Metrics.Enabled {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		addr := fmt.Sprintf(":%d", app.Config.Metrics.Port)
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				app.Logger.Warn("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	driver := publish.NewDriver(pipe.crawler, pipe.composer, client, app.Logger)
	rep, err := driver.Run(ctx, app.Config.Source.URL, pipe.collection)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run populator: %w", err)
	}

	errorLog, _ := cmd.Flags().GetString("error-log")
	if rep != nil {
		if err := writeFailureLog(app, rep, errorLog); err != nil {
			return err
		}
	}
	return nil
}
