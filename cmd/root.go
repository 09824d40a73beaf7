// Package cmd defines and implements the CLI commands for the populate
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/config"
	"github.com/jlandry/stac-populator/internal/logging"
	"github.com/jlandry/stac-populator/internal/metrics"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App bundles the services every subcommand needs. Commands retrieve it
// from the context, which lets tests inject a preconfigured instance.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

// Close flushes buffered log entries.
func (a *App) Close() {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// newApp is the application factory. It's a variable so tests can
// replace it with a mock factory.
var newApp = func(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(&cfg, cmd.Flags())

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	metrics.Init()
	return &App{Config: cfg, Logger: logger}, nil
}

// applyFlagOverrides copies explicitly-passed flags over the file
// configuration, giving the precedence flag > env > file > default.
// Flag defaults never clobber the file: only changed flags apply.
func applyFlagOverrides(cfg *config.Config, flags *pflag.FlagSet) {
	setString := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	setString("url", &cfg.Source.URL)
	setString("force-crs", &cfg.CRS.Force)
	setString("fallback-crs", &cfg.CRS.Fallback)
	setString("convention", &cfg.Convention)
	setString("collection", &cfg.Collection)
	setString("stac-host", &cfg.STAC.Host)
	setString("dir", &cfg.Export.Dir)

	if f := flags.Lookup("max-depth"); f != nil && f.Changed {
		if depth, err := flags.GetInt("max-depth"); err == nil {
			cfg.Source.MaxDepth = depth
		}
	}
	if f := flags.Lookup("update"); f != nil && f.Changed {
		if update, err := flags.GetBool("update"); err == nil {
			cfg.STAC.Update = update
		}
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Harvests a THREDDS catalog tree into a STAC catalog.",
		Long: `populate walks a THREDDS data server's catalog tree, resolves each
dataset's metadata, and composes one STAC item per dataset. Items are
delivered to a STAC API or exported as local JSON files.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file path")
	flags.String("url", "", "root catalog URL to walk")
	flags.Int("max-depth", 1000, "maximum reference depth below the root catalog")
	flags.String("force-crs", "", "coordinate system that overrides all other sources")
	flags.String("fallback-crs", "", "coordinate system used when dataset metadata names none")
	flags.String("convention", "base", "dataset convention: base, cmip6 or cordex6")
	flags.String("collection", "", "collection description YAML file")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newReingestCmd())

	return cmd
}

// resolveApp pulls the application services out of the command context.
func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
