package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/composer"
	"github.com/jlandry/stac-populator/internal/config"
	"github.com/jlandry/stac-populator/internal/metrics"
	"github.com/jlandry/stac-populator/internal/props"
	"github.com/jlandry/stac-populator/internal/report"
	"github.com/jlandry/stac-populator/internal/stac"
)

// pipeline is everything a populator pass needs short of a sink.
type pipeline struct {
	crawler    *catalog.Crawler
	composer   *composer.Composer
	collection *stac.Collection
}

// buildPipeline assembles the crawler and composer from the resolved
// configuration. The collection description file is mandatory: every
// item needs a collection to live in.
func buildPipeline(app *App) (*pipeline, error) {
	cfg := app.Config
	if cfg.Source.URL == "" {
		return nil, errors.New("a root catalog URL is required (--url)")
	}
	if cfg.Collection == "" {
		return nil, errors.New("a collection description file is required (--collection)")
	}

	cc, err := config.LoadCollection(cfg.Collection)
	if err != nil {
		return nil, err
	}
	col, err := cc.Collection()
	if err != nil {
		return nil, err
	}

	regs, itemID, err := composer.ForConvention(cfg.Convention)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.SourceTimeout()}
	shared := props.Shared{
		Client:      httpClient,
		Logger:      app.Logger,
		FallbackCRS: cfg.CRS.Fallback,
	}
	comp, err := composer.New(regs, itemID, shared, composer.Config{
		ForceCRS:    cfg.CRS.Force,
		FallbackCRS: cfg.CRS.Fallback,
	}, app.Logger)
	if err != nil {
		return nil, err
	}

	client := catalog.NewClient(catalog.ClientConfig{
		Timeout:    cfg.SourceTimeout(),
		UserAgent:  cfg.Source.UserAgent,
		HTTPClient: httpClient,
	})
	crawler := catalog.NewCrawler(client, cfg.Source.MaxDepth, app.Logger)
	crawler.OnCatalog = func(*catalog.Catalog) { metrics.ObserveCatalog() }

	return &pipeline{crawler: crawler, composer: comp, collection: col}, nil
}

// writeFailureLog persists the run's failure records as JSON lines.
// Nothing is written when the run had no failures.
func writeFailureLog(app *App, rep *report.Report, path string) error {
	if path == "" || len(rep.Records) == 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failure log: %w", err)
	}
	defer f.Close()
	if err := rep.WriteRecords(f); err != nil {
		return fmt.Errorf("failure log: %w", err)
	}
	app.Logger.Info("failure records written",
		zap.String("path", path),
		zap.Int("records", len(rep.Records)),
	)
	return nil
}
