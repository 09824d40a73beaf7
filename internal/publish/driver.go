package publish

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/composer"
	"github.com/jlandry/stac-populator/internal/metrics"
	"github.com/jlandry/stac-populator/internal/report"
	"github.com/jlandry/stac-populator/internal/stac"
)

// Sink receives composed records. The API client and the file exporter
// both satisfy it.
type Sink interface {
	// Prepare is called once before any items, with the collection the
	// items belong to.
	Prepare(ctx context.Context, col *stac.Collection) error
	// Store delivers one item.
	Store(ctx context.Context, collectionID string, item *stac.Item) (Outcome, error)
}

// Prepare verifies the API host and upserts the collection.
func (c *Client) Prepare(ctx context.Context, col *stac.Collection) error {
	if err := c.CheckHost(ctx); err != nil {
		return err
	}
	_, err := c.UpsertCollection(ctx, col)
	return err
}

// Store delivers one item to the API.
func (c *Client) Store(ctx context.Context, collectionID string, item *stac.Item) (Outcome, error) {
	return c.UpsertItem(ctx, collectionID, item)
}

// Driver runs the full pipeline: walk the source tree, compose each
// resolved dataset, and deliver the results to a sink. A failure on one
// dataset never aborts the run; only an unreachable root or a failed
// sink preparation is fatal.
type Driver struct {
	crawler  *catalog.Crawler
	composer *composer.Composer
	sink     Sink
	logger   *zap.Logger
}

// NewDriver builds a Driver.
func NewDriver(crawler *catalog.Crawler, comp *composer.Composer, sink Sink, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{crawler: crawler, composer: comp, sink: sink, logger: logger}
}

// Run executes one populator pass over the tree rooted at rootURL.
func (d *Driver) Run(ctx context.Context, rootURL string, col *stac.Collection) (*report.Report, error) {
	started := time.Now()

	if err := d.sink.Prepare(ctx, col); err != nil {
		return nil, fmt.Errorf("prepare sink: %w", err)
	}

	rep := &report.Report{}
	stats, err := d.crawler.Walk(ctx, rootURL, func(desc *catalog.Descriptor) error {
		metrics.ObserveDataset()
		d.process(ctx, col.ID, desc, rep)
		return nil
	})
	if err != nil {
		return rep, err
	}

	for _, rec := range stats.Failures {
		rep.Records = append(rep.Records, rec)
		rep.Failed++
		metrics.ObserveFailure(string(rec.Stage))
	}
	rep.Skipped += stats.Skipped
	metrics.ObserveRunDuration(time.Since(started))

	d.logger.Info("run complete",
		zap.String("root", rootURL),
		zap.Int("catalogs", stats.Catalogs),
		zap.Int("datasets", stats.Datasets),
		zap.Int("published", rep.Published),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Duration("elapsed", time.Since(started)),
	)
	return rep, nil
}

// process composes and delivers one dataset, recording the outcome.
func (d *Driver) process(ctx context.Context, collectionID string, desc *catalog.Descriptor, rep *report.Report) {
	item, err := d.composer.Compose(ctx, desc)
	if err != nil {
		d.logger.Warn("compose failed",
			zap.String("dataset", desc.Name),
			zap.Error(err),
		)
		rep.Fail(desc.URL, report.StageCompose, err)
		metrics.ObserveFailure(string(report.StageCompose))
		return
	}

	outcome, err := d.sink.Store(ctx, collectionID, item)
	if err != nil {
		d.logger.Warn("publish failed",
			zap.String("item", item.ID),
			zap.Error(err),
		)
		rep.Fail(desc.URL, report.StagePublish, err)
		metrics.ObserveFailure(string(report.StagePublish))
		return
	}

	metrics.ObserveEntity(string(outcome))
	switch outcome {
	case OutcomeSkipped:
		rep.Skipped++
	default:
		rep.Published++
	}
	d.logger.Debug("item delivered",
		zap.String("item", item.ID),
		zap.String("outcome", string(outcome)),
	)
}
