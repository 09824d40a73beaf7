package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/report"
)

// ErrStopWalk can be returned by a walk callback to end the traversal
// early without surfacing an error to the caller.
var ErrStopWalk = errors.New("stop walk")

// DescriptorFunc receives one resolved leaf descriptor during a walk.
type DescriptorFunc func(*Descriptor) error

// CatalogFunc optionally receives each sub-catalog as it is entered.
type CatalogFunc func(*Catalog)

// Crawler walks a catalog tree breadth-last: every leaf of a document is
// resolved before its references are followed, in document order.
type Crawler struct {
	client *Client
	logger *zap.Logger

	// MaxDepth bounds reference expansion. 0 walks only the root
	// document; references beyond the limit are tallied as skipped.
	MaxDepth int
	// OnCatalog, when set, is invoked for each catalog document entered,
	// including the root.
	OnCatalog CatalogFunc
}

// WalkStats summarizes a traversal.
type WalkStats struct {
	Datasets int
	Catalogs int
	Skipped  int
	Failures []report.Record
}

// NewCrawler builds a Crawler.
func NewCrawler(client *Client, maxDepth int, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{client: client, logger: logger, MaxDepth: maxDepth}
}

// Walk traverses the tree rooted at rootURL, invoking fn for every leaf
// descriptor it can resolve. A failure at the root is fatal; any other
// node failure is recorded in the returned stats and traversal continues
// with siblings.
func (c *Crawler) Walk(ctx context.Context, rootURL string, fn DescriptorFunc) (*WalkStats, error) {
	normalized, err := ValidateURL(rootURL)
	if err != nil {
		return nil, err
	}

	root, err := c.client.FetchCatalog(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("root catalog unreachable: %w", err)
	}

	stats := &WalkStats{}
	if err := c.walkCatalog(ctx, root, c.MaxDepth, stats, fn); err != nil {
		if errors.Is(err, ErrStopWalk) {
			return stats, nil
		}
		return stats, err
	}
	return stats, nil
}

func (c *Crawler) walkCatalog(ctx context.Context, cat *Catalog, budget int, stats *WalkStats, fn DescriptorFunc) error {
	stats.Catalogs++
	if c.OnCatalog != nil {
		c.OnCatalog(cat)
	}
	c.logger.Debug("entering catalog",
		zap.String("url", cat.URL),
		zap.Int("datasets", len(cat.Datasets)),
		zap.Int("references", len(cat.References)),
	)

	for _, node := range cat.Datasets {
		if ctx.Err() != nil {
			stats.Skipped++
			continue
		}
		desc, err := c.client.FetchDescriptor(ctx, node)
		if err != nil {
			c.logger.Warn("dataset metadata unavailable",
				zap.String("dataset", node.Name),
				zap.Error(err),
			)
			stats.Failures = append(stats.Failures, report.Record{
				URL:   failureURL(node),
				Stage: failureStage(err),
				Cause: err.Error(),
			})
			continue
		}
		stats.Datasets++
		if err := fn(desc); err != nil {
			return err
		}
	}

	for _, ref := range cat.References {
		if budget <= 0 || ctx.Err() != nil {
			stats.Skipped++
			continue
		}
		child, err := c.client.FetchCatalog(ctx, ref.URL)
		if err != nil {
			c.logger.Warn("sub-catalog unreachable",
				zap.String("url", ref.URL),
				zap.Error(err),
			)
			stats.Failures = append(stats.Failures, report.Record{
				URL:   ref.URL,
				Stage: failureStage(err),
				Cause: err.Error(),
			})
			continue
		}
		if err := c.walkCatalog(ctx, child, budget-1, stats, fn); err != nil {
			return err
		}
	}
	return nil
}

// failureStage maps a client error to the pipeline stage it belongs to:
// a document that arrived but would not parse is a parse failure, not a
// fetch failure.
func failureStage(err error) report.Stage {
	var pe *parseError
	if errors.As(err, &pe) {
		return report.StageParse
	}
	return report.StageFetch
}

// failureURL picks the most specific URL available for a failed node.
func failureURL(node Node) string {
	if u, ok := node.AccessURLs[ServiceNCML]; ok {
		return u
	}
	if u, ok := node.AccessURLs[ServiceHTTPServer]; ok {
		return u
	}
	return node.URL
}
