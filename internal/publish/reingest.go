package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/metrics"
	"github.com/jlandry/stac-populator/internal/report"
)

// collectionFileName marks the one file per directory holding a STAC
// collection; every other JSON file under that directory is an item.
const collectionFileName = "collection.json"

// RawSink receives records that are already in their STAC wire form and
// must be delivered unchanged.
type RawSink interface {
	StoreRawCollection(ctx context.Context, id string, body []byte) (Outcome, error)
	StoreRawItem(ctx context.Context, collectionID, id string, body []byte) (Outcome, error)
}

// Reingester republishes a local directory tree of composed STAC
// records. Each directory containing a collection.json is one
// collection; item files under it, including nested directories, belong
// to it unless a deeper collection.json claims them first.
type Reingester struct {
	sink   RawSink
	logger *zap.Logger

	// Prune limits the scan to top-most collections: any collection
	// found below another is ignored, together with its items.
	Prune bool
}

// NewReingester builds a Reingester.
func NewReingester(sink RawSink, logger *zap.Logger) *Reingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reingester{sink: sink, logger: logger}
}

// Run republishes every collection found under root. A single bad file
// never aborts the run; only an empty tree or a failing host check is
// fatal.
func (r *Reingester) Run(ctx context.Context, root string) (*report.Report, error) {
	started := time.Now()

	sources, err := scanTree(root, r.Prune)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no %s found under %s", collectionFileName, root)
	}

	if hc, ok := r.sink.(interface{ CheckHost(context.Context) error }); ok {
		if err := hc.CheckHost(ctx); err != nil {
			return nil, fmt.Errorf("prepare sink: %w", err)
		}
	}

	total := &report.Report{}
	for _, src := range sources {
		sub := r.reingestCollection(ctx, src)
		total.Merge(*sub)
	}
	metrics.ObserveRunDuration(time.Since(started))

	r.logger.Info("re-ingestion complete",
		zap.String("root", root),
		zap.Int("collections", len(sources)),
		zap.Int("published", total.Published),
		zap.Int("skipped", total.Skipped),
		zap.Int("failed", total.Failed),
		zap.Duration("elapsed", time.Since(started)),
	)
	return total, nil
}

// reingestCollection delivers one collection and its items. When the
// collection itself cannot be loaded or stored, its items are tallied
// as skipped rather than attempted against a missing parent.
func (r *Reingester) reingestCollection(ctx context.Context, src collectionSource) *report.Report {
	rep := &report.Report{}

	body, id, err := loadRecord(src.path, "Collection")
	if err != nil {
		r.logger.Warn("collection unreadable", zap.String("path", src.path), zap.Error(err))
		rep.Fail(src.path, report.StageParse, err)
		metrics.ObserveFailure(string(report.StageParse))
		rep.Skipped += len(src.items)
		return rep
	}
	if _, err := r.sink.StoreRawCollection(ctx, id, body); err != nil {
		r.logger.Warn("collection rejected", zap.String("collection", id), zap.Error(err))
		rep.Fail(src.path, report.StagePublish, err)
		metrics.ObserveFailure(string(report.StagePublish))
		rep.Skipped += len(src.items)
		return rep
	}

	for _, path := range src.items {
		if ctx.Err() != nil {
			rep.Skipped++
			continue
		}
		itemBody, itemID, err := loadRecord(path, "Feature")
		if err != nil {
			rep.Fail(path, report.StageParse, err)
			metrics.ObserveFailure(string(report.StageParse))
			continue
		}
		outcome, err := r.sink.StoreRawItem(ctx, id, itemID, itemBody)
		if err != nil {
			rep.Fail(path, report.StagePublish, err)
			metrics.ObserveFailure(string(report.StagePublish))
			continue
		}
		metrics.ObserveEntity(string(outcome))
		if outcome == OutcomeSkipped {
			rep.Skipped++
		} else {
			rep.Published++
		}
	}
	return rep
}

// loadRecord reads one STAC JSON document and checks its envelope.
func loadRecord(path, wantType string) (body []byte, id string, err error) {
	body, err = os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var env struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	if env.Type != wantType {
		return nil, "", fmt.Errorf("%s: type %q is not a STAC %s", path, env.Type, wantType)
	}
	if env.ID == "" {
		return nil, "", fmt.Errorf("%s: record has no id", path)
	}
	return body, env.ID, nil
}

// collectionSource is one collection file and the item files claimed by
// it, in lexical walk order.
type collectionSource struct {
	path  string
	items []string
}

// scanTree locates every collection.json under root and assigns each
// item file (.json or .geojson) to the nearest enclosing collection.
// Files outside any collection's directory are ignored.
func scanTree(root string, prune bool) ([]collectionSource, error) {
	var colDirs []string
	var itemFiles []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		base := filepath.Base(path)
		if base == collectionFileName {
			colDirs = append(colDirs, filepath.Dir(path))
			return nil
		}
		switch filepath.Ext(base) {
		case ".json", ".geojson":
			itemFiles = append(itemFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	kept := make(map[string]*collectionSource, len(colDirs))
	var order []string
	for _, dir := range colDirs {
		if prune && hasAncestor(dir, colDirs) {
			continue
		}
		kept[dir] = &collectionSource{path: filepath.Join(dir, collectionFileName)}
		order = append(order, dir)
	}

	for _, path := range itemFiles {
		owner := nearestCollection(filepath.Dir(path), colDirs)
		if owner == "" {
			continue
		}
		// Items inside a pruned nested collection are dropped with it.
		if src, ok := kept[owner]; ok {
			src.items = append(src.items, path)
		}
	}

	out := make([]collectionSource, 0, len(order))
	for _, dir := range order {
		out = append(out, *kept[dir])
	}
	return out, nil
}

// hasAncestor reports whether another collection directory strictly
// contains dir.
func hasAncestor(dir string, colDirs []string) bool {
	for _, other := range colDirs {
		if other != dir && isUnder(dir, other) {
			return true
		}
	}
	return false
}

// nearestCollection returns the deepest collection directory containing
// dir, or "" when none does.
func nearestCollection(dir string, colDirs []string) string {
	best := ""
	for _, cd := range colDirs {
		if (dir == cd || isUnder(dir, cd)) && len(cd) > len(best) {
			best = cd
		}
	}
	return best
}

// isUnder reports whether path lies strictly below dir.
func isUnder(path, dir string) bool {
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
