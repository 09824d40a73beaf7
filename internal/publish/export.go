package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jlandry/stac-populator/internal/stac"
)

// Exporter writes composed records to a local directory instead of an
// API: collection.json at the top plus one JSON file per item. It
// implements Sink.
type Exporter struct {
	dir string
}

// NewExporter creates the output directory if needed.
func NewExporter(dir string) (*Exporter, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export directory: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Prepare writes the collection record.
func (e *Exporter) Prepare(_ context.Context, col *stac.Collection) error {
	if err := col.Validate(); err != nil {
		return err
	}
	return e.writeJSON(filepath.Join(e.dir, "collection.json"), col)
}

// Store writes one item as <id>.json. An existing file is overwritten,
// so repeated exports of the same tree converge on the same directory
// contents.
func (e *Exporter) Store(_ context.Context, _ string, item *stac.Item) (Outcome, error) {
	name := sanitizeFilename(item.ID) + ".json"
	if err := e.writeJSON(filepath.Join(e.dir, name), item); err != nil {
		return "", err
	}
	return OutcomeCreated, nil
}

func (e *Exporter) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// sanitizeFilename maps identifier characters that are unsafe in file
// names to underscores.
func sanitizeFilename(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
}
