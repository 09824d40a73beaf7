package props

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/stac"
)

const (
	filePrefix = "file"
	fileSchema = "https://stac-extensions.github.io/file/v2.1.0/schema.json"
)

// FileHelper probes the file server for the dataset's size. The probe
// is a remote call, so the result is memoized: it runs at most once per
// helper instance no matter how often the group is read or applied.
type FileHelper struct {
	href   string
	client *http.Client
	logger *zap.Logger
	memo   memo
}

// NewFileHelper builds the helper from a descriptor. It declares
// NeedClient; a missing client falls back to http.DefaultClient so the
// helper stays usable in isolation.
func NewFileHelper(d *catalog.Descriptor, shared Shared) (Helper, error) {
	client := shared.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := shared.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileHelper{
		href:   d.AccessURLs[catalog.ServiceHTTPServer],
		client: client,
		logger: logger,
	}, nil
}

// Prefix implements Helper.
func (h *FileHelper) Prefix() string { return filePrefix }

// Group implements Helper. A size that cannot be determined yields a
// null field rather than an error: file size is not mandatory.
func (h *FileHelper) Group(ctx context.Context) (stac.PropertyGroup, error) {
	return h.memo.compute(func() (stac.PropertyGroup, error) {
		group := stac.NewPropertyGroup(filePrefix)
		size, err := h.probeSize(ctx)
		if err != nil {
			h.logger.Warn("file size unavailable", zap.String("url", h.href), zap.Error(err))
			group.Set("size", nil)
			return group, nil
		}
		group.Set("size", size)
		return group, nil
	})
}

// Apply implements Helper.
func (h *FileHelper) Apply(ctx context.Context, item *stac.Item) error {
	return applyGroup(ctx, h, item, fileSchema)
}

func (h *FileHelper) probeSize(ctx context.Context) (int64, error) {
	if h.href == "" {
		return 0, fmt.Errorf("no file server access url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.href, nil)
	if err != nil {
		return 0, fmt.Errorf("build head request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", h.href, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("head %s: unexpected status %d", h.href, resp.StatusCode)
	}

	length := resp.Header.Get("Content-Length")
	size, err := strconv.ParseInt(length, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse content-length %q: %w", length, err)
	}
	return size, nil
}
