// Package publish delivers composed records to a catalog API, or to
// local files when no API is configured.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jlandry/stac-populator/internal/stac"
)

// Outcome is the terminal state of one upsert.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

const maxResponseBytes = 1 << 20

// Client talks to a STAC API host.
type Client struct {
	host   string
	http   *http.Client
	update bool
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Host is the API root, e.g. https://stac.example.org.
	Host string
	// Update replaces records that already exist; when false an existing
	// record is left alone and the upsert reports skipped.
	Update bool
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// NewClient validates the host URL and builds a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("stac host: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("stac host %q: scheme must be http or https", cfg.Host)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		host:   strings.TrimRight(cfg.Host, "/"),
		http:   hc,
		update: cfg.Update,
	}, nil
}

// CheckHost verifies the host answers as a STAC landing page before any
// records are sent.
func (c *Client) CheckHost(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stac host unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stac host %s: unexpected status %d", c.host, resp.StatusCode)
	}
	var landing struct {
		Type        string `json:"type"`
		StacVersion string `json:"stac_version"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&landing); err != nil {
		return fmt.Errorf("stac host %s: %w", c.host, err)
	}
	if landing.Type != "Catalog" || landing.StacVersion == "" {
		return fmt.Errorf("stac host %s does not answer as a STAC catalog", c.host)
	}
	return nil
}

// UpsertCollection creates the collection, replacing it on conflict if
// updates are enabled.
func (c *Client) UpsertCollection(ctx context.Context, col *stac.Collection) (Outcome, error) {
	if err := col.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(col)
	if err != nil {
		return "", err
	}
	postURL := c.host + "/collections"
	putURL := postURL + "/" + url.PathEscape(col.ID)
	return c.upsert(ctx, postURL, putURL, body)
}

// UpsertItem creates an item under its collection, replacing it on
// conflict if updates are enabled.
func (c *Client) UpsertItem(ctx context.Context, collectionID string, item *stac.Item) (Outcome, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	postURL := c.host + "/collections/" + url.PathEscape(collectionID) + "/items"
	putURL := postURL + "/" + url.PathEscape(item.ID)
	return c.upsert(ctx, postURL, putURL, body)
}

// StoreRawCollection upserts a collection document already in its STAC
// wire form, without round-tripping it through the record model.
func (c *Client) StoreRawCollection(ctx context.Context, id string, body []byte) (Outcome, error) {
	postURL := c.host + "/collections"
	putURL := postURL + "/" + url.PathEscape(id)
	return c.upsert(ctx, postURL, putURL, body)
}

// StoreRawItem upserts an item document already in its STAC wire form.
func (c *Client) StoreRawItem(ctx context.Context, collectionID, id string, body []byte) (Outcome, error) {
	postURL := c.host + "/collections/" + url.PathEscape(collectionID) + "/items"
	putURL := postURL + "/" + url.PathEscape(id)
	return c.upsert(ctx, postURL, putURL, body)
}

// upsert posts the record and, on a conflict with updates enabled,
// replaces it with a put. A conflict without updates is a skip, not a
// failure.
func (c *Client) upsert(ctx context.Context, postURL, putURL string, body []byte) (Outcome, error) {
	status, err := c.send(ctx, http.MethodPost, postURL, body)
	if err != nil {
		return "", err
	}
	switch {
	case status >= 200 && status < 300:
		return OutcomeCreated, nil
	case status == http.StatusConflict:
		if !c.update {
			return OutcomeSkipped, nil
		}
	default:
		return "", fmt.Errorf("post %s: unexpected status %d", postURL, status)
	}

	status, err = c.send(ctx, http.MethodPut, putURL, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("put %s: unexpected status %d", putURL, status)
	}
	return OutcomeUpdated, nil
}

func (c *Client) send(ctx context.Context, method, rawURL string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode, nil
}
