package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxDocumentBytes bounds how much of a catalog or metadata document is
// read into memory.
const maxDocumentBytes = 32 << 20

// Client fetches and parses catalog and metadata documents. The
// underlying http.Client is shared and safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
}

// ClientConfig controls Client behavior.
type ClientConfig struct {
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the default client, e.g. to attach session
	// credentials via a custom transport.
	HTTPClient *http.Client
}

// NewClient builds a Client.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{http: hc, userAgent: cfg.UserAgent}
}

// ValidateURL checks a user-supplied catalog URL and normalizes the
// .html catalog rendering to its .xml form.
func ValidateURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse catalog url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("catalog url %q must use http or https", raw)
	}
	if u.RawQuery != "" {
		return "", fmt.Errorf("catalog url %q must not contain query parameters", raw)
	}
	if strings.HasSuffix(u.Path, ".html") {
		u.Path = strings.TrimSuffix(u.Path, ".html") + ".xml"
	}
	return u.String(), nil
}

// parseError marks a document that was fetched successfully but could
// not be parsed, so failure records can blame the right stage.
type parseError struct {
	err error
}

func (e *parseError) Error() string { return e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// FetchCatalog retrieves and parses one catalog document.
func (c *Client) FetchCatalog(ctx context.Context, catalogURL string) (*Catalog, error) {
	body, err := c.get(ctx, catalogURL)
	if err != nil {
		return nil, err
	}
	cat, err := ParseCatalog(catalogURL, body)
	if err != nil {
		return nil, &parseError{err: err}
	}
	return cat, nil
}

// FetchDescriptor retrieves the NcML metadata document for a leaf node
// and parses it into a Descriptor.
func (c *Client) FetchDescriptor(ctx context.Context, node Node) (*Descriptor, error) {
	ncmlURL, ok := node.AccessURLs[ServiceNCML]
	if !ok {
		return nil, fmt.Errorf("dataset %q exposes no NCML service", node.Name)
	}
	body, err := c.get(ctx, ncmlURL)
	if err != nil {
		return nil, err
	}
	desc, err := ParseNcML(node, body)
	if err != nil {
		return nil, &parseError{err: err}
	}
	return desc, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
