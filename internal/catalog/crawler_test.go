package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlandry/stac-populator/internal/report"
)

// testServer serves a small THREDDS tree:
//
//	/catalog.xml            root: one dataset, refs to /a and /b
//	/a/catalog.xml          one dataset, ref to /a/deep
//	/a/deep/catalog.xml     one dataset
//	/b/catalog.xml          returns 500
//
// Every dataset's NcML endpoint serves a minimal document, except
// "broken.nc" whose NcML endpoint fails.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	catalogDoc := func(name string, datasets []string, refs []string) string {
		doc := `<?xml version="1.0"?><catalog xmlns:xlink="http://www.w3.org/1999/xlink" name="` + name + `">` +
			`<service name="all" serviceType="Compound" base="">` +
			`<service name="ncml" serviceType="NCML" base="/ncml/"/>` +
			`<service name="http" serviceType="HTTPServer" base="/fileServer/"/>` +
			`</service>`
		for _, ds := range datasets {
			doc += fmt.Sprintf(`<dataset name=%q ID=%q urlPath=%q/>`, ds, ds, ds)
		}
		for _, ref := range refs {
			doc += fmt.Sprintf(`<catalogRef xlink:href=%q xlink:title=%q/>`, ref, ref)
		}
		return doc + `</catalog>`
	}

	mux.HandleFunc("/catalog.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, catalogDoc("root", []string{"root.nc", "broken.nc"}, []string{"/a/catalog.xml", "/b/catalog.xml"}))
	})
	mux.HandleFunc("/a/catalog.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, catalogDoc("a", []string{"a.nc"}, []string{"/a/deep/catalog.xml"}))
	})
	mux.HandleFunc("/a/deep/catalog.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, catalogDoc("deep", []string{"deep.nc"}, nil))
	})
	mux.HandleFunc("/b/catalog.xml", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/ncml/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ncml/broken.nc" {
			http.Error(w, "no metadata", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<netcdf><attribute name="title" value="ok"/></netcdf>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestCrawler(srv *httptest.Server, maxDepth int) *Crawler {
	client := NewClient(ClientConfig{HTTPClient: srv.Client()})
	return NewCrawler(client, maxDepth, nil)
}

func TestWalkFullTree(t *testing.T) {
	srv := testServer(t)
	crawler := newTestCrawler(srv, 10)

	var names []string
	stats, err := crawler.Walk(context.Background(), srv.URL+"/catalog.xml", func(d *Descriptor) error {
		names = append(names, d.Name)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, []string{"root.nc", "a.nc", "deep.nc"}, names)
	require.Equal(t, 3, stats.Datasets)
	require.Equal(t, 3, stats.Catalogs, "root, a and deep; b never parses")

	// Two isolated failures: broken.nc metadata and the /b sub-catalog.
	require.Len(t, stats.Failures, 2)
	require.Equal(t, report.StageFetch, stats.Failures[0].Stage)
	require.Contains(t, stats.Failures[0].URL, "/ncml/broken.nc")
	require.Contains(t, stats.Failures[1].URL, "/b/catalog.xml")
}

func TestWalkDepthLimit(t *testing.T) {
	srv := testServer(t)
	crawler := newTestCrawler(srv, 1)

	var names []string
	stats, err := crawler.Walk(context.Background(), srv.URL+"/catalog.xml", func(d *Descriptor) error {
		names = append(names, d.Name)
		return nil
	})
	require.NoError(t, err)

	// Depth 1 reaches /a but not /a/deep.
	require.Equal(t, []string{"root.nc", "a.nc"}, names)
	require.Equal(t, 1, stats.Skipped, "the deep reference is tallied, not silently dropped")
}

func TestWalkDepthZero(t *testing.T) {
	srv := testServer(t)
	crawler := newTestCrawler(srv, 0)

	stats, err := crawler.Walk(context.Background(), srv.URL+"/catalog.xml", func(*Descriptor) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, stats.Datasets, "only the root document's resolvable dataset")
	require.Equal(t, 2, stats.Skipped)
}

func TestWalkRootFailureFatal(t *testing.T) {
	srv := testServer(t)
	crawler := newTestCrawler(srv, 10)

	_, err := crawler.Walk(context.Background(), srv.URL+"/missing/catalog.xml", func(*Descriptor) error { return nil })
	require.Error(t, err)
	require.Contains(t, err.Error(), "root catalog unreachable")
}

func TestWalkStop(t *testing.T) {
	srv := testServer(t)
	crawler := newTestCrawler(srv, 10)

	seen := 0
	stats, err := crawler.Walk(context.Background(), srv.URL+"/catalog.xml", func(*Descriptor) error {
		seen++
		return ErrStopWalk
	})
	require.NoError(t, err)
	require.Equal(t, 1, seen)
	require.Equal(t, 1, stats.Datasets)
}

func TestWalkCancellation(t *testing.T) {
	srv := testServer(t)
	crawler := newTestCrawler(srv, 10)

	ctx, cancel := context.WithCancel(context.Background())
	var names []string
	stats, err := crawler.Walk(ctx, srv.URL+"/catalog.xml", func(d *Descriptor) error {
		names = append(names, d.Name)
		cancel()
		return nil
	})
	require.NoError(t, err)

	// Cancellation after the first dataset: the remaining root dataset
	// and both references land in the skipped tally, never as failures.
	require.Equal(t, []string{"root.nc"}, names)
	require.Equal(t, 1, stats.Datasets)
	require.Equal(t, 3, stats.Skipped)
	require.Empty(t, stats.Failures)
}

func TestWalkParseFailureStage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><catalog xmlns:xlink="http://www.w3.org/1999/xlink" name="root">`+
			`<service name="ncml" serviceType="NCML" base="/ncml/"/>`+
			`<dataset name="garbled.nc" ID="garbled.nc" urlPath="garbled.nc"/>`+
			`<catalogRef xlink:href="/bad/catalog.xml" xlink:title="bad"/>`+
			`</catalog>`)
	})
	mux.HandleFunc("/ncml/garbled.nc", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<netcdf><attribute name="title"`) // truncated document
	})
	mux.HandleFunc("/bad/catalog.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `this is not a catalog`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	crawler := newTestCrawler(srv, 10)
	stats, err := crawler.Walk(context.Background(), srv.URL+"/catalog.xml", func(*Descriptor) error { return nil })
	require.NoError(t, err)

	// Both documents arrived over the wire; the failures are parse
	// failures, not fetch failures.
	require.Len(t, stats.Failures, 2)
	require.Equal(t, report.StageParse, stats.Failures[0].Stage)
	require.Contains(t, stats.Failures[0].URL, "/ncml/garbled.nc")
	require.Equal(t, report.StageParse, stats.Failures[1].Stage)
	require.Contains(t, stats.Failures[1].URL, "/bad/catalog.xml")
}

func TestWalkHTMLRootNormalized(t *testing.T) {
	srv := testServer(t)
	crawler := newTestCrawler(srv, 10)

	stats, err := crawler.Walk(context.Background(), srv.URL+"/catalog.html", func(*Descriptor) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 3, stats.Datasets)
}
