package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlandry/stac-populator/internal/report"
)

// writeRecordTree lays out a two-collection directory:
//
//	collection.json        outer collection
//	data/item1.json        outer item
//	item2.geojson          outer item
//	nested/collection.json inner collection
//	nested/item3.json      inner item
//	notes.txt              ignored
func writeRecordTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"collection.json":        `{"type":"Collection","id":"outer","description":"d","license":"MIT"}`,
		"data/item1.json":        `{"type":"Feature","id":"i1","properties":{}}`,
		"item2.geojson":          `{"type":"Feature","id":"i2","properties":{}}`,
		"nested/collection.json": `{"type":"Collection","id":"inner","description":"d","license":"MIT"}`,
		"nested/item3.json":      `{"type":"Feature","id":"i3","properties":{}}`,
		"notes.txt":              "not a record",
	}
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func TestReingestTree(t *testing.T) {
	root := writeRecordTree(t)
	api := newStacAPI()
	client := newTestClient(t, api, false)

	rep, err := NewReingester(client, nil).Run(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, 3, rep.Published)
	require.Equal(t, 0, rep.Failed)
	require.True(t, api.collections["outer"])
	require.True(t, api.collections["inner"])
	for _, id := range []string{"i1", "i2", "i3"} {
		require.True(t, api.items[id], "item %s not stored", id)
	}
}

func TestReingestPrune(t *testing.T) {
	root := writeRecordTree(t)
	api := newStacAPI()
	client := newTestClient(t, api, false)

	reingester := NewReingester(client, nil)
	reingester.Prune = true
	rep, err := reingester.Run(context.Background(), root)
	require.NoError(t, err)

	// Only the top-most collection is ingested; the nested one and its
	// item are left untouched.
	require.Equal(t, 2, rep.Published)
	require.True(t, api.collections["outer"])
	require.False(t, api.collections["inner"])
	require.False(t, api.items["i3"])
}

func TestReingestExistingItemSkipped(t *testing.T) {
	root := writeRecordTree(t)
	api := newStacAPI()
	api.items["i1"] = true
	client := newTestClient(t, api, false)

	rep, err := NewReingester(client, nil).Run(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, 2, rep.Published)
	require.Equal(t, 1, rep.Skipped)
	require.Equal(t, 0, rep.Failed)
}

func TestReingestBadItemIsolated(t *testing.T) {
	root := writeRecordTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "garbled.json"), []byte(`{"type":`), 0o644))

	api := newStacAPI()
	client := newTestClient(t, api, false)
	rep, err := NewReingester(client, nil).Run(context.Background(), root)
	require.NoError(t, err)

	// One unreadable item never blocks its siblings.
	require.Equal(t, 3, rep.Published)
	require.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Records, 1)
	require.Equal(t, report.StageParse, rep.Records[0].Stage)
	require.Contains(t, rep.Records[0].URL, "garbled.json")
}

func TestReingestBadCollectionSkipsItems(t *testing.T) {
	root := writeRecordTree(t)
	// The outer collection file claims to be an item.
	require.NoError(t, os.WriteFile(filepath.Join(root, "collection.json"),
		[]byte(`{"type":"Feature","id":"oops"}`), 0o644))

	api := newStacAPI()
	client := newTestClient(t, api, false)
	rep, err := NewReingester(client, nil).Run(context.Background(), root)
	require.NoError(t, err)

	// The nested collection still goes through; the outer one fails and
	// its two items are tallied as skipped, never attempted.
	require.Equal(t, 1, rep.Published)
	require.Equal(t, 2, rep.Skipped)
	require.Equal(t, 1, rep.Failed)
	require.Equal(t, report.StageParse, rep.Records[0].Stage)
	require.False(t, api.items["i1"])
	require.True(t, api.items["i3"])
}

func TestReingestEmptyTreeFatal(t *testing.T) {
	api := newStacAPI()
	client := newTestClient(t, api, false)

	_, err := NewReingester(client, nil).Run(context.Background(), t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no collection.json")
}

func TestReingestHostCheckFatal(t *testing.T) {
	root := writeRecordTree(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{Host: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = NewReingester(client, nil).Run(context.Background(), root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "prepare sink")
}
