package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlandry/stac-populator/internal/stac"
)

// stacAPI is a minimal in-memory STAC API for upsert tests.
type stacAPI struct {
	collections map[string]bool
	items       map[string]bool
	puts        int
}

func newStacAPI() *stacAPI {
	return &stacAPI{collections: map[string]bool{}, items: map[string]bool{}}
}

func (a *stacAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"type":"Catalog","stac_version":"1.0.0","id":"root"}`)
	})
	mux.HandleFunc("POST /collections", func(w http.ResponseWriter, r *http.Request) {
		var col struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&col)
		if a.collections[col.ID] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		a.collections[col.ID] = true
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("PUT /collections/{id}", func(w http.ResponseWriter, r *http.Request) {
		a.puts++
		a.collections[r.PathValue("id")] = true
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /collections/{id}/items", func(w http.ResponseWriter, r *http.Request) {
		var it struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&it)
		if a.items[it.ID] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		a.items[it.ID] = true
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("PUT /collections/{id}/items/{item}", func(w http.ResponseWriter, r *http.Request) {
		a.puts++
		a.items[r.PathValue("item")] = true
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func testCollection() *stac.Collection {
	return &stac.Collection{ID: "c1", Description: "test", License: "CC-BY-4.0"}
}

func newTestClient(t *testing.T, api *stacAPI, update bool) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{Host: srv.URL, Update: update, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsBadHost(t *testing.T) {
	_, err := NewClient(ClientConfig{Host: "ftp://stac.example.org"})
	require.Error(t, err)
}

func TestCheckHost(t *testing.T) {
	client := newTestClient(t, newStacAPI(), false)
	require.NoError(t, client.CheckHost(context.Background()))
}

func TestCheckHostNotACatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"hello":"world"}`)
	}))
	defer srv.Close()
	client, err := NewClient(ClientConfig{Host: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	require.Error(t, client.CheckHost(context.Background()))
}

func TestUpsertCollectionCreate(t *testing.T) {
	api := newStacAPI()
	client := newTestClient(t, api, false)

	outcome, err := client.UpsertCollection(context.Background(), testCollection())
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.True(t, api.collections["c1"])
}

func TestUpsertCollectionConflictSkips(t *testing.T) {
	api := newStacAPI()
	api.collections["c1"] = true
	client := newTestClient(t, api, false)

	outcome, err := client.UpsertCollection(context.Background(), testCollection())
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, outcome)
	require.Zero(t, api.puts, "no replacement without --update")
}

func TestUpsertCollectionConflictUpdates(t *testing.T) {
	api := newStacAPI()
	api.collections["c1"] = true
	client := newTestClient(t, api, true)

	outcome, err := client.UpsertCollection(context.Background(), testCollection())
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, outcome)
	require.Equal(t, 1, api.puts)
}

func TestUpsertItemFlow(t *testing.T) {
	api := newStacAPI()
	client := newTestClient(t, api, true)

	item := stac.NewItem("item-1")
	outcome, err := client.UpsertItem(context.Background(), "c1", item)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)

	outcome, err = client.UpsertItem(context.Background(), "c1", item)
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, outcome)
}

func TestUpsertCollectionValidates(t *testing.T) {
	client := newTestClient(t, newStacAPI(), false)
	_, err := client.UpsertCollection(context.Background(), &stac.Collection{ID: "x"})
	require.Error(t, err, "an incomplete collection never reaches the wire")
}

func TestUpsertUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	client, err := NewClient(ClientConfig{Host: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = client.UpsertItem(context.Background(), "c1", stac.NewItem("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 502")
}
