// Package stac holds the normalized catalog record model: items,
// collections, assets, links and the namespaced property groups helpers
// contribute to them.
package stac

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venicegeo/geojson-go/geojson"
)

// Version is the STAC spec version stamped onto emitted records.
const Version = "1.0.0"

// Asset is one access mechanism for an item's data.
type Asset struct {
	Href      string   `json:"href"`
	MediaType string   `json:"type,omitempty"`
	Title     string   `json:"title,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// Link relates an entity to another resource.
type Link struct {
	Rel       string `json:"rel"`
	Href      string `json:"href"`
	MediaType string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
}

// Provider credits an organization involved in producing or hosting a
// collection.
type Provider struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
	URL   string   `json:"url,omitempty"`
}

// Item is one normalized dataset record. Its geometry and bbox, when
// present, are always in the canonical CRS; property groups may carry
// native-CRS values (the data-cube dimension summaries do).
type Item struct {
	ID            string
	Geometry      *geojson.Polygon
	BBox          geojson.BoundingBox
	StartDatetime time.Time
	EndDatetime   time.Time
	Properties    map[string]any
	Assets        map[string]Asset
	Links         []Link
	Extensions    []string
}

// NewItem builds an empty item. An empty id gets a random UUID so the
// record is still addressable downstream.
func NewItem(id string) *Item {
	if id == "" {
		id = uuid.NewString()
	}
	return &Item{
		ID:         id,
		Properties: map[string]any{},
		Assets:     map[string]Asset{},
	}
}

// HasSpatial reports whether the item carries spatial fields.
func (it *Item) HasSpatial() bool {
	return it.Geometry != nil && len(it.BBox) > 0
}

// AddExtension records an extension schema URI once.
func (it *Item) AddExtension(uri string) {
	if uri == "" {
		return
	}
	for _, u := range it.Extensions {
		if u == uri {
			return
		}
	}
	it.Extensions = append(it.Extensions, uri)
}

// itemJSON is the wire form of an Item.
type itemJSON struct {
	Type       string            `json:"type"`
	Version    string            `json:"stac_version"`
	Extensions []string          `json:"stac_extensions,omitempty"`
	ID         string            `json:"id"`
	Geometry   *geojson.Polygon  `json:"geometry"`
	BBox       []float64         `json:"bbox,omitempty"`
	Properties map[string]any    `json:"properties"`
	Assets     map[string]Asset  `json:"assets,omitempty"`
	Links      []Link            `json:"links,omitempty"`
}

// MarshalJSON renders the item as a STAC Feature. The item-level
// datetime is always null; the temporal extent is carried by the
// start/end properties.
func (it *Item) MarshalJSON() ([]byte, error) {
	props := make(map[string]any, len(it.Properties)+3)
	for k, v := range it.Properties {
		props[k] = v
	}
	props["datetime"] = nil
	if !it.StartDatetime.IsZero() {
		props["start_datetime"] = it.StartDatetime.UTC().Format(time.RFC3339)
	}
	if !it.EndDatetime.IsZero() {
		props["end_datetime"] = it.EndDatetime.UTC().Format(time.RFC3339)
	}

	return json.Marshal(itemJSON{
		Type:       "Feature",
		Version:    Version,
		Extensions: it.Extensions,
		ID:         it.ID,
		Geometry:   it.Geometry,
		BBox:       it.BBox,
		Properties: props,
		Assets:     it.Assets,
		Links:      it.Links,
	})
}

// TemporalInterval is a [start, end] pair; nil means open-ended.
type TemporalInterval [2]*time.Time

// Extent is a collection's spatial and temporal coverage.
type Extent struct {
	BBoxes    [][]float64
	Intervals []TemporalInterval
}

// Collection is the normalized container record published alongside its
// items.
type Collection struct {
	ID          string
	Title       string
	Description string
	Keywords    []string
	License     string
	Providers   []Provider
	Extent      Extent
	Summaries   map[string]any
	Assets      map[string]Asset
	Links       []Link
}

type collectionJSON struct {
	Type        string           `json:"type"`
	Version     string           `json:"stac_version"`
	ID          string           `json:"id"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description"`
	Keywords    []string         `json:"keywords,omitempty"`
	License     string           `json:"license"`
	Providers   []Provider       `json:"providers,omitempty"`
	Extent      extentJSON       `json:"extent"`
	Summaries   map[string]any   `json:"summaries,omitempty"`
	Assets      map[string]Asset `json:"assets,omitempty"`
	Links       []Link           `json:"links"`
}

type extentJSON struct {
	Spatial  spatialExtentJSON  `json:"spatial"`
	Temporal temporalExtentJSON `json:"temporal"`
}

type spatialExtentJSON struct {
	BBox [][]float64 `json:"bbox"`
}

type temporalExtentJSON struct {
	Interval [][]*string `json:"interval"`
}

// MarshalJSON renders the collection in its STAC wire form.
func (c *Collection) MarshalJSON() ([]byte, error) {
	intervals := make([][]*string, 0, len(c.Extent.Intervals))
	for _, iv := range c.Extent.Intervals {
		pair := make([]*string, 2)
		for i, t := range iv {
			if t != nil {
				s := t.UTC().Format(time.RFC3339)
				pair[i] = &s
			}
		}
		intervals = append(intervals, pair)
	}
	if len(intervals) == 0 {
		intervals = [][]*string{{nil, nil}}
	}
	bboxes := c.Extent.BBoxes
	if len(bboxes) == 0 {
		bboxes = [][]float64{{-180, -90, 180, 90}}
	}
	links := c.Links
	if links == nil {
		links = []Link{}
	}

	return json.Marshal(collectionJSON{
		Type:        "Collection",
		Version:     Version,
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Keywords:    c.Keywords,
		License:     c.License,
		Providers:   c.Providers,
		Extent: extentJSON{
			Spatial:  spatialExtentJSON{BBox: bboxes},
			Temporal: temporalExtentJSON{Interval: intervals},
		},
		Summaries: c.Summaries,
		Assets:    c.Assets,
		Links:     links,
	})
}

// Validate enforces the fields the target catalog requires on a
// collection.
func (c *Collection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("collection id is required")
	}
	if c.Description == "" {
		return fmt.Errorf("collection description is required")
	}
	if c.License == "" {
		return fmt.Errorf("collection license is required")
	}
	return nil
}
