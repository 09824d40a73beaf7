package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/jlandry/stac-populator/internal/stac"
)

// CollectionConfig describes the destination collection. It is authored
// as a YAML file next to the populator config.
type CollectionConfig struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	License     string   `yaml:"license"`

	SpatialExtent  []float64              `yaml:"spatialextent"`
	TemporalExtent []string               `yaml:"temporalextent"`
	Providers      []ProviderConfig       `yaml:"providers"`
	Links          []LinkConfig           `yaml:"links"`
	Assets         map[string]AssetConfig `yaml:"assets"`
}

// ProviderConfig mirrors a collection provider entry.
type ProviderConfig struct {
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
	URL   string   `yaml:"url"`
}

// LinkConfig mirrors a static collection link.
type LinkConfig struct {
	Rel   string `yaml:"rel"`
	Href  string `yaml:"href"`
	Type  string `yaml:"type"`
	Title string `yaml:"title"`
}

// AssetConfig mirrors a static collection asset.
type AssetConfig struct {
	Href  string   `yaml:"href"`
	Type  string   `yaml:"type"`
	Title string   `yaml:"title"`
	Roles []string `yaml:"roles"`
}

// LoadCollection reads and validates a collection description file.
func LoadCollection(path string) (*CollectionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("collection config: %w", err)
	}
	var cc CollectionConfig
	if err := yaml.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("collection config %s: %w", path, err)
	}
	if err := cc.Validate(); err != nil {
		return nil, fmt.Errorf("collection config %s: %w", path, err)
	}
	return &cc, nil
}

// Validate enforces the fields a publishable collection cannot omit.
func (cc *CollectionConfig) Validate() error {
	required := map[string]string{
		"id":          cc.ID,
		"title":       cc.Title,
		"description": cc.Description,
		"license":     cc.License,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if len(cc.Keywords) == 0 {
		return fmt.Errorf("keywords is required")
	}
	if n := len(cc.SpatialExtent); n != 0 && n != 4 && n != 6 {
		return fmt.Errorf("spatialextent must have 4 or 6 values, got %d", n)
	}
	if n := len(cc.TemporalExtent); n != 0 && n != 2 {
		return fmt.Errorf("temporalextent must have exactly 2 values, got %d", n)
	}
	return nil
}

// Collection converts the file form into the record to publish.
func (cc *CollectionConfig) Collection() (*stac.Collection, error) {
	col := &stac.Collection{
		ID:          cc.ID,
		Title:       cc.Title,
		Description: cc.Description,
		Keywords:    cc.Keywords,
		License:     cc.License,
	}
	if len(cc.SpatialExtent) > 0 {
		col.Extent.BBoxes = [][]float64{cc.SpatialExtent}
	}
	if len(cc.TemporalExtent) == 2 {
		var iv stac.TemporalInterval
		for i, raw := range cc.TemporalExtent {
			if raw == "" {
				continue
			}
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return nil, fmt.Errorf("temporalextent[%d]: %w", i, err)
			}
			iv[i] = &t
		}
		col.Extent.Intervals = []stac.TemporalInterval{iv}
	}
	for _, p := range cc.Providers {
		col.Providers = append(col.Providers, stac.Provider{Name: p.Name, Roles: p.Roles, URL: p.URL})
	}
	for _, l := range cc.Links {
		col.Links = append(col.Links, stac.Link{Rel: l.Rel, Href: l.Href, MediaType: l.Type, Title: l.Title})
	}
	if len(cc.Assets) > 0 {
		col.Assets = make(map[string]stac.Asset, len(cc.Assets))
		for key, a := range cc.Assets {
			col.Assets[key] = stac.Asset{Href: a.Href, MediaType: a.Type, Title: a.Title, Roles: a.Roles}
		}
	}
	return col, nil
}
