// Package props implements the property helpers: independent units that
// each compute one namespaced group of output fields from a dataset
// descriptor and apply it to a normalized entity.
package props

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/stac"
)

// ErrMandatoryField marks a helper that could not produce a field its
// group declares mandatory. The composer records the entity as failed
// and skips upload for it.
var ErrMandatoryField = errors.New("mandatory field unavailable")

// Requirement names a shared resource a helper consumes. The composer
// supplies each helper only the subset it declares.
type Requirement string

// Shared resource names.
const (
	NeedClient      Requirement = "client"
	NeedLogger      Requirement = "logger"
	NeedFallbackCRS Requirement = "fallback_crs"
)

// Shared carries the cross-helper resources a composer can distribute.
// All fields are safe for concurrent read-only use.
type Shared struct {
	Client      *http.Client
	Logger      *zap.Logger
	FallbackCRS string
}

// Subset returns a copy of s retaining only the declared requirements;
// everything else is zeroed so a helper cannot depend on resources it
// never declared.
func (s Shared) Subset(reqs []Requirement) Shared {
	out := Shared{}
	for _, r := range reqs {
		switch r {
		case NeedClient:
			out.Client = s.Client
		case NeedLogger:
			out.Logger = s.Logger
		case NeedFallbackCRS:
			out.FallbackCRS = s.FallbackCRS
		}
	}
	return out
}

// Helper is one self-contained property computation unit.
type Helper interface {
	// Prefix returns the helper's property namespace.
	Prefix() string
	// Group computes the helper's property group. The computation runs
	// at most once per helper instance; repeated calls return the cached
	// result.
	Group(ctx context.Context) (stac.PropertyGroup, error)
	// Apply writes the helper's outputs (properties, assets, links,
	// extension URIs) onto the item. Calling it twice produces identical
	// field values.
	Apply(ctx context.Context, item *stac.Item) error
}

// Constructor builds a helper from a descriptor and its declared subset
// of shared resources.
type Constructor func(d *catalog.Descriptor, shared Shared) (Helper, error)

// Registration declares a helper to the composer.
type Registration struct {
	Name     string
	Prefix   string
	Requires []Requirement
	// Mandatory lists unprefixed field names that must be present in the
	// computed group for the entity to be publishable.
	Mandatory []string
	New       Constructor
}

// memo caches a helper's single group evaluation.
type memo struct {
	once  sync.Once
	group stac.PropertyGroup
	err   error
}

func (m *memo) compute(fn func() (stac.PropertyGroup, error)) (stac.PropertyGroup, error) {
	m.once.Do(func() {
		m.group, m.err = fn()
	})
	return m.group, m.err
}

// applyGroup is the common Apply path for helpers whose only output is
// their property group.
func applyGroup(ctx context.Context, h Helper, item *stac.Item, extension string) error {
	group, err := h.Group(ctx)
	if err != nil {
		return err
	}
	group.Apply(item)
	item.AddExtension(extension)
	return nil
}
