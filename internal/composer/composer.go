// Package composer aggregates property helpers per entity kind and
// assembles normalized catalog records from raw dataset descriptors.
package composer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/crs"
	"github.com/jlandry/stac-populator/internal/geometry"
	"github.com/jlandry/stac-populator/internal/props"
	"github.com/jlandry/stac-populator/internal/stac"
	"github.com/jlandry/stac-populator/internal/validate"
)

// ErrNamespaceConflict marks two registered helpers whose property
// groups would collide. It is a configuration error raised at setup,
// before any crawling begins.
var ErrNamespaceConflict = errors.New("helper namespace conflict")

// ItemIDFunc derives an item identifier from a descriptor; an empty
// result falls through to the next strategy.
type ItemIDFunc func(*catalog.Descriptor) string

// Config controls composition.
type Config struct {
	// ForceCRS always wins CRS resolution when set.
	ForceCRS string
	// FallbackCRS applies when neither an override nor dataset metadata
	// names a CRS.
	FallbackCRS string
}

// Composer builds normalized items from descriptors by distributing
// shared resources to a fixed set of helpers and merging their groups.
type Composer struct {
	registrations []props.Registration
	itemID        ItemIDFunc
	shared        props.Shared
	cfg           Config
	logger        *zap.Logger
}

// New builds a Composer and fails fast on helper namespace conflicts.
func New(regs []props.Registration, itemID ItemIDFunc, shared props.Shared, cfg Config, logger *zap.Logger) (*Composer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefixes := make([]string, 0, len(regs))
	for _, reg := range regs {
		prefixes = append(prefixes, reg.Prefix)
	}
	if err := stac.CheckPrefixes(prefixes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNamespaceConflict, err)
	}
	return &Composer{
		registrations: regs,
		itemID:        itemID,
		shared:        shared,
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// Compose assembles one normalized item. Helpers run in declaration
// order; a mandatory-field violation fails the entity, while an
// unavailable geometry only drops its spatial fields.
func (c *Composer) Compose(ctx context.Context, d *catalog.Descriptor) (*stac.Item, error) {
	item := stac.NewItem(c.resolveID(d))

	start, end, err := temporalExtent(d)
	if err != nil {
		return nil, fmt.Errorf("temporal extent: %w", err)
	}
	item.StartDatetime = start
	item.EndDatetime = end

	if err := c.applySpatial(d, item); err != nil {
		return nil, err
	}

	for _, reg := range c.registrations {
		helper, err := reg.New(d, c.shared.Subset(reg.Requires))
		if err != nil {
			return nil, fmt.Errorf("helper %s: %w", reg.Name, err)
		}
		group, err := helper.Group(ctx)
		if err != nil {
			return nil, fmt.Errorf("helper %s: %w", reg.Name, err)
		}
		if len(reg.Mandatory) > 0 {
			if res := validate.Check(group, validate.Required{Fields: reg.Mandatory}); !res.Valid() {
				return nil, fmt.Errorf("helper %s: %w: %v", reg.Name, props.ErrMandatoryField, res.Error())
			}
		}
		if err := helper.Apply(ctx, item); err != nil {
			return nil, fmt.Errorf("helper %s: %w", reg.Name, err)
		}
	}
	return item, nil
}

// resolveID tries the convention's identifier, then the dataset path;
// stac.NewItem assigns a UUID if both come up empty.
func (c *Composer) resolveID(d *catalog.Descriptor) string {
	if c.itemID != nil {
		if id := c.itemID(d); id != "" {
			return id
		}
	}
	return props.DatasetID(d)
}

// applySpatial resolves the governing CRS and derives canonical spatial
// fields. An unavailable extent is not an error: the item is emitted
// without geometry rather than with a fabricated zero-extent box.
func (c *Composer) applySpatial(d *catalog.Descriptor, item *stac.Item) error {
	hasVertical := d.HasVerticalAxis()
	metaH, _ := d.CF(crs.AttrHorizontal)
	metaV, _ := d.CF(crs.AttrVertical)

	res, err := crs.Resolve(crs.Inputs{
		Forced:          c.cfg.ForceCRS,
		MetaHorizontal:  metaH,
		MetaVertical:    metaV,
		Fallback:        c.cfg.FallbackCRS,
		HasVerticalAxis: hasVertical,
	})
	if err != nil {
		return fmt.Errorf("crs resolution: %w", err)
	}

	spatial, err := geometry.Build(res, spatialExtents(d, hasVertical))
	if err != nil {
		if errors.Is(err, geometry.ErrExtentUnavailable) {
			c.logger.Warn("spatial extent unavailable, emitting item without geometry",
				zap.String("item", item.ID),
				zap.String("crs", res.CRS.ID),
			)
			return nil
		}
		return fmt.Errorf("geometry: %w", err)
	}

	item.Geometry = spatial.Polygon
	item.BBox = spatial.BBox
	return nil
}

// spatialExtents assembles the native-coordinate extents from the
// descriptor's geospatial attributes. Missing attributes surface as NaN
// so the builder reports extent-unavailable uniformly.
func spatialExtents(d *catalog.Descriptor, hasVertical bool) geometry.Extents {
	ext := geometry.Extents{
		Lon: geometry.Extent{Min: cfFloatOrNaN(d, "geospatial_lon_min"), Max: cfFloatOrNaN(d, "geospatial_lon_max")},
		Lat: geometry.Extent{Min: cfFloatOrNaN(d, "geospatial_lat_min"), Max: cfFloatOrNaN(d, "geospatial_lat_max")},
	}
	if hasVertical {
		vmin, okMin := d.CFFloat("geospatial_vertical_min")
		vmax, okMax := d.CFFloat("geospatial_vertical_max")
		if okMin && okMax {
			ext.Vertical = &geometry.Extent{Min: vmin, Max: vmax}
		}
	}
	return ext
}

func cfFloatOrNaN(d *catalog.Descriptor, name string) float64 {
	v, ok := d.CFFloat(name)
	if !ok {
		return math.NaN()
	}
	return v
}

// temporalExtent parses the dataset's coverage bounds. Formats vary by
// data node, so several layouts are tried.
func temporalExtent(d *catalog.Descriptor) (time.Time, time.Time, error) {
	start, err := parseCFTime(d, "time_coverage_start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseCFTime(d, "time_coverage_end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

var cfTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseCFTime(d *catalog.Descriptor, attr string) (time.Time, error) {
	raw, ok := d.CF(attr)
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range cfTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s value %q", attr, raw)
}
