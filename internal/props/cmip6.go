package props

import (
	"context"
	"strings"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/stac"
)

const (
	cmip6Prefix = "cmip6"
	cmip6Schema = "https://stac-extensions.github.io/cmip6/v1.0.0/schema.json"
)

// cmip6IDKeys are the controlled-vocabulary attributes whose values form
// the dataset's canonical identifier, in DRS order.
var cmip6IDKeys = []string{
	"activity_id",
	"institution_id",
	"source_id",
	"experiment_id",
	"variant_label",
	"table_id",
	"variable_id",
	"grid_label",
}

// CMIP6Mandatory lists the attributes a CMIP6 record cannot be published
// without.
var CMIP6Mandatory = append([]string{}, cmip6IDKeys...)

// cmip6Optional are the remaining global attributes carried through when
// present.
var cmip6Optional = []string{
	"Conventions",
	"creation_date",
	"data_specs_version",
	"experiment",
	"frequency",
	"further_info_url",
	"institution",
	"mip_era",
	"nominal_resolution",
	"realm",
	"source",
	"source_type",
	"sub_experiment",
	"sub_experiment_id",
	"tracking_id",
	"version",
	"license",
}

// CMIP6Helper maps a dataset's CMIP6 global attributes onto the cmip6
// property group.
type CMIP6Helper struct {
	attrs map[string]string
	memo  memo
}

// NewCMIP6Helper builds the helper from a descriptor.
func NewCMIP6Helper(d *catalog.Descriptor, _ Shared) (Helper, error) {
	return &CMIP6Helper{attrs: d.Attributes}, nil
}

// Prefix implements Helper.
func (h *CMIP6Helper) Prefix() string { return cmip6Prefix }

// Group implements Helper. Mandatory attributes are copied even when
// empty; the validation pass reports them so the composer can fail the
// entity with a precise cause.
func (h *CMIP6Helper) Group(context.Context) (stac.PropertyGroup, error) {
	return h.memo.compute(func() (stac.PropertyGroup, error) {
		group := stac.NewPropertyGroup(cmip6Prefix)
		for _, key := range cmip6IDKeys {
			if v, ok := h.attrs[key]; ok && v != "" {
				group.Set(key, v)
			}
		}
		for _, key := range cmip6Optional {
			if v, ok := h.attrs[key]; ok && v != "" {
				group.Set(key, v)
			}
		}
		return group, nil
	})
}

// Apply implements Helper.
func (h *CMIP6Helper) Apply(ctx context.Context, item *stac.Item) error {
	return applyGroup(ctx, h, item, cmip6Schema)
}

// CMIP6ItemID derives the DRS-style identifier from the descriptor's
// global attributes, empty when any component is missing.
func CMIP6ItemID(d *catalog.Descriptor) string {
	parts := make([]string, 0, len(cmip6IDKeys))
	for _, key := range cmip6IDKeys {
		v, ok := d.Attributes[key]
		if !ok || v == "" {
			return ""
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "_")
}
