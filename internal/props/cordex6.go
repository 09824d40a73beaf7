package props

import (
	"context"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/stac"
)

const cordex6Prefix = "cordex6"

// Cordex6Mandatory lists the attributes a CORDEX-CMIP6 record cannot be
// published without.
var Cordex6Mandatory = []string{
	"activity_id",
	"domain_id",
	"driving_experiment_id",
	"driving_source_id",
	"institution_id",
	"source_id",
	"variable_id",
}

// cordex6Attrs are the global attributes carried through to the
// cordex6 group when present, mandatory ones included.
var cordex6Attrs = []string{
	"activity_id",
	"contact",
	"creation_date",
	"domain_id",
	"domain",
	"driving_experiment_id",
	"driving_experiment",
	"driving_institution_id",
	"driving_source_id",
	"driving_variant_label",
	"external_variables",
	"frequency",
	"grid",
	"institution",
	"institution_id",
	"license",
	"mip_era",
	"product",
	"project_id",
	"source",
	"source_id",
	"source_type",
	"tracking_id",
	"variable_id",
	"version_realization",
}

// Cordex6Helper maps a dataset's CORDEX-CMIP6 global attributes onto the
// cordex6 property group.
type Cordex6Helper struct {
	attrs map[string]string
	memo  memo
}

// NewCordex6Helper builds the helper from a descriptor.
func NewCordex6Helper(d *catalog.Descriptor, _ Shared) (Helper, error) {
	return &Cordex6Helper{attrs: d.Attributes}, nil
}

// Prefix implements Helper.
func (h *Cordex6Helper) Prefix() string { return cordex6Prefix }

// Group implements Helper.
func (h *Cordex6Helper) Group(context.Context) (stac.PropertyGroup, error) {
	return h.memo.compute(func() (stac.PropertyGroup, error) {
		group := stac.NewPropertyGroup(cordex6Prefix)
		for _, key := range cordex6Attrs {
			if v, ok := h.attrs[key]; ok && v != "" {
				group.Set(key, v)
			}
		}
		return group, nil
	})
}

// Apply implements Helper; the cordex6 group has no published extension
// schema, so no URI is stamped.
func (h *Cordex6Helper) Apply(ctx context.Context, item *stac.Item) error {
	return applyGroup(ctx, h, item, "")
}
