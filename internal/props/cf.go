package props

import (
	"context"
	"sort"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/stac"
)

const (
	cfPrefix = "cf"
	cfSchema = "https://stac-extensions.github.io/cf/v0.2.0/schema.json"
)

// CFParameter is one physical parameter carried by the dataset.
type CFParameter struct {
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
}

// CFHelper extracts the cf:parameter list from variables that declare a
// standard name.
type CFHelper struct {
	variables map[string]catalog.Variable
	memo      memo
}

// NewCFHelper builds the helper from a descriptor.
func NewCFHelper(d *catalog.Descriptor, _ Shared) (Helper, error) {
	return &CFHelper{variables: d.Variables}, nil
}

// Prefix implements Helper.
func (h *CFHelper) Prefix() string { return cfPrefix }

// Group implements Helper.
func (h *CFHelper) Group(context.Context) (stac.PropertyGroup, error) {
	return h.memo.compute(func() (stac.PropertyGroup, error) {
		group := stac.NewPropertyGroup(cfPrefix)
		group.Set("parameter", h.parameters())
		return group, nil
	})
}

// Apply implements Helper.
func (h *CFHelper) Apply(ctx context.Context, item *stac.Item) error {
	return applyGroup(ctx, h, item, cfSchema)
}

// parameters lists the declared standard names in a stable order.
func (h *CFHelper) parameters() []CFParameter {
	var out []CFParameter
	for _, v := range h.variables {
		name := v.Attributes["standard_name"]
		if name == "" {
			continue
		}
		out = append(out, CFParameter{Name: name, Unit: v.Attributes["units"]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
