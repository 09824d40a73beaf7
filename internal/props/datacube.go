package props

import (
	"context"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/stac"
)

const (
	cubePrefix       = "cube"
	datacubeSchema   = "https://stac-extensions.github.io/datacube/v2.2.0/schema.json"
	dimensionSpatial = "spatial"
	dimensionTime    = "temporal"
)

// DataCubeHelper summarizes a dataset's dimensions and variables. Its
// extents stay in the dataset's native CRS: dimension summaries are
// exempt from the canonical-CRS rule that governs geometry and bbox.
type DataCubeHelper struct {
	d    *catalog.Descriptor
	memo memo
}

// NewDataCubeHelper builds the helper from a descriptor.
func NewDataCubeHelper(d *catalog.Descriptor, _ Shared) (Helper, error) {
	return &DataCubeHelper{d: d}, nil
}

// Prefix implements Helper.
func (h *DataCubeHelper) Prefix() string { return cubePrefix }

// Group implements Helper.
func (h *DataCubeHelper) Group(context.Context) (stac.PropertyGroup, error) {
	return h.memo.compute(func() (stac.PropertyGroup, error) {
		group := stac.NewPropertyGroup(cubePrefix)
		group.Set("dimensions", h.dimensions())
		group.Set("variables", h.variables())
		return group, nil
	})
}

// Apply implements Helper.
func (h *DataCubeHelper) Apply(ctx context.Context, item *stac.Item) error {
	return applyGroup(ctx, h, item, datacubeSchema)
}

// dimensions classifies each declared dimension by its coordinate
// variable and attaches a native-CRS extent.
func (h *DataCubeHelper) dimensions() map[string]any {
	dims := map[string]any{}
	for name, length := range h.d.Dimensions {
		v, ok := h.d.Variables[name]
		if !ok {
			continue
		}
		axis := classifyAxis(v)
		if axis == "" {
			continue
		}

		entry := map[string]any{
			"description": describeVariable(v, name),
		}
		switch axis {
		case "t":
			entry["type"] = dimensionTime
			entry["extent"] = h.temporalExtent()
		default:
			entry["type"] = dimensionSpatial
			entry["axis"] = axis
			entry["extent"] = h.spatialExtent(axis, length)
		}
		dims[name] = entry
	}
	return dims
}

// spatialExtent returns native-coordinate bounds for one spatial axis,
// falling back to index bounds when the dataset carries no geospatial
// attributes for it.
func (h *DataCubeHelper) spatialExtent(axis string, length int) []any {
	var minAttr, maxAttr string
	switch axis {
	case "x":
		minAttr, maxAttr = "geospatial_lon_min", "geospatial_lon_max"
	case "y":
		minAttr, maxAttr = "geospatial_lat_min", "geospatial_lat_max"
	case "z":
		minAttr, maxAttr = "geospatial_vertical_min", "geospatial_vertical_max"
	}
	lo, okLo := h.d.CFFloat(minAttr)
	hi, okHi := h.d.CFFloat(maxAttr)
	if okLo && okHi {
		return []any{lo, hi}
	}
	return []any{0, length}
}

func (h *DataCubeHelper) temporalExtent() []any {
	start, _ := h.d.CF("time_coverage_start")
	end, _ := h.d.CF("time_coverage_end")
	return []any{start, end}
}

// variables lists the non-dimension variables; bounds variables are
// marked auxiliary.
func (h *DataCubeHelper) variables() map[string]any {
	bounds := h.boundsVariables()
	vars := map[string]any{}
	for name, v := range h.d.Variables {
		if _, isDim := h.d.Dimensions[name]; isDim {
			continue
		}
		kind := "data"
		if bounds[name] {
			kind = "auxiliary"
		}
		entry := map[string]any{
			"type":        kind,
			"description": describeVariable(v, name),
			"dimensions":  v.Shape,
		}
		if unit, ok := v.Attributes["units"]; ok {
			entry["unit"] = unit
		}
		vars[name] = entry
	}
	return vars
}

// boundsVariables collects the names referenced by any variable's
// "bounds" attribute.
func (h *DataCubeHelper) boundsVariables() map[string]bool {
	out := map[string]bool{}
	for _, v := range h.d.Variables {
		if b, ok := v.Attributes["bounds"]; ok && b != "" {
			out[b] = true
		}
	}
	return out
}

func describeVariable(v catalog.Variable, fallback string) string {
	if ln, ok := v.Attributes["long_name"]; ok && ln != "" {
		return ln
	}
	if sn, ok := v.Attributes["standard_name"]; ok && sn != "" {
		return sn
	}
	return fallback
}

// classifyAxis maps a coordinate variable onto a cube axis letter using
// the CF conventions' identification criteria.
func classifyAxis(v catalog.Variable) string {
	switch v.Attributes["axis"] {
	case "X":
		return "x"
	case "Y":
		return "y"
	case "Z":
		return "z"
	case "T":
		return "t"
	}
	switch v.Attributes["_CoordinateAxisType"] {
	case "Lon", "GeoX":
		return "x"
	case "Lat", "GeoY":
		return "y"
	case "GeoZ", "Height", "Pressure":
		return "z"
	case "Time":
		return "t"
	}
	switch v.Attributes["standard_name"] {
	case "longitude", "projection_x_coordinate", "grid_longitude":
		return "x"
	case "latitude", "projection_y_coordinate", "grid_latitude":
		return "y"
	case "air_pressure", "height", "depth", "altitude", "model_level_number":
		return "z"
	case "time":
		return "t"
	}
	switch v.Attributes["units"] {
	case "degrees_east", "degree_east", "degrees_E", "degreesE":
		return "x"
	case "degrees_north", "degree_north", "degrees_N", "degreesN":
		return "y"
	}
	if p := v.Attributes["positive"]; p == "up" || p == "down" {
		return "z"
	}
	return ""
}
