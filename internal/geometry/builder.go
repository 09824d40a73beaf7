// Package geometry derives canonical bounding boxes and footprint
// polygons from a dataset's native axis extents.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/venicegeo/geojson-go/geojson"

	"github.com/jlandry/stac-populator/internal/crs"
)

// ErrExtentUnavailable marks axes whose samples are all NaN or fill
// values. Entities hit by it are emitted without spatial fields instead
// of with a fabricated zero-extent box.
var ErrExtentUnavailable = errors.New("extent unavailable")

// Extent is one axis's minimum and maximum.
type Extent struct {
	Min float64
	Max float64
}

func (e Extent) valid() bool {
	return !math.IsNaN(e.Min) && !math.IsNaN(e.Max)
}

// Extents carries a dataset's native-coordinate coverage. Lon and Lat
// are named after their canonical meaning; their values are in the
// resolved CRS's native convention.
type Extents struct {
	Lon Extent
	Lat Extent
	// Vertical is present only for datasets with a vertical axis.
	Vertical *Extent
	// Corners optionally holds curvilinear grid boundary vertices in the
	// native CRS's declared axis order. When present they supply the
	// footprint ring instead of the four extrema.
	Corners [][]float64
}

// Spatial is the canonical-CRS spatial description of one entity.
type Spatial struct {
	BBox    geojson.BoundingBox
	Polygon *geojson.Polygon
}

// Extrema computes an axis extent from raw samples, excluding NaN and
// any configured fill values. All samples invalid yields
// ErrExtentUnavailable.
func Extrema(samples []float64, fill ...float64) (Extent, error) {
	ext := Extent{Min: math.NaN(), Max: math.NaN()}
	for _, s := range samples {
		if math.IsNaN(s) || isFill(s, fill) {
			continue
		}
		if math.IsNaN(ext.Min) || s < ext.Min {
			ext.Min = s
		}
		if math.IsNaN(ext.Max) || s > ext.Max {
			ext.Max = s
		}
	}
	if !ext.valid() {
		return Extent{}, ErrExtentUnavailable
	}
	return ext, nil
}

func isFill(s float64, fill []float64) bool {
	for _, f := range fill {
		if s == f {
			return true
		}
	}
	return false
}

// Build converts native extents under the resolved CRS into a canonical
// bounding box and closed-ring footprint polygon. This is the only path
// by which raw coordinates reach an entity's spatial fields.
func Build(res crs.Resolution, ext Extents) (*Spatial, error) {
	if !ext.Lon.valid() || !ext.Lat.valid() {
		return nil, ErrExtentUnavailable
	}

	system := res.CRS
	// Longitude ranges expressed as [0, 360) select the antimeridian-
	// shifted variant instead of naively wrapping values, which would
	// scramble the extrema and the ring winding. The minimum must be
	// non-negative: a range like [-10, 190] already straddles the
	// antimeridian in canonical terms and shifting it would push
	// longitudes below -180. A forced CRS is never second-guessed.
	if res.Source != crs.SourceForced && system.Canonical() && ext.Lon.Min >= 0 && ext.Lon.Max > 180 {
		system = system.Shifted()
	}

	ring, err := footprintRing(system, ext)
	if err != nil {
		return nil, err
	}

	bbox := bboxFromRing(ring)
	if ext.Vertical != nil {
		if !ext.Vertical.valid() {
			return nil, ErrExtentUnavailable
		}
		// 3D bbox form: [w, s, zmin, e, n, zmax].
		bbox = geojson.BoundingBox{bbox[0], bbox[1], ext.Vertical.Min, bbox[2], bbox[3], ext.Vertical.Max}
	}

	return &Spatial{
		BBox:    bbox,
		Polygon: geojson.NewPolygon([][][]float64{ring}),
	}, nil
}

// footprintRing produces the closed canonical-CRS ring: the actual
// boundary vertices for curvilinear grids, or the four corner extrema
// for rectilinear ones.
func footprintRing(system crs.CRS, ext Extents) ([][]float64, error) {
	if len(ext.Corners) > 0 {
		return cornerRing(system, ext.Corners)
	}

	// Counterclockwise from the southwest corner, in native axis values.
	native := [][]float64{
		{ext.Lon.Min, ext.Lat.Min},
		{ext.Lon.Max, ext.Lat.Min},
		{ext.Lon.Max, ext.Lat.Max},
		{ext.Lon.Min, ext.Lat.Max},
		{ext.Lon.Min, ext.Lat.Min},
	}
	ring := make([][]float64, 0, len(native))
	for _, pt := range native {
		// Extents are named lon/lat; present them to the CRS in its
		// declared axis order.
		if system.Order == crs.OrderLatLon {
			pt = []float64{pt[1], pt[0]}
		}
		canon, err := system.Canonicalize(pt)
		if err != nil {
			return nil, err
		}
		ring = append(ring, canon[:2])
	}
	return ring, nil
}

func cornerRing(system crs.CRS, corners [][]float64) ([][]float64, error) {
	ring := make([][]float64, 0, len(corners)+1)
	for _, pt := range corners {
		if len(pt) < 2 || math.IsNaN(pt[0]) || math.IsNaN(pt[1]) {
			continue
		}
		canon, err := system.Canonicalize(pt)
		if err != nil {
			return nil, fmt.Errorf("canonicalize corner: %w", err)
		}
		ring = append(ring, canon[:2])
	}
	if len(ring) < 3 {
		return nil, ErrExtentUnavailable
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		ring = append(ring, []float64{first[0], first[1]})
	}
	return ring, nil
}

func bboxFromRing(ring [][]float64) geojson.BoundingBox {
	w, s := math.Inf(1), math.Inf(1)
	e, n := math.Inf(-1), math.Inf(-1)
	for _, pt := range ring {
		w = math.Min(w, pt[0])
		e = math.Max(e, pt[0])
		s = math.Min(s, pt[1])
		n = math.Max(n, pt[1])
	}
	return geojson.BoundingBox{w, s, e, n}
}
