// Package crs defines the coordinate reference systems the populator
// understands and the precedence logic that picks the one governing a
// dataset's coordinates.
//
// This is deliberately not a geodesy library: every supported CRS is a
// geographic lon/lat system differing only in axis order, prime meridian
// placement, or the presence of a vertical axis, so transforms to the
// canonical CRS84 family are closed-form.
package crs

import (
	"fmt"
	"math"
)

// AxisOrder declares how a CRS orders its horizontal axes.
type AxisOrder int

// Axis orders.
const (
	OrderLonLat AxisOrder = iota
	OrderLatLon
)

// Well-known CRS identifiers.
const (
	// CRS84 is the canonical 2D output CRS (lon/lat, WGS84 datum).
	CRS84 = "CRS84"
	// CRS84h is the canonical 3D output CRS (lon/lat/ellipsoidal height).
	CRS84h = "CRS84h"
	// CRS84PM180 is the antimeridian-shifted variant used for datasets
	// whose longitudes are expressed in [0, 360).
	CRS84PM180 = "CRS84_PM180"
	// EPSG4326 is WGS84 with the authority-declared lat/lon axis order.
	EPSG4326 = "EPSG:4326"
)

// CRS is one coordinate reference system definition.
type CRS struct {
	ID    string
	Dims  int
	Order AxisOrder
	// lonOffset is the prime meridian shift applied when converting a
	// native longitude to canonical CRS84 longitude.
	lonOffset float64
}

var registry = map[string]CRS{
	CRS84:      {ID: CRS84, Dims: 2, Order: OrderLonLat},
	CRS84h:     {ID: CRS84h, Dims: 3, Order: OrderLonLat},
	CRS84PM180: {ID: CRS84PM180, Dims: 2, Order: OrderLonLat, lonOffset: -180},
	EPSG4326:   {ID: EPSG4326, Dims: 2, Order: OrderLatLon},
}

// Lookup returns the CRS definition registered under id.
func Lookup(id string) (CRS, error) {
	c, ok := registry[id]
	if !ok {
		return CRS{}, fmt.Errorf("unknown crs %q", id)
	}
	return c, nil
}

// MustLookup is Lookup for identifiers known at compile time.
func MustLookup(id string) CRS {
	c, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return c
}

// Shifted returns the antimeridian-shifted counterpart of c, used when a
// dataset's longitude extrema prove a [0, 360) convention. Systems that
// already shift, or that are not plain lon/lat, are returned unchanged.
func (c CRS) Shifted() CRS {
	if c.ID == CRS84 || c.ID == CRS84h {
		return registry[CRS84PM180]
	}
	return c
}

// Canonical reports whether coordinates in c are already canonical
// CRS84(h) values.
func (c CRS) Canonical() bool {
	return c.lonOffset == 0 && c.Order == OrderLonLat
}

// Canonicalize converts one native coordinate tuple, given in the CRS's
// declared axis order, to canonical [lon, lat] or [lon, lat, z].
func (c CRS) Canonicalize(coord []float64) ([]float64, error) {
	if len(coord) < 2 {
		return nil, fmt.Errorf("coordinate tuple needs at least 2 values, got %d", len(coord))
	}
	lon, lat := coord[0], coord[1]
	if c.Order == OrderLatLon {
		lon, lat = coord[1], coord[0]
	}
	lon += c.lonOffset

	out := []float64{lon, lat}
	if c.Dims == 3 && len(coord) > 2 {
		out = append(out, coord[2])
	}
	return out, nil
}

// Nativize is the inverse of Canonicalize: it converts a canonical
// [lon, lat(, z)] tuple back into the CRS's native axis order and prime
// meridian convention.
func (c CRS) Nativize(coord []float64) ([]float64, error) {
	if len(coord) < 2 {
		return nil, fmt.Errorf("coordinate tuple needs at least 2 values, got %d", len(coord))
	}
	lon := coord[0] - c.lonOffset
	lat := coord[1]

	out := []float64{lon, lat}
	if c.Order == OrderLatLon {
		out = []float64{lat, lon}
	}
	if c.Dims == 3 && len(coord) > 2 {
		out = append(out, coord[2])
	}
	return out, nil
}

// ValidLon reports whether lon is a finite canonical longitude.
func ValidLon(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}
