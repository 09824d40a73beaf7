// Package catalog models a remote THREDDS catalog tree and implements the
// depth-limited crawler that resolves leaf dataset descriptors from it.
package catalog

import (
	"strconv"
	"strings"
)

// NodeKind distinguishes how a catalog entry must be expanded.
type NodeKind string

// Supported node kinds.
const (
	// KindContainer groups child datasets inline in the same document.
	KindContainer NodeKind = "container"
	// KindLeaf is a terminal dataset with resolvable access URLs.
	KindLeaf NodeKind = "leaf"
	// KindReference points at a sub-catalog that must be fetched to expand.
	KindReference NodeKind = "reference"
)

// ServiceType identifies a THREDDS access service.
type ServiceType string

// Service types observed across THREDDS 4.x and 5.x deployments.
const (
	ServiceHTTPServer        ServiceType = "HTTPServer"
	ServiceOpenDAP           ServiceType = "OPENDAP"
	ServiceNCML              ServiceType = "NCML"
	ServiceWCS               ServiceType = "WCS"
	ServiceWMS               ServiceType = "WMS"
	ServiceNetcdfSubset      ServiceType = "NetcdfSubset"
	ServiceNetcdfSubsetGrid  ServiceType = "NetcdfSubsetGrid"
	ServiceNetcdfSubsetPoint ServiceType = "NetcdfSubsetPoint"
	ServiceISO               ServiceType = "ISO"
	ServiceUDDC              ServiceType = "UDDC"
	ServiceCompound          ServiceType = "Compound"
)

// serviceTypeAliases maps the case-insensitive serviceType attribute
// values found in the wild onto their canonical form.
var serviceTypeAliases = map[string]ServiceType{
	"httpserver":        ServiceHTTPServer,
	"opendap":           ServiceOpenDAP,
	"dods":              ServiceOpenDAP,
	"ncml":              ServiceNCML,
	"wcs":               ServiceWCS,
	"wms":               ServiceWMS,
	"netcdfsubset":      ServiceNetcdfSubset,
	"netcdfsubsetgrid":  ServiceNetcdfSubsetGrid,
	"netcdfsubsetpoint": ServiceNetcdfSubsetPoint,
	"iso":               ServiceISO,
	"uddc":              ServiceUDDC,
	"compound":          ServiceCompound,
}

// ParseServiceType canonicalizes a raw serviceType attribute value. Unknown
// types are passed through verbatim so new services surface as assets
// rather than disappearing.
func ParseServiceType(raw string) ServiceType {
	if st, ok := serviceTypeAliases[strings.ToLower(raw)]; ok {
		return st
	}
	return ServiceType(raw)
}

// Node is one entry in a catalog document. Container and leaf nodes are
// fully described by the document they appear in; reference nodes carry
// the URL of the sub-catalog that must be fetched to expand them.
type Node struct {
	ID   string
	Name string
	Kind NodeKind
	// URL is the catalog document the node was parsed from, or for
	// references, the resolved sub-catalog URL.
	URL string
	// AccessURLs maps service types to resolved access URLs (leaves only).
	AccessURLs map[ServiceType]string
}

// Catalog is one parsed THREDDS catalog document. Child ordering follows
// the source document so traversal is reproducible.
type Catalog struct {
	Name string
	URL  string
	// Datasets are the leaf datasets of this document in document order,
	// including those nested under inline container datasets.
	Datasets []Node
	// References are the sub-catalog references in document order.
	References []Node
}

// Variable describes one variable declared in a dataset's metadata
// document.
type Variable struct {
	Type       string
	Shape      []string
	Attributes map[string]string
}

// Descriptor is the raw attribute mapping extracted from one leaf
// dataset. It is immutable once parsed; helpers receive it by reference.
type Descriptor struct {
	ID   string
	Name string
	// URL is the metadata document the descriptor was parsed from.
	URL string
	// Attributes are the dataset's global attributes.
	Attributes map[string]string
	// Groups holds namespaced attribute groups (e.g. CFMetadata).
	Groups map[string]map[string]string
	// Dimensions maps dimension names to their declared sizes.
	Dimensions map[string]int
	Variables  map[string]Variable
	AccessURLs map[ServiceType]string
}

// cfMetadataGroup is the attribute group carrying derived CF metadata on
// THREDDS NcML documents.
const cfMetadataGroup = "CFMetadata"

// CF returns the named attribute from the CFMetadata group, falling back
// to the global attributes. The second return reports presence.
func (d *Descriptor) CF(name string) (string, bool) {
	if grp, ok := d.Groups[cfMetadataGroup]; ok {
		if v, ok := grp[name]; ok {
			return v, true
		}
	}
	v, ok := d.Attributes[name]
	return v, ok
}

// CFFloat parses the named CF attribute as a float64.
func (d *Descriptor) CFFloat(name string) (float64, bool) {
	raw, ok := d.CF(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// HasVerticalAxis reports whether any variable declares a vertical
// coordinate axis, which switches the default CRS to its 3D variant.
func (d *Descriptor) HasVerticalAxis() bool {
	for _, v := range d.Variables {
		switch v.Attributes["axis"] {
		case "Z", "z":
			return true
		}
		switch v.Attributes["_CoordinateAxisType"] {
		case "GeoZ", "Height", "Pressure":
			return true
		}
		if p := v.Attributes["positive"]; p == "up" || p == "down" {
			return true
		}
	}
	return false
}
