package catalog

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// xmlNetcdf mirrors the NcML rendering of a dataset's metadata as served
// by the THREDDS NCML service.
type xmlNetcdf struct {
	XMLName    xml.Name       `xml:"netcdf"`
	Location   string         `xml:"location,attr"`
	Attributes []xmlAttribute `xml:"attribute"`
	Dimensions []xmlDimension `xml:"dimension"`
	Variables  []xmlVariable  `xml:"variable"`
	Groups     []xmlGroup     `xml:"group"`
}

type xmlAttribute struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlDimension struct {
	Name   string `xml:"name,attr"`
	Length string `xml:"length,attr"`
}

type xmlVariable struct {
	Name       string         `xml:"name,attr"`
	Shape      string         `xml:"shape,attr"`
	Type       string         `xml:"type,attr"`
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlGroup struct {
	Name       string         `xml:"name,attr"`
	Attributes []xmlAttribute `xml:"attribute"`
	Groups     []xmlGroup     `xml:"group"`
}

// ParseNcML decodes an NcML metadata document into a Descriptor. The
// node supplies identity and access URLs; the document supplies
// attributes, dimensions and variables.
func ParseNcML(node Node, doc []byte) (*Descriptor, error) {
	var raw xmlNetcdf
	if err := xml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode ncml document: %w", err)
	}

	d := &Descriptor{
		ID:         node.ID,
		Name:       node.Name,
		URL:        node.AccessURLs[ServiceNCML],
		Attributes: attributeMap(raw.Attributes),
		Groups:     map[string]map[string]string{},
		Dimensions: map[string]int{},
		Variables:  map[string]Variable{},
		AccessURLs: node.AccessURLs,
	}

	for _, dim := range raw.Dimensions {
		n, err := strconv.Atoi(dim.Length)
		if err != nil {
			return nil, fmt.Errorf("dimension %q has non-integer length %q", dim.Name, dim.Length)
		}
		d.Dimensions[dim.Name] = n
	}

	for _, v := range raw.Variables {
		d.Variables[v.Name] = Variable{
			Type:       v.Type,
			Shape:      splitShape(v.Shape),
			Attributes: attributeMap(v.Attributes),
		}
	}

	collectGroups(d.Groups, "", raw.Groups)
	return d, nil
}

func attributeMap(attrs []xmlAttribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name] = a.Value
	}
	return m
}

// collectGroups flattens nested groups using slash-joined names, matching
// how THREDDS names derived metadata groups.
func collectGroups(dest map[string]map[string]string, prefix string, groups []xmlGroup) {
	for _, g := range groups {
		name := g.Name
		if prefix != "" {
			name = prefix + "/" + g.Name
		}
		dest[name] = attributeMap(g.Attributes)
		collectGroups(dest, name, g.Groups)
	}
}

func splitShape(shape string) []string {
	return strings.Fields(shape)
}
