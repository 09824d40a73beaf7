package catalog

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// xmlCatalog mirrors the THREDDS catalog document structure. Only the
// elements the populator consumes are mapped.
type xmlCatalog struct {
	XMLName  xml.Name     `xml:"catalog"`
	Name     string       `xml:"name,attr"`
	Services []xmlService `xml:"service"`
	Datasets []xmlDataset `xml:"dataset"`
	Refs     []xmlRef     `xml:"catalogRef"`
}

type xmlService struct {
	Name   string       `xml:"name,attr"`
	Type   string       `xml:"serviceType,attr"`
	Base   string       `xml:"base,attr"`
	Nested []xmlService `xml:"service"`
}

type xmlDataset struct {
	Name     string       `xml:"name,attr"`
	ID       string       `xml:"ID,attr"`
	URLPath  string       `xml:"urlPath,attr"`
	Access   []xmlAccess  `xml:"access"`
	Datasets []xmlDataset `xml:"dataset"`
	Refs     []xmlRef     `xml:"catalogRef"`
}

type xmlAccess struct {
	ServiceName string `xml:"serviceName,attr"`
	URLPath     string `xml:"urlPath,attr"`
}

type xmlRef struct {
	Href  string `xml:"http://www.w3.org/1999/xlink href,attr"`
	Title string `xml:"http://www.w3.org/1999/xlink title,attr"`
	Name  string `xml:"name,attr"`
}

// serviceEndpoint is one simple (non-compound) service declaration.
type serviceEndpoint struct {
	name string
	kind ServiceType
	base string
}

// ParseCatalog decodes a THREDDS catalog document fetched from catalogURL.
// Child ordering of the source document is preserved.
func ParseCatalog(catalogURL string, doc []byte) (*Catalog, error) {
	var raw xmlCatalog
	if err := xml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}

	base, err := url.Parse(catalogURL)
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}

	services := flattenServices(raw.Services)
	cat := &Catalog{Name: raw.Name, URL: catalogURL}
	for _, ds := range raw.Datasets {
		collectDatasets(cat, base, services, ds)
	}
	for _, ref := range raw.Refs {
		cat.References = append(cat.References, referenceNode(base, ref))
	}
	return cat, nil
}

// flattenServices expands compound services into their simple members,
// keeping declaration order.
func flattenServices(raw []xmlService) []serviceEndpoint {
	var out []serviceEndpoint
	for _, svc := range raw {
		kind := ParseServiceType(svc.Type)
		if kind == ServiceCompound || len(svc.Nested) > 0 {
			out = append(out, flattenServices(svc.Nested)...)
			continue
		}
		out = append(out, serviceEndpoint{name: svc.Name, kind: kind, base: svc.Base})
	}
	return out
}

// collectDatasets walks the inline dataset tree in document order,
// appending leaf nodes to cat and descending through containers.
func collectDatasets(cat *Catalog, base *url.URL, services []serviceEndpoint, ds xmlDataset) {
	if isLeaf(ds) {
		cat.Datasets = append(cat.Datasets, leafNode(cat.URL, base, services, ds))
	}
	for _, child := range ds.Datasets {
		collectDatasets(cat, base, services, child)
	}
	for _, ref := range ds.Refs {
		cat.References = append(cat.References, referenceNode(base, ref))
	}
}

// isLeaf reports whether the dataset element is a concrete data product
// rather than an inline grouping container.
func isLeaf(ds xmlDataset) bool {
	return ds.URLPath != "" || len(ds.Access) > 0
}

func leafNode(catalogURL string, base *url.URL, services []serviceEndpoint, ds xmlDataset) Node {
	node := Node{
		ID:         ds.ID,
		Name:       ds.Name,
		Kind:       KindLeaf,
		URL:        catalogURL,
		AccessURLs: map[ServiceType]string{},
	}
	if node.ID == "" {
		node.ID = ds.URLPath
	}
	if ds.URLPath != "" {
		for _, svc := range services {
			node.AccessURLs[svc.kind] = resolveAccess(base, svc.base, ds.URLPath)
		}
	}
	for _, acc := range ds.Access {
		for _, svc := range services {
			if svc.name == acc.ServiceName {
				node.AccessURLs[svc.kind] = resolveAccess(base, svc.base, acc.URLPath)
			}
		}
	}
	return node
}

func referenceNode(base *url.URL, ref xmlRef) Node {
	name := ref.Title
	if name == "" {
		name = ref.Name
	}
	return Node{
		Name: name,
		Kind: KindReference,
		URL:  resolveRef(base, ref.Href),
	}
}

// resolveAccess joins a service base path and a dataset urlPath against
// the catalog's host.
func resolveAccess(base *url.URL, serviceBase, urlPath string) string {
	u := *base
	u.Path = serviceBase + urlPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// resolveRef resolves a catalogRef href, which may be relative to the
// parent catalog document.
func resolveRef(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	resolved := base.ResolveReference(ref)
	// THREDDS serves both .html and .xml renderings of the same catalog;
	// only the XML form is machine readable.
	if strings.HasSuffix(resolved.Path, ".html") {
		resolved.Path = strings.TrimSuffix(resolved.Path, ".html") + ".xml"
	}
	return resolved.String()
}
