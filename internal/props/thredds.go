package props

import (
	"context"
	"fmt"
	"strings"

	"github.com/jlandry/stac-populator/internal/catalog"
	"github.com/jlandry/stac-populator/internal/stac"
)

const threddsPrefix = "thredds"

// mediaTypes maps service types to the media type of the asset they
// serve.
var mediaTypes = map[catalog.ServiceType]string{
	catalog.ServiceHTTPServer:        "application/x-netcdf",
	catalog.ServiceOpenDAP:           "text/html",
	catalog.ServiceNCML:              "application/xml",
	catalog.ServiceWCS:               "application/xml",
	catalog.ServiceWMS:               "application/xml",
	catalog.ServiceNetcdfSubset:      "application/x-netcdf",
	catalog.ServiceNetcdfSubsetGrid:  "application/x-netcdf",
	catalog.ServiceNetcdfSubsetPoint: "application/x-netcdf",
}

var assetRoles = map[catalog.ServiceType][]string{
	catalog.ServiceHTTPServer:        {"data"},
	catalog.ServiceOpenDAP:           {"data"},
	catalog.ServiceNCML:              {"metadata"},
	catalog.ServiceWCS:               {"data"},
	catalog.ServiceWMS:               {"visual"},
	catalog.ServiceNetcdfSubset:      {"data"},
	catalog.ServiceNetcdfSubsetGrid:  {"data"},
	catalog.ServiceNetcdfSubsetPoint: {"data"},
}

// THREDDSHelper contributes one asset per access service plus the
// data-node source link.
type THREDDSHelper struct {
	accessURLs map[catalog.ServiceType]string
	memo       memo
}

// NewTHREDDSHelper builds the helper from a descriptor.
func NewTHREDDSHelper(d *catalog.Descriptor, _ Shared) (Helper, error) {
	if len(d.AccessURLs) == 0 {
		return nil, fmt.Errorf("dataset %q: %w: no access services", d.Name, ErrMandatoryField)
	}
	return &THREDDSHelper{accessURLs: d.AccessURLs}, nil
}

// Prefix implements Helper.
func (h *THREDDSHelper) Prefix() string { return threddsPrefix }

// Group implements Helper; the THREDDS helper carries no scalar
// properties, only assets and links.
func (h *THREDDSHelper) Group(context.Context) (stac.PropertyGroup, error) {
	return h.memo.compute(func() (stac.PropertyGroup, error) {
		return stac.NewPropertyGroup(threddsPrefix), nil
	})
}

// Apply implements Helper.
func (h *THREDDSHelper) Apply(_ context.Context, item *stac.Item) error {
	for svc, href := range h.accessURLs {
		item.Assets[string(svc)] = stac.Asset{
			Href:      href,
			MediaType: mediaTypes[svc],
			Roles:     assetRoles[svc],
		}
	}
	if href, ok := h.accessURLs[catalog.ServiceHTTPServer]; ok {
		h.ensureSourceLink(item, href)
	}
	return nil
}

// ensureSourceLink adds the data-node resource link once, so repeated
// Apply calls do not accumulate duplicates.
func (h *THREDDSHelper) ensureSourceLink(item *stac.Item, href string) {
	link := SourceLink(href)
	for _, l := range item.Links {
		if l.Rel == link.Rel && l.Href == link.Href {
			return
		}
	}
	item.Links = append(item.Links, link)
}

// SourceLink builds the rel=source link pointing back at the file
// server, titled with the dataset's server-relative path.
func SourceLink(href string) stac.Link {
	title := href
	if i := strings.Index(href, "/fileServer/"); i >= 0 {
		title = href[i+len("/fileServer/"):]
	}
	return stac.Link{
		Rel:       "source",
		Href:      href,
		MediaType: "application/x-netcdf",
		Title:     title,
	}
}

// DatasetID derives the stable item identifier from the file server
// path, the same identity the remote data node uses.
func DatasetID(d *catalog.Descriptor) string {
	href, ok := d.AccessURLs[catalog.ServiceHTTPServer]
	if !ok {
		return ""
	}
	if i := strings.Index(href, "/fileServer/"); i >= 0 {
		return href[i+len("/fileServer/"):]
	}
	return ""
}
