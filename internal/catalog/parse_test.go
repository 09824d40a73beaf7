package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCatalog = `<?xml version="1.0" encoding="UTF-8"?>
<catalog xmlns="http://www.unidata.ucar.edu/namespaces/thredds/InvCatalog/v1.0"
         xmlns:xlink="http://www.w3.org/1999/xlink"
         name="Test Catalog">
  <service name="all" serviceType="Compound" base="">
    <service name="http" serviceType="HTTPServer" base="/thredds/fileServer/"/>
    <service name="odap" serviceType="OpenDAP" base="/thredds/dodsC/"/>
    <service name="ncml" serviceType="NCML" base="/thredds/ncml/"/>
  </service>
  <dataset name="climate" ID="climate">
    <dataset name="first.nc" ID="data/first.nc" urlPath="data/first.nc"/>
    <dataset name="second.nc" ID="data/second.nc" urlPath="data/second.nc"/>
    <catalogRef xlink:href="sub/catalog.xml" xlink:title="Subdir" name=""/>
  </dataset>
  <catalogRef xlink:href="other/catalog.html" xlink:title="Other" name=""/>
</catalog>`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog("https://example.org/thredds/catalog/climate/catalog.xml", []byte(sampleCatalog))
	require.NoError(t, err)

	require.Equal(t, "Test Catalog", cat.Name)
	require.Len(t, cat.Datasets, 2, "container dataset has no urlPath and is not a leaf")
	require.Len(t, cat.References, 2)

	first := cat.Datasets[0]
	require.Equal(t, "data/first.nc", first.ID)
	require.Equal(t, KindLeaf, first.Kind)
	require.Equal(t,
		"https://example.org/thredds/fileServer/data/first.nc",
		first.AccessURLs[ServiceHTTPServer],
	)
	require.Equal(t,
		"https://example.org/thredds/dodsC/data/first.nc",
		first.AccessURLs[ServiceOpenDAP],
	)
	require.Equal(t,
		"https://example.org/thredds/ncml/data/first.nc",
		first.AccessURLs[ServiceNCML],
	)

	// Document order: leaves before references, references in source order.
	require.Equal(t, "data/second.nc", cat.Datasets[1].ID)
	require.Equal(t, "Subdir", cat.References[0].Name)
	require.Equal(t,
		"https://example.org/thredds/catalog/climate/sub/catalog.xml",
		cat.References[0].URL,
	)
}

func TestParseCatalogRefHTMLNormalized(t *testing.T) {
	cat, err := ParseCatalog("https://example.org/thredds/catalog/climate/catalog.xml", []byte(sampleCatalog))
	require.NoError(t, err)
	require.Equal(t,
		"https://example.org/thredds/catalog/climate/other/catalog.xml",
		cat.References[1].URL,
		"html catalog rendering resolves to its xml form",
	)
}

func TestParseCatalogExplicitAccess(t *testing.T) {
	doc := `<?xml version="1.0"?>
<catalog name="access">
  <service name="odap" serviceType="OpenDAP" base="/thredds/dodsC/"/>
  <dataset name="d" ID="d">
    <access serviceName="odap" urlPath="special/d.nc"/>
  </dataset>
</catalog>`
	cat, err := ParseCatalog("https://example.org/thredds/catalog.xml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, cat.Datasets, 1)
	require.Equal(t,
		"https://example.org/thredds/dodsC/special/d.nc",
		cat.Datasets[0].AccessURLs[ServiceOpenDAP],
	)
}

func TestParseServiceTypeAliases(t *testing.T) {
	testCases := []struct {
		raw  string
		want ServiceType
	}{
		{"OpenDAP", ServiceOpenDAP},
		{"DODS", ServiceOpenDAP},
		{"HTTPServer", ServiceHTTPServer},
		{"httpserver", ServiceHTTPServer},
		{"NCML", ServiceNCML},
		{"SomethingNew", ServiceType("SomethingNew")},
	}
	for _, tc := range testCases {
		if got := ParseServiceType(tc.raw); got != tc.want {
			t.Errorf("ParseServiceType(%q) = %q; want %q", tc.raw, got, tc.want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "xml passthrough",
			in:   "https://example.org/thredds/catalog.xml",
			want: "https://example.org/thredds/catalog.xml",
		},
		{
			name: "html normalized",
			in:   "https://example.org/thredds/catalog.html",
			want: "https://example.org/thredds/catalog.xml",
		},
		{
			name:    "query parameters rejected",
			in:      "https://example.org/thredds/catalog.xml?dataset=x",
			wantErr: true,
		},
		{
			name:    "non-http scheme rejected",
			in:      "ftp://example.org/catalog.xml",
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateURL(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
