package composer

import (
	"fmt"

	"github.com/jlandry/stac-populator/internal/props"
)

// baseRegistrations are the helpers every convention shares: access
// assets, datacube structure, CF parameters, and file-level facts.
func baseRegistrations() []props.Registration {
	return []props.Registration{
		{Name: "thredds", Prefix: "thredds", New: props.NewTHREDDSHelper},
		{Name: "datacube", Prefix: "cube", New: props.NewDataCubeHelper},
		{Name: "cf", Prefix: "cf", New: props.NewCFHelper},
		{
			Name:     "file",
			Prefix:   "file",
			Requires: []props.Requirement{props.NeedClient, props.NeedLogger},
			New:      props.NewFileHelper,
		},
	}
}

// ForConvention resolves a named dataset convention to its helper set
// and item-identifier strategy.
func ForConvention(name string) ([]props.Registration, ItemIDFunc, error) {
	switch name {
	case "", "base":
		return baseRegistrations(), nil, nil
	case "cmip6":
		regs := append(baseRegistrations(), props.Registration{
			Name:      "cmip6",
			Prefix:    "cmip6",
			Mandatory: props.CMIP6Mandatory,
			New:       props.NewCMIP6Helper,
		})
		return regs, props.CMIP6ItemID, nil
	case "cordex6":
		regs := append(baseRegistrations(), props.Registration{
			Name:      "cordex6",
			Prefix:    "cordex6",
			Mandatory: props.Cordex6Mandatory,
			New:       props.NewCordex6Helper,
		})
		return regs, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown convention %q", name)
	}
}
