package crs

import "fmt"

// Source records which precedence tier produced a resolution.
type Source string

// Resolution sources, in precedence order.
const (
	SourceForced   Source = "forced"
	SourceMetadata Source = "metadata"
	SourceFallback Source = "fallback"
	SourceDefault  Source = "default"
)

// Metadata attribute keys designating a dataset's CRS.
const (
	// AttrHorizontal names the 2D horizontal CRS in dataset metadata.
	AttrHorizontal = "crs"
	// AttrVertical optionally names a vertical/3D CRS.
	AttrVertical = "crs_vertical"
)

// Inputs are the three caller-controlled values plus the one dataset
// property that participate in precedence evaluation. Resolution is a
// pure function of these fields.
type Inputs struct {
	// Forced always wins when set.
	Forced string
	// MetaHorizontal and MetaVertical carry the dataset metadata's
	// designated CRS attributes, empty when absent.
	MetaHorizontal string
	MetaVertical   string
	// Fallback applies when neither an override nor metadata names a CRS.
	Fallback string
	// HasVerticalAxis switches the default tier to the 3D canonical CRS.
	HasVerticalAxis bool
}

// Resolution is the outcome of precedence evaluation.
type Resolution struct {
	CRS    CRS
	Source Source
}

// Resolve evaluates the four precedence tiers in strict order, first
// match wins: forced, metadata, fallback, default. An unknown CRS name
// at the winning tier is an error rather than a silent demotion to the
// next tier.
func Resolve(in Inputs) (Resolution, error) {
	if in.Forced != "" {
		c, err := Lookup(in.Forced)
		if err != nil {
			return Resolution{}, fmt.Errorf("forced crs: %w", err)
		}
		return Resolution{CRS: c, Source: SourceForced}, nil
	}

	if id := metadataCRS(in); id != "" {
		c, err := Lookup(id)
		if err != nil {
			return Resolution{}, fmt.Errorf("metadata crs: %w", err)
		}
		return Resolution{CRS: c, Source: SourceMetadata}, nil
	}

	if in.Fallback != "" {
		c, err := Lookup(in.Fallback)
		if err != nil {
			return Resolution{}, fmt.Errorf("fallback crs: %w", err)
		}
		return Resolution{CRS: c, Source: SourceFallback}, nil
	}

	if in.HasVerticalAxis {
		return Resolution{CRS: registry[CRS84h], Source: SourceDefault}, nil
	}
	return Resolution{CRS: registry[CRS84], Source: SourceDefault}, nil
}

// metadataCRS picks between the dataset's designated attribute keys: the
// vertical/3D key governs when the dataset has a vertical axis, else the
// horizontal key.
func metadataCRS(in Inputs) string {
	if in.HasVerticalAxis && in.MetaVertical != "" {
		return in.MetaVertical
	}
	return in.MetaHorizontal
}
