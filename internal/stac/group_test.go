package stac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPropertyGroupApply(t *testing.T) {
	g := NewPropertyGroup("cmip6")
	g.Set("activity_id", "CMIP")
	g.Set("source_id", "CanESM5")

	it := NewItem("x")
	g.Apply(it)
	require.Equal(t, "CMIP", it.Properties["cmip6:activity_id"])
	require.Equal(t, "CanESM5", it.Properties["cmip6:source_id"])

	// Applying again is idempotent.
	g.Apply(it)
	require.Len(t, it.Properties, 2)
}

func TestPropertyGroupEmptyPrefix(t *testing.T) {
	g := NewPropertyGroup("")
	require.Equal(t, "title", g.Key("title"))
}

func TestCheckPrefixes(t *testing.T) {
	require.NoError(t, CheckPrefixes([]string{"", "cube", "cf", "cmip6"}))

	err := CheckPrefixes([]string{"cube", "cf", "cube"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "namespace conflict")

	// Prefixes differing only by case still collide.
	require.Error(t, CheckPrefixes([]string{"cf", "CF"}))
}
