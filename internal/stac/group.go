package stac

import (
	"fmt"
	"strings"
)

// PropertyGroup is one helper's namespaced bundle of output fields.
// Field keys are stored unprefixed; Apply namespaces them with the
// group's prefix so groups from different helpers can never collide as
// long as their prefixes differ.
type PropertyGroup struct {
	Prefix string
	Fields map[string]any
}

// NewPropertyGroup builds an empty group.
func NewPropertyGroup(prefix string) PropertyGroup {
	return PropertyGroup{Prefix: prefix, Fields: map[string]any{}}
}

// Set records one field value.
func (g PropertyGroup) Set(name string, value any) {
	g.Fields[name] = value
}

// Key returns the namespaced key for a field name.
func (g PropertyGroup) Key(name string) string {
	if g.Prefix == "" {
		return name
	}
	return g.Prefix + ":" + name
}

// Apply writes the group's fields onto the item's properties. Applying
// the same group twice overwrites with identical values, so the
// operation is idempotent.
func (g PropertyGroup) Apply(item *Item) {
	for name, value := range g.Fields {
		item.Properties[g.Key(name)] = value
	}
}

// CheckPrefixes validates that a set of group prefixes cannot produce
// colliding namespaced keys. It is called at composition setup, before
// any crawling begins.
func CheckPrefixes(prefixes []string) error {
	seen := map[string]string{}
	for _, p := range prefixes {
		key := strings.ToLower(p)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("namespace conflict: helpers %q and %q share prefix %q", prev, p, key)
		}
		seen[key] = p
	}
	return nil
}
