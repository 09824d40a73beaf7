// Package validate checks assembled property groups against
// externally-defined constraints, returning a typed result instead of
// raising deep inside unrelated code.
package validate

import (
	"fmt"

	"github.com/jlandry/stac-populator/internal/stac"
)

// Violation describes one constraint breach on a group field.
type Violation struct {
	Field  string
	Rule   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Field, v.Detail, v.Rule)
}

// Rule checks one property group.
type Rule interface {
	Check(group stac.PropertyGroup) []Violation
}

// Result is the outcome of a validation pass.
type Result struct {
	Violations []Violation
}

// Valid reports whether the pass found no violations.
func (r Result) Valid() bool { return len(r.Violations) == 0 }

// Error summarizes the violations as a single error, nil when valid.
func (r Result) Error() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("%d property violation(s), first: %s", len(r.Violations), r.Violations[0])
}

// Required checks that named fields are present and non-empty.
type Required struct {
	Fields []string
}

// Check implements Rule.
func (r Required) Check(group stac.PropertyGroup) []Violation {
	var out []Violation
	for _, name := range r.Fields {
		v, ok := group.Fields[name]
		if !ok || v == nil || v == "" {
			out = append(out, Violation{
				Field:  group.Key(name),
				Rule:   "required",
				Detail: "mandatory field missing or empty",
			})
		}
	}
	return out
}

// Check runs the rules over one group and collects violations.
func Check(group stac.PropertyGroup, rules ...Rule) Result {
	var res Result
	for _, rule := range rules {
		res.Violations = append(res.Violations, rule.Check(group)...)
	}
	return res
}
