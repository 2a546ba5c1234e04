package query

import (
	"slices"

	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
)

// Filter is a conjunction of optional predicates. Within one predicate the
// listed values are alternatives. A nil slice leaves that predicate open;
// a non-nil empty slice means every supplied value was unknown and nothing
// can match.
type Filter struct {
	Kinds          []shapes.Kind
	PipeIDs        []shapes.PipeID
	Diameters      []shapes.Diameter
	SprinklerTypes []shapes.SprinklerType
}

// WithShapeNames constrains the variant. Unknown names are dropped.
func (f Filter) WithShapeNames(names ...string) Filter {
	if len(names) == 0 {
		return f
	}
	kinds := make([]shapes.Kind, 0, len(names))
	for _, n := range names {
		if k, ok := shapes.ParseKind(n); ok {
			kinds = append(kinds, k)
		}
	}
	f.Kinds = kinds
	return f
}

// WithPipeIDs constrains the pipe group.
func (f Filter) WithPipeIDs(ids ...int64) Filter {
	if len(ids) == 0 {
		return f
	}
	f.PipeIDs = make([]shapes.PipeID, len(ids))
	for i, id := range ids {
		f.PipeIDs[i] = shapes.PipeID(id)
	}
	return f
}

// WithDiameters constrains the DN. A Tee matches when any branch matches.
func (f Filter) WithDiameters(dns ...float64) Filter {
	if len(dns) == 0 {
		return f
	}
	f.Diameters = make([]shapes.Diameter, len(dns))
	for i, d := range dns {
		f.Diameters[i] = shapes.Diameter(d)
	}
	return f
}

// WithSprinklerTypes constrains the sprinkler subtype, which also excludes
// every non-sprinkler. Unknown subtypes are dropped.
func (f Filter) WithSprinklerTypes(types ...string) Filter {
	if len(types) == 0 {
		return f
	}
	out := make([]shapes.SprinklerType, 0, len(types))
	for _, t := range types {
		if st, ok := shapes.ParseSprinklerType(t); ok {
			out = append(out, st)
		}
	}
	f.SprinklerTypes = out
	return f
}

// IsEmpty reports whether the filter matches every shape.
func (f Filter) IsEmpty() bool {
	return f.Kinds == nil && f.PipeIDs == nil && f.Diameters == nil && f.SprinklerTypes == nil
}

// Matches evaluates the filter against one shape.
func (f Filter) Matches(s shapes.Shape) bool {
	if f.Kinds != nil && !slices.Contains(f.Kinds, s.Kind()) {
		return false
	}
	if f.PipeIDs != nil && !slices.Contains(f.PipeIDs, s.Common().PipeID) {
		return false
	}
	if f.Diameters != nil && !slices.ContainsFunc(f.Diameters, func(d shapes.Diameter) bool {
		return shapes.HasDiameter(s, d)
	}) {
		return false
	}
	if f.SprinklerTypes != nil {
		st, ok := shapes.SprinklerTypeOf(s)
		if !ok || !slices.Contains(f.SprinklerTypes, st) {
			return false
		}
	}
	return true
}

// singleGroup returns the pipe id when the filter pins exactly one group.
func (f Filter) singleGroup() (shapes.PipeID, bool) {
	if len(f.PipeIDs) == 1 {
		return f.PipeIDs[0], true
	}
	return 0, false
}
