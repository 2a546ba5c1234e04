package shapes

import (
	"encoding/json"
	"slices"
)

// ID identifies a shape record. Unique across a dataset.
type ID int64

// PipeID identifies a pipe group.
type PipeID int64

// Diameter is a nominal pipe diameter (DN).
type Diameter float64

// Kind is the variant tag carried in shape_name.
type Kind string

const (
	KindLine      Kind = "Line"
	KindTee       Kind = "Tee"
	KindElbow     Kind = "Elbow"
	KindSprinkler Kind = "Sprinkler"
)

// Kinds lists every variant in display order.
func Kinds() []Kind {
	return []Kind{KindLine, KindTee, KindElbow, KindSprinkler}
}

// ParseKind reports whether s names a known variant.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	if slices.Contains(Kinds(), k) {
		return k, true
	}
	return "", false
}

// SprinklerType is the mounting subtype of a sprinkler.
type SprinklerType string

const (
	SprinklerEnd    SprinklerType = "end"
	SprinklerCenter SprinklerType = "center"
)

// SprinklerTypes lists every sprinkler subtype.
func SprinklerTypes() []SprinklerType {
	return []SprinklerType{SprinklerEnd, SprinklerCenter}
}

// ParseSprinklerType reports whether s names a known subtype.
func ParseSprinklerType(s string) (SprinklerType, bool) {
	t := SprinklerType(s)
	if slices.Contains(SprinklerTypes(), t) {
		return t, true
	}
	return "", false
}

// Base holds the fields every variant carries.
type Base struct {
	ID       ID
	PipeID   PipeID
	Vertices []json.RawMessage
	// Connectors holds the neighbor ids in authored order.
	Connectors []ID
	// BadConnectors holds connector entries that were not integer ids.
	// They count toward the declared connector total but can never resolve.
	BadConnectors []json.RawMessage
}

// Common returns the shared fields of a shape.
func (b *Base) Common() *Base { return b }

// DeclaredConnectors is the number of connector entries as authored.
func (b *Base) DeclaredConnectors() int {
	return len(b.Connectors) + len(b.BadConnectors)
}

// Shape is implemented only by *Line, *Tee, *Elbow and *Sprinkler.
type Shape interface {
	Kind() Kind
	Common() *Base
	// Diameters returns the scalar DN as a one-element slice, or a Tee's
	// branch sequence.
	Diameters() []Diameter
	sealed()
}

// Line is a straight pipe segment.
type Line struct {
	Base
	DN Diameter
}

func (*Line) Kind() Kind              { return KindLine }
func (l *Line) Diameters() []Diameter { return []Diameter{l.DN} }
func (*Line) sealed()                 {}

// Elbow is a direction change between two segments.
type Elbow struct {
	Base
	DN Diameter
}

func (*Elbow) Kind() Kind              { return KindElbow }
func (e *Elbow) Diameters() []Diameter { return []Diameter{e.DN} }
func (*Elbow) sealed()                 {}

// Tee is a junction. DN is ordered by branch and aligned with Connectors.
type Tee struct {
	Base
	DN []Diameter
}

func (*Tee) Kind() Kind              { return KindTee }
func (t *Tee) Diameters() []Diameter { return slices.Clone(t.DN) }
func (*Tee) sealed()                 {}

// Sprinkler is a discharge head with an end or center mount.
type Sprinkler struct {
	Base
	DN    Diameter
	Mount Mount
}

func (*Sprinkler) Kind() Kind              { return KindSprinkler }
func (s *Sprinkler) Diameters() []Diameter { return []Diameter{s.DN} }
func (*Sprinkler) sealed()                 {}

// Type returns the sprinkler subtype.
func (s *Sprinkler) Type() SprinklerType { return s.Mount.Type() }

// Arm returns the arm length for end sprinklers.
func (s *Sprinkler) Arm() (float64, bool) {
	if m, ok := s.Mount.(EndMount); ok {
		return m.Arm, true
	}
	return 0, false
}

// Mount is the nested case of a Sprinkler: EndMount or CenterMount.
type Mount interface {
	Type() SprinklerType
	mount()
}

// EndMount is a sprinkler at the end of an arm.
type EndMount struct {
	Arm float64
}

func (EndMount) Type() SprinklerType { return SprinklerEnd }
func (EndMount) mount()              {}

// CenterMount is a sprinkler mounted mid-run.
type CenterMount struct{}

func (CenterMount) Type() SprinklerType { return SprinklerCenter }
func (CenterMount) mount()              {}

// HasDiameter reports whether d is the shape's DN or, for a Tee, one of its branches.
func HasDiameter(s Shape, d Diameter) bool {
	switch v := s.(type) {
	case *Tee:
		return slices.Contains(v.DN, d)
	case *Line:
		return v.DN == d
	case *Elbow:
		return v.DN == d
	case *Sprinkler:
		return v.DN == d
	}
	return false
}

// SprinklerTypeOf returns the subtype when s is a sprinkler.
func SprinklerTypeOf(s Shape) (SprinklerType, bool) {
	if sp, ok := s.(*Sprinkler); ok {
		return sp.Type(), true
	}
	return "", false
}
