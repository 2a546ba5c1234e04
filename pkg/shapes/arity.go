package shapes

import "fmt"

// Arity is the inclusive range of connector counts a variant may declare.
type Arity struct {
	Min int
	Max int
}

func (a Arity) String() string {
	if a.Min == a.Max {
		return fmt.Sprintf("%d", a.Min)
	}
	return fmt.Sprintf("%d-%d", a.Min, a.Max)
}

// Contains reports whether n lies within the range.
func (a Arity) Contains(n int) bool {
	return n >= a.Min && n <= a.Max
}

var (
	lineArity         = Arity{Min: 2, Max: 2}
	elbowArity        = Arity{Min: 2, Max: 2}
	teeArity          = Arity{Min: 3, Max: 4}
	endSprinklerArity = Arity{Min: 1, Max: 1}
	centerArity       = Arity{Min: 1, Max: 2}
)

// ExpectedArity returns the connector range for the shape's variant and,
// for sprinklers, its mount.
func ExpectedArity(s Shape) Arity {
	switch v := s.(type) {
	case *Line:
		return lineArity
	case *Elbow:
		return elbowArity
	case *Tee:
		return teeArity
	case *Sprinkler:
		if _, ok := v.Mount.(CenterMount); ok {
			return centerArity
		}
		return endSprinklerArity
	}
	return Arity{}
}

// ExpectedCount is the connector count a shape should have. Variable-arity
// variants are measured against their own declared count, clamped into range.
func ExpectedCount(s Shape) int {
	a := ExpectedArity(s)
	n := s.Common().DeclaredConnectors()
	switch {
	case n < a.Min:
		return a.Min
	case n > a.Max:
		return a.Max
	default:
		return n
	}
}
