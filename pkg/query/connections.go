package query

import (
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
	"github.com/dd0wney/cluso-pipenet/pkg/storage"
)

// Warning codes attached to a ConnectionReport.
const (
	WarnArityOutOfRange   = "arity_out_of_range"
	WarnInconsistentCount = "inconsistent_count"
	WarnTeeBranchMismatch = "tee_branch_mismatch"
	WarnSelfReference     = "self_reference"
	WarnDuplicate         = "duplicate_connector"
	WarnAsymmetricLink    = "asymmetric_link"
)

// Warning is a data-integrity observation. It never fails the analysis.
type Warning struct {
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Connector *shapes.ID `json:"connector,omitempty"`
}

// Neighbor is a connector that resolved to an indexed shape.
type Neighbor struct {
	Slot  int
	Shape shapes.Shape
}

// ConnectionReport is the resolved/missing breakdown for one shape.
type ConnectionReport struct {
	Shape         shapes.Shape
	Declared      int
	Resolved      []Neighbor
	Missing       []shapes.ID
	Unparseable   int
	ExpectedCount int
	ExpectedArity shapes.Arity
	// Consistent is true when resolved plus missing equals the declared count.
	Consistent bool
	Warnings   []Warning
}

// MissingCount is the number of dangling connectors.
func (r *ConnectionReport) MissingCount() int {
	return len(r.Missing)
}

// ArityOK reports whether the declared count lies in the variant's range.
func (r *ConnectionReport) ArityOK() bool {
	return r.ExpectedArity.Contains(r.Declared)
}

// AnalyzeConnections resolves every connector of the shape with the given id.
// An unknown id yields storage.ErrShapeNotFound.
func AnalyzeConnections(idx *storage.ShapeIndex, id shapes.ID) (*ConnectionReport, error) {
	s, err := idx.Get(id)
	if err != nil {
		return nil, err
	}

	base := s.Common()
	r := &ConnectionReport{
		Shape:         s,
		Declared:      base.DeclaredConnectors(),
		Unparseable:   len(base.BadConnectors),
		ExpectedArity: shapes.ExpectedArity(s),
		ExpectedCount: shapes.ExpectedCount(s),
	}

	seen := make(map[shapes.ID]bool, len(base.Connectors))
	for slot, target := range base.Connectors {
		if target == base.ID {
			r.warn(WarnSelfReference, "connector points back at the shape itself", &target)
		}
		if seen[target] {
			r.warn(WarnDuplicate, fmt.Sprintf("connector %d is listed more than once", target), &target)
		}
		seen[target] = true

		n, ok := idx.Lookup(target)
		if !ok {
			r.Missing = append(r.Missing, target)
			continue
		}
		r.Resolved = append(r.Resolved, Neighbor{Slot: slot, Shape: n})
		if target != base.ID && !slices.Contains(n.Common().Connectors, base.ID) {
			r.warn(WarnAsymmetricLink, fmt.Sprintf("neighbor %d does not list %d among its connectors", target, base.ID), &target)
		}
	}

	r.Consistent = len(r.Resolved)+len(r.Missing) == r.Declared
	if !r.Consistent {
		r.warn(WarnInconsistentCount, fmt.Sprintf(
			"declared %d connectors but classified %d resolved and %d missing (%d unparseable)",
			r.Declared, len(r.Resolved), len(r.Missing), r.Unparseable), nil)
	}

	if !r.ArityOK() {
		r.warn(WarnArityOutOfRange, fmt.Sprintf(
			"%s declares %d connectors, expected %s", s.Kind(), r.Declared, r.ExpectedArity), nil)
	}

	if tee, ok := s.(*shapes.Tee); ok && len(tee.DN) != r.Declared {
		r.warn(WarnTeeBranchMismatch, fmt.Sprintf(
			"Tee has %d branch diameters but %d connectors", len(tee.DN), r.Declared), nil)
	}

	return r, nil
}

func (r *ConnectionReport) warn(code, msg string, connector *shapes.ID) {
	w := Warning{Code: code, Message: msg}
	if connector != nil {
		id := *connector
		w.Connector = &id
	}
	r.Warnings = append(r.Warnings, w)
}
