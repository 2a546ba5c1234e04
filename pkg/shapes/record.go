package shapes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-pipenet/pkg/validation"
)

// ErrMalformedRecord is wrapped by every RecordError.
var ErrMalformedRecord = errors.New("malformed shape record")

// RecordError describes why a raw record could not be decoded.
type RecordError struct {
	Position int // index in the input, -1 when unknown
	ID       *ID
	Field    string
	Reason   string
	Cause    error
}

func (e *RecordError) Error() string {
	var buf bytes.Buffer
	buf.WriteString("malformed shape record")
	if e.Position >= 0 {
		fmt.Fprintf(&buf, " at position %d", e.Position)
	}
	if e.ID != nil {
		fmt.Fprintf(&buf, " (id %d)", *e.ID)
	}
	if e.Field != "" {
		fmt.Fprintf(&buf, ": %s", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&buf, ": %s", e.Reason)
	}
	if e.Cause != nil {
		fmt.Fprintf(&buf, ": %v", e.Cause)
	}
	return buf.String()
}

func (e *RecordError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrMalformedRecord, e.Cause}
	}
	return []error{ErrMalformedRecord}
}

// Record is the wire form of a shape as stored in the dataset.
type Record struct {
	ID         *int64            `json:"id" validate:"required"`
	ShapeName  string            `json:"shape_name" validate:"required,oneof=Line Tee Elbow Sprinkler"`
	PipeID     *int64            `json:"pipe_id" validate:"required"`
	DN         json.RawMessage   `json:"DN" validate:"required"`
	Vertices   []json.RawMessage `json:"vertices" validate:"required"`
	Connectors []json.RawMessage `json:"connectors" validate:"required"`
	Type       *string           `json:"type,omitempty"`
	Arm        *float64          `json:"arm,omitempty"`
}

// vertexCount is the fixed number of vertices per variant.
var vertexCount = map[Kind]int{
	KindLine:      2,
	KindTee:       1,
	KindElbow:     1,
	KindSprinkler: 4,
}

// Decode parses one raw record into its variant. Failures are *RecordError.
func Decode(raw json.RawMessage) (Shape, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &RecordError{Position: -1, Reason: "invalid JSON object", Cause: err}
	}
	return rec.Shape()
}

// Shape validates the record against its declared variant and builds it.
func (r *Record) Shape() (Shape, error) {
	fail := func(field, reason string) error {
		e := &RecordError{Position: -1, Field: field, Reason: reason}
		if r.ID != nil {
			id := ID(*r.ID)
			e.ID = &id
		}
		return e
	}

	if err := validation.Struct(r); err != nil {
		var fe *validation.FieldError
		if errors.As(err, &fe) {
			return nil, fail(fe.Field, fe.Reason())
		}
		return nil, fail("", err.Error())
	}

	kind := Kind(r.ShapeName)
	if want := vertexCount[kind]; len(r.Vertices) != want {
		return nil, fail("vertices", fmt.Sprintf("%s requires %d vertices, got %d", kind, want, len(r.Vertices)))
	}

	base := Base{
		ID:       ID(*r.ID),
		PipeID:   PipeID(*r.PipeID),
		Vertices: r.Vertices,
	}
	for _, c := range r.Connectors {
		if id, ok := parseID(c); ok {
			base.Connectors = append(base.Connectors, id)
		} else {
			base.BadConnectors = append(base.BadConnectors, c)
		}
	}

	dns, scalar, err := parseDiameters(r.DN)
	if err != nil {
		return nil, fail("DN", err.Error())
	}

	if kind == KindTee {
		if scalar {
			return nil, fail("DN", "Tee requires a sequence of branch diameters")
		}
		if len(dns) == 0 {
			return nil, fail("DN", "Tee requires at least one branch diameter")
		}
		return &Tee{Base: base, DN: dns}, nil
	}

	// Scalar variants accept a one-element list, which is how most exports
	// write them.
	if len(dns) != 1 {
		return nil, fail("DN", fmt.Sprintf("%s requires a single diameter, got %d", kind, len(dns)))
	}
	dn := dns[0]

	switch kind {
	case KindLine:
		return &Line{Base: base, DN: dn}, nil
	case KindElbow:
		return &Elbow{Base: base, DN: dn}, nil
	}

	if r.Type == nil {
		return nil, fail("type", "sprinkler requires a type")
	}
	st, ok := ParseSprinklerType(*r.Type)
	if !ok {
		return nil, fail("type", fmt.Sprintf("unknown sprinkler type %q", *r.Type))
	}
	switch st {
	case SprinklerEnd:
		if r.Arm == nil {
			return nil, fail("arm", "end sprinkler requires an arm length")
		}
		if math.IsNaN(*r.Arm) || *r.Arm < 0 {
			return nil, fail("arm", "arm length must be a non-negative number")
		}
		return &Sprinkler{Base: base, DN: dn, Mount: EndMount{Arm: *r.Arm}}, nil
	default:
		// Center mounts ignore arm. Some exports write it on every sprinkler.
		return &Sprinkler{Base: base, DN: dn, Mount: CenterMount{}}, nil
	}
}

func parseID(raw json.RawMessage) (ID, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	var v int64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, false
	}
	return ID(v), true
}

// parseDiameters accepts a number or an array of numbers.
func parseDiameters(raw json.RawMessage) (dns []Diameter, scalar bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, errors.New("field is required")
	}

	if trimmed[0] == '[' {
		var list []float64
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, false, fmt.Errorf("expected a list of numbers: %w", err)
		}
		dns = make([]Diameter, len(list))
		for i, v := range list {
			dns[i] = Diameter(v)
		}
		return dns, false, nil
	}

	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, false, fmt.Errorf("expected a number or list of numbers: %w", err)
	}
	return []Diameter{Diameter(v)}, true, nil
}
