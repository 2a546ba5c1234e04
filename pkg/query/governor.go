package query

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
)

// Pagination bounds. Requests outside [MinLimit, MaxLimit] are clamped.
const (
	MinLimit     = 1
	MaxLimit     = 50
	DefaultLimit = 20
)

// LimitConfig defines limits for list results
type LimitConfig struct {
	DefaultLimit int `yaml:"default_limit"` // used when no limit is given
	MaxLimit     int `yaml:"max_limit"`     // hard ceiling, at most MaxLimit
}

// DefaultLimitConfig returns the standard 20/50 configuration.
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit}
}

// Validate checks 1 <= DefaultLimit <= MaxLimit <= 50.
func (c LimitConfig) Validate() error {
	if c.MaxLimit < MinLimit || c.MaxLimit > MaxLimit {
		return fmt.Errorf("max limit must be within [%d, %d], got %d", MinLimit, MaxLimit, c.MaxLimit)
	}
	if c.DefaultLimit < MinLimit {
		return fmt.Errorf("default limit must be at least %d, got %d", MinLimit, c.DefaultLimit)
	}
	if c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("default limit (%d) cannot exceed max limit (%d)", c.DefaultLimit, c.MaxLimit)
	}
	return nil
}

// Governor bounds every list result.
type Governor struct {
	cfg LimitConfig
}

// NewGovernor validates cfg and returns a governor.
func NewGovernor(cfg LimitConfig) (*Governor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Governor{cfg: cfg}, nil
}

// DefaultGovernor returns a governor with DefaultLimitConfig.
func DefaultGovernor() *Governor {
	return &Governor{cfg: DefaultLimitConfig()}
}

// Config returns the governor's limits.
func (g *Governor) Config() LimitConfig {
	return g.cfg
}

// Limit resolves a requested limit. Nil selects the default; anything else
// is clamped silently.
func (g *Governor) Limit(requested *int) int {
	if requested == nil {
		return g.cfg.DefaultLimit
	}
	return min(max(*requested, MinLimit), g.cfg.MaxLimit)
}

// Offset resolves a requested offset; negative values become zero.
func (g *Governor) Offset(requested *int) int {
	if requested == nil || *requested < 0 {
		return 0
	}
	return *requested
}

// Page is one bounded slice of a result set. TotalMatches is always the size
// of the full set, so truncation is visible to the caller.
type Page[T any] struct {
	Items        []T  `json:"objects"`
	TotalMatches int  `json:"total_matches"`
	Returned     int  `json:"returned"`
	Limit        int  `json:"limit"`
	Offset       int  `json:"offset"`
	HasMore      bool `json:"has_more"`
}

// Truncated reports whether matches exist beyond the returned slice.
func (p Page[T]) Truncated() bool {
	return p.HasMore
}

// Paginate slices items under g's limits and projects the kept entries.
func Paginate[T any](g *Governor, items []shapes.Shape, limit, offset *int, project func(shapes.Shape) T) Page[T] {
	lim := g.Limit(limit)
	off := g.Offset(offset)
	total := len(items)

	start := min(off, total)
	end := min(start+lim, total)

	out := make([]T, 0, end-start)
	for _, s := range items[start:end] {
		out = append(out, project(s))
	}

	return Page[T]{
		Items:        out,
		TotalMatches: total,
		Returned:     len(out),
		Limit:        lim,
		Offset:       off,
		HasMore:      end < total,
	}
}

// CompactPage is the default governed listing.
func (g *Governor) CompactPage(items []shapes.Shape, limit, offset *int) Page[Compact] {
	return Paginate(g, items, limit, offset, CompactOf)
}

// DetailPage lists full records, still under the same limits.
func (g *Governor) DetailPage(items []shapes.Shape, limit, offset *int) Page[Detail] {
	return Paginate(g, items, limit, offset, DetailOf)
}

// DN renders as a bare number for scalar variants and as a list for Tee.
type DN struct {
	Values   []shapes.Diameter
	Sequence bool
}

// DNOf returns the DN of a shape in its variant's form.
func DNOf(s shapes.Shape) DN {
	_, isTee := s.(*shapes.Tee)
	return DN{Values: s.Diameters(), Sequence: isTee}
}

func (d DN) MarshalJSON() ([]byte, error) {
	if d.Sequence {
		if d.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(d.Values)
	}
	if len(d.Values) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(d.Values[0])
}

// Compact is the field-elided projection of a shape.
type Compact struct {
	ID        shapes.ID `json:"id"`
	ShapeName string    `json:"shape_name"`
	DN        DN        `json:"DN"`
	Type      string    `json:"type,omitempty"`
	Arm       *float64  `json:"arm,omitempty"`
}

// CompactOf projects s down to id, shape_name, DN and, for sprinklers,
// type and arm.
func CompactOf(s shapes.Shape) Compact {
	c := Compact{
		ID:        s.Common().ID,
		ShapeName: string(s.Kind()),
		DN:        DNOf(s),
	}
	if sp, ok := s.(*shapes.Sprinkler); ok {
		c.Type = string(sp.Type())
		if arm, ok := sp.Arm(); ok {
			c.Arm = &arm
		}
	}
	return c
}

// Detail is the full projection including opaque geometry and connectors.
type Detail struct {
	Compact
	PipeID             shapes.PipeID     `json:"pipe_id"`
	Vertices           []json.RawMessage `json:"vertices"`
	Connectors         []shapes.ID       `json:"connectors"`
	UnparsedConnectors []json.RawMessage `json:"unparsed_connectors,omitempty"`
	VerticesCount      int               `json:"vertices_count"`
	ConnectorsCount    int               `json:"connectors_count"`
}

// DetailOf projects every field of s.
func DetailOf(s shapes.Shape) Detail {
	base := s.Common()
	d := Detail{
		Compact:            CompactOf(s),
		PipeID:             base.PipeID,
		Vertices:           base.Vertices,
		Connectors:         base.Connectors,
		UnparsedConnectors: base.BadConnectors,
		VerticesCount:      len(base.Vertices),
		ConnectorsCount:    base.DeclaredConnectors(),
	}
	if d.Vertices == nil {
		d.Vertices = []json.RawMessage{}
	}
	if d.Connectors == nil {
		d.Connectors = []shapes.ID{}
	}
	return d
}
