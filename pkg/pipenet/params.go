package pipenet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// PageArg is a limit or offset argument. Any JSON number decodes: fractions
// truncate toward zero and values beyond the int range saturate. The response
// governor clamps the result.
type PageArg int

func (a *PageArg) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pagination argument must be a number, got %s", bytes.TrimSpace(data))
	}
	if n == "" {
		return nil
	}

	// ParseInt saturates on ErrRange.
	i, err := strconv.ParseInt(n.String(), 10, 0)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		*a = PageArg(i)
		return nil
	}

	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("pagination argument %q: %w", n, err)
	}
	switch {
	case f >= math.MaxInt:
		*a = math.MaxInt
	case f <= math.MinInt:
		*a = math.MinInt
	default:
		*a = PageArg(int(f))
	}
	return nil
}

// FindParams are the arguments of find_objects.
type FindParams struct {
	ShapeName     *string  `json:"shape_name,omitempty"`
	PipeID        *int64   `json:"pipe_id,omitempty"`
	DN            *float64 `json:"DN,omitempty"`
	SprinklerType *string  `json:"sprinkler_type,omitempty"`
	Limit         *PageArg `json:"limit,omitempty"`
	Offset        *PageArg `json:"offset,omitempty"`
}

// CountParams are the arguments of count_objects.
type CountParams struct {
	ShapeName     *string  `json:"shape_name,omitempty"`
	PipeID        *int64   `json:"pipe_id,omitempty"`
	DN            *float64 `json:"DN,omitempty"`
	SprinklerType *string  `json:"sprinkler_type,omitempty"`
}

// OneOrMany accepts either a single JSON value or a list of them.
type OneOrMany[T any] []T

func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*o = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*o = list
		return nil
	}
	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*o = OneOrMany[T]{one}
	return nil
}

// Criteria are the arguments of search_by_criteria. Each key accepts a value
// or a list of alternatives; keys combine with AND.
type Criteria struct {
	ShapeName OneOrMany[string]  `json:"shape_name,omitempty"`
	PipeID    OneOrMany[int64]   `json:"pipe_id,omitempty"`
	DN        OneOrMany[float64] `json:"DN,omitempty"`
	Type      OneOrMany[string]  `json:"type,omitempty"`
	Limit     *PageArg           `json:"limit,omitempty"`
	Offset    *PageArg           `json:"offset,omitempty"`
}

// LocationParams are the arguments of get_object_locations.
type LocationParams struct {
	ShapeName *string  `json:"shape_name,omitempty"`
	PipeID    *int64   `json:"pipe_id,omitempty"`
	Limit     *PageArg `json:"limit,omitempty"`
	Offset    *PageArg `json:"offset,omitempty"`
}

// GroupParams are the arguments of analyze_pipe_group.
type GroupParams struct {
	PipeID *int64   `json:"pipe_id" validate:"required"`
	Limit  *PageArg `json:"limit,omitempty"`
	Offset *PageArg `json:"offset,omitempty"`
}

// SprinklerParams are the arguments of analyze_sprinklers.
type SprinklerParams struct {
	PipeID        *int64   `json:"pipe_id,omitempty"`
	SprinklerType *string  `json:"sprinkler_type,omitempty"`
	Limit         *PageArg `json:"limit,omitempty"`
	Offset        *PageArg `json:"offset,omitempty"`
}

// ConnectionParams are the arguments of analyze_connections.
type ConnectionParams struct {
	ObjectID *int64 `json:"object_id" validate:"required"`
}
