// Package tools exposes pipenet operations as named agent tools with
// declared parameter schemas.
//
// Arguments arrive as a JSON object. Keys outside a tool's declared
// parameters are rejected before the operation runs, and every call produces
// a Result: failures are reported in it, never raised.
package tools

import (
	"context"
	"encoding/json"
	"time"
)

// ParamType represents the JSON type of a tool parameter.
type ParamType string

const (
	ParamTypeString   ParamType = "string"
	ParamTypeInt      ParamType = "integer"
	ParamTypeFloat    ParamType = "number"
	ParamTypeArray    ParamType = "array"
	ParamTypeFlexible ParamType = "value_or_array"
)

// ParamDef defines a single parameter for a tool.
type ParamDef struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
}

// ToolDefinition describes a tool's interface for the caller.
type ToolDefinition struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Parameters  map[string]ParamDef `json:"parameters"`
	// Paginated tools accept limit and offset and report total_matches.
	Paginated bool `json:"paginated"`
}

// RequiredParams returns the required parameter names.
func (d *ToolDefinition) RequiredParams() []string {
	var required []string
	for name, param := range d.Parameters {
		if param.Required {
			required = append(required, name)
		}
	}
	return required
}

// ErrorKind classifies a failed Result.
type ErrorKind string

const (
	ErrorKindInvalidArguments ErrorKind = "invalid_arguments"
	ErrorKindNotFound         ErrorKind = "not_found"
	ErrorKindUnknownTool      ErrorKind = "unknown_tool"
	ErrorKindCanceled         ErrorKind = "canceled"
	ErrorKindInternal         ErrorKind = "internal"
)

// Result contains the outcome of a tool call.
type Result struct {
	Tool      string        `json:"tool"`
	Success   bool          `json:"success"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Truncated bool          `json:"truncated"`
	Duration  time.Duration `json:"duration_ns"`
}

// Handler runs one tool against raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// truncatable is implemented by governed list outputs.
type truncatable interface {
	Truncated() bool
}
