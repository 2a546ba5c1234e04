package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/dd0wney/cluso-pipenet/pkg/validation"
)

type entry struct {
	def     ToolDefinition
	handler Handler
}

// Registry maps tool names to definitions and handlers.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a tool. Registering a name twice is an error.
func (r *Registry) Register(def ToolDefinition, h Handler) error {
	if def.Name == "" || h == nil {
		return errors.New("tool needs a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = entry{def: def, handler: h}
	return nil
}

// Lookup returns the definition and handler of a tool.
func (r *Registry) Lookup(name string) (ToolDefinition, Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.def, e.handler, ok
}

// Definitions lists every tool sorted by name.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, e := range r.tools {
		defs = append(defs, e.def)
	}
	slices.SortFunc(defs, func(a, b ToolDefinition) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return defs
}

// Names lists every registered tool name, sorted.
func (r *Registry) Names() []string {
	defs := r.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// DecodeArgs strictly decodes a JSON object into P. Unknown keys, trailing
// data and type mismatches are rejected, then struct tags are validated.
// Empty or null input decodes to the zero P.
func DecodeArgs[P any](args json.RawMessage) (P, error) {
	var p P
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if trimmed[0] != '{' {
		return p, invalidArgs("arguments must be a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, invalidArgs("%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return p, invalidArgs("unexpected data after arguments object")
	}
	if err := validation.Struct(&p); err != nil {
		return p, invalidArgs("%v", err)
	}
	return p, nil
}

// Bind adapts an operation taking typed parameters into a Handler.
func Bind[P any, R any](fn func(P) (R, error)) Handler {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		p, err := DecodeArgs[P](args)
		if err != nil {
			return nil, err
		}
		return fn(p)
	}
}

// BindPure adapts an infallible operation into a Handler.
func BindPure[P any, R any](fn func(P) R) Handler {
	return Bind(func(p P) (R, error) { return fn(p), nil })
}
