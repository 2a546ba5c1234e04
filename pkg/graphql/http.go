package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
)

// Response is the GraphQL HTTP response body.
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Error is one GraphQL error.
type Error struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Handler serves GraphQL over HTTP POST.
type Handler struct {
	schema   graphql.Schema
	maxDepth int
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) HandlerOption {
	return func(h *Handler) { h.maxDepth = depth }
}

// NewHandler creates a GraphQL HTTP handler for schema.
func NewHandler(schema graphql.Schema, opts ...HandlerOption) *Handler {
	h := &Handler{schema: schema, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP handles HTTP requests for GraphQL queries. Query errors are
// reported in the body with status 200; malformed requests get 400.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, Response{Errors: []Error{{Message: "method not allowed"}}})
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Errors: []Error{{Message: "invalid request body"}}})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, Response{Errors: []Error{{Message: "missing query"}}})
		return
	}

	result := Execute(r.Context(), h.schema, req, h.maxDepth)

	resp := Response{Data: result.Data}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, Error{Message: e.Message, Path: e.Path})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
