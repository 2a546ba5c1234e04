package graphql

import (
	"context"
	"testing"
)

func TestValidateQueryDepth(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		maxDepth int
		wantErr  bool
	}{
		{"flat", `{ statistics { totalObjects } }`, 2, false},
		{"nested within limit", `{ connections(objectId: 1) { resolved { id } } }`, 3, false},
		{"nested over limit", `{ connections(objectId: 1) { resolved { id } } }`, 2, true},
		{"introspection ignored", `{ __schema { types { name } } statistics { totalObjects } }`, 2, false},
		{"fragment expanded", `
			query { connections(objectId: 1) { ...R } }
			fragment R on ConnectionReport { resolved { id } }`, 2, true},
		{"inline fragment", `{ statistics { ... on Statistics { sprinklers { total } } } }`, 3, false},
		{"parse error", `{ statistics {`, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQueryDepth(tt.query, tt.maxDepth)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQueryDepth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExecute_RejectsDeepQuery(t *testing.T) {
	schema := newSchema(t)
	res := Execute(context.Background(), schema, Request{Query: `{ connections(objectId: 20) { resolved { id } } }`}, 2)
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(res.Errors))
	}
	if res.Data != nil {
		t.Errorf("data = %v, want nil", res.Data)
	}
}
