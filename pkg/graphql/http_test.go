package graphql

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	h := NewHandler(newSchema(t))

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantErrors bool
	}{
		{"query", http.MethodPost, `{"query":"{ statistics { totalObjects } }"}`, http.StatusOK, false},
		{"variables", http.MethodPost, `{"query":"query($id: Long!) { connections(objectId: $id) { consistent } }","variables":{"id":1}}`, http.StatusOK, false},
		{"query error", http.MethodPost, `{"query":"{ nope }"}`, http.StatusOK, true},
		{"invalid body", http.MethodPost, `{`, http.StatusBadRequest, true},
		{"missing query", http.MethodPost, `{}`, http.StatusBadRequest, true},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/graphql", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErrors, len(resp.Errors) > 0, "errors: %v", resp.Errors)
			if !tt.wantErrors {
				assert.NotNil(t, resp.Data)
			}
		})
	}
}

func TestHandler_MaxDepthOption(t *testing.T) {
	h := NewHandler(newSchema(t), WithMaxDepth(1))
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ statistics { totalObjects } }"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "depth")
}
