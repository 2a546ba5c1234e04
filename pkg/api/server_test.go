package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pipenet/pkg/api/middleware"
	"github.com/dd0wney/cluso-pipenet/pkg/auth"
	"github.com/dd0wney/cluso-pipenet/pkg/metrics"
	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes/shapetest"
	"github.com/dd0wney/cluso-pipenet/pkg/tools"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T, records ...json.RawMessage) *pipenet.Service {
	t.Helper()
	if records == nil {
		records = shapetest.Network()
	}
	svc, err := pipenet.FromRecords(records)
	require.NoError(t, err)
	return svc
}

func newTestServer(t *testing.T, cfg Config) (*Server, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	s := NewServer(cfg, nil, reg)
	t.Cleanup(s.Close)
	require.NoError(t, s.Load(newService(t), Dataset{Origin: "memory", Digest: "abc"}))
	return s, reg
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestListTools(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ToolsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.Count)
	assert.Len(t, resp.Tools, 10)
}

func TestDescribeTool(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	rr := do(t, h, http.MethodGet, "/tools/"+tools.ToolAnalyzeConnections, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var def tools.ToolDefinition
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &def))
	assert.True(t, def.Parameters["object_id"].Required)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/tools/nope", "").Code)
}

func TestCallTool(t *testing.T) {
	s, reg := newTestServer(t, Config{})
	h := s.Handler()

	tests := []struct {
		name        string
		tool        string
		body        string
		wantStatus  int
		wantSuccess bool
		wantKind    string
		check       func(t *testing.T, output map[string]any)
	}{
		{
			name: "no body", tool: tools.ToolGetStatistics, body: "",
			wantStatus: http.StatusOK, wantSuccess: true,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, float64(9), out["total_objects"])
			},
		},
		{
			name: "filters", tool: tools.ToolFindObjects, body: `{"shape_name":"Line","limit":2}`,
			wantStatus: http.StatusOK, wantSuccess: true,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, float64(3), out["total_matches"])
				assert.Equal(t, float64(2), out["returned"])
				assert.Equal(t, true, out["has_more"])
			},
		},
		{
			name: "unrecognised filter value matches nothing", tool: tools.ToolFindObjects, body: `{"shape_name":"Valve"}`,
			wantStatus: http.StatusOK, wantSuccess: true,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, float64(0), out["total_matches"])
			},
		},
		{
			name: "unknown argument", tool: tools.ToolFindObjects, body: `{"colour":"red"}`,
			wantStatus: http.StatusOK, wantKind: string(tools.ErrorKindInvalidArguments),
		},
		{
			name: "not found", tool: tools.ToolAnalyzeConnections, body: `{"object_id":4040}`,
			wantStatus: http.StatusOK, wantKind: string(tools.ErrorKindNotFound),
		},
		{
			name: "unknown tool", tool: "drop_tables", body: `{}`,
			wantStatus: http.StatusNotFound, wantKind: string(tools.ErrorKindUnknownTool),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/tools/"+tt.tool, tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			res := decodeResult(t, rr)
			assert.Equal(t, tt.wantSuccess, res["success"])
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, res["error_kind"])
			}
			if tt.check != nil {
				tt.check(t, res["output"].(map[string]any))
			}
		})
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(reg.ToolCallsTotal.WithLabelValues(tools.ToolAnalyzeConnections, "not_found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.ToolTruncationsTotal.WithLabelValues(tools.ToolFindObjects)))
}

func TestCallTool_RejectsNonObjectBody(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	for _, body := range []string{`[1,2]`, `"x"`, `{"a":`} {
		rr := do(t, s.Handler(), http.MethodPost, "/tools/"+tools.ToolFindObjects, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestCallTool_BodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t, Config{MaxBodyBytes: 16})
	rr := do(t, s.Handler(), http.MethodPost, "/tools/"+tools.ToolFindObjects, `{"shape_name":"Sprinkler"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestGraphQL(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodPost, "/graphql", `{"query":"{ statistics { totalObjects } }"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	out := decodeResult(t, rr)
	assert.Equal(t, float64(9), out["data"].(map[string]any)["statistics"].(map[string]any)["totalObjects"])
}

func TestNoDataset(t *testing.T) {
	s := NewServer(Config{}, nil, nil)
	defer s.Close()
	h := s.Handler()

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/tools", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/tools/get_statistics", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/health/ready", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", "").Code)
	assert.Nil(t, s.Service())
}

func TestHealthEmptyDataset(t *testing.T) {
	s := NewServer(Config{}, nil, nil)
	defer s.Close()
	svc, err := pipenet.FromRecords([]json.RawMessage{})
	require.NoError(t, err)
	require.NoError(t, s.Load(svc, Dataset{}))
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/ready", "").Code)

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "degraded", decodeResult(t, rr)["status"])
}

func TestReloadSwapsDataset(t *testing.T) {
	s, reg := newTestServer(t, Config{})
	h := s.Handler()

	require.NoError(t, s.Load(newService(t, shapetest.Line(1, 7, 50), shapetest.Line(2, 7, 50)), Dataset{Origin: "second"}))

	rr := do(t, h, http.MethodPost, "/tools/"+tools.ToolGetStatistics, "")
	out := decodeResult(t, rr)["output"].(map[string]any)
	assert.Equal(t, float64(2), out["total_objects"])
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.DatasetShapes))
	assert.Equal(t, float64(0), testutil.ToFloat64(reg.DatasetShapesByKind.WithLabelValues("Sprinkler")))

	info := decodeResult(t, do(t, h, http.MethodGet, "/info", ""))
	assert.Equal(t, "second", info["dataset"].(map[string]any)["origin"])

	assert.Error(t, s.Load(nil, Dataset{}))
}

func TestConcurrentCallsDuringReload(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rr := do(t, h, http.MethodPost, "/tools/"+tools.ToolCountObjects, `{"shape_name":"Line"}`)
				if rr.Code != http.StatusOK {
					t.Errorf("status = %d", rr.Code)
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Load(newService(t), Dataset{}))
	}
	wg.Wait()
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	h := s.Handler()

	do(t, h, http.MethodGet, "/tools", "")
	rr := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `pipenet_http_requests_total{method="GET",path="GET /tools",status="200"} 1`)
	assert.Contains(t, body, "pipenet_dataset_shapes 9")
}

func TestAuth(t *testing.T) {
	jwt, err := auth.NewJWTManager(testSecret, "", time.Hour)
	require.NoError(t, err)
	s, reg := newTestServer(t, Config{Validator: jwt})
	h := s.Handler()

	token, err := jwt.GenerateToken("agent", 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/tools", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/tools", "", "Authorization", "Bearer nope").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/tools", "", "Authorization", "Bearer "+token).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.AuthFailuresTotal))
}

func TestRateLimit(t *testing.T) {
	s, reg := newTestServer(t, Config{RateLimit: &middleware.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2}})
	h := s.Handler()

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodGet, "/tools", "").Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.RateLimitedTotal))
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodGet, "/tools", "", middleware.RequestIDHeader, "trace-1")
	assert.Equal(t, "trace-1", rr.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
