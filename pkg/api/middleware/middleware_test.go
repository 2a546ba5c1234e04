package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-pipenet/pkg/auth"
	"github.com/dd0wney/cluso-pipenet/pkg/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, rr.Body.String())
	}
	return body
}

// --- Body limit ---

func TestBodySizeLimit(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				WriteError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			t.Fatalf("unexpected read error: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name          string
		body          string
		contentLength int64
		want          int
	}{
		{"small body", "short", 5, http.StatusOK},
		{"declared too large", "x", 1000, http.StatusRequestEntityTooLarge},
		{"undeclared too large", strings.Repeat("x", 200), -1, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/tools/find_objects", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rr := httptest.NewRecorder()

			BodySizeLimit(100)(readAll).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

// --- Recovery ---

func TestPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

	handler := RequestID()(PanicRecovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tools", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	body := decodeError(t, rr)
	if body.Error != "internal server error" {
		t.Errorf("error = %q, want generic message", body.Error)
	}
	if body.RequestID == "" {
		t.Error("error body should carry the request id")
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("panic value leaked to the client")
	}
	_ = logger.Sync()
	if !strings.Contains(buf.String(), "boom") {
		t.Error("panic value not logged")
	}
}

func TestPanicRecovery_PassesThrough(t *testing.T) {
	rr := httptest.NewRecorder()
	PanicRecovery(logging.NopLogger{})(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
}

// --- Request ID ---

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		check  func(t *testing.T, id string)
	}{
		{"generated", "", func(t *testing.T, id string) {
			if len(id) != 36 {
				t.Errorf("generated id %q is not a UUID", id)
			}
		}},
		{"client provided", "abc-123", func(t *testing.T, id string) {
			if id != "abc-123" {
				t.Errorf("id = %q, want abc-123", id)
			}
		}},
		{"sanitized", "abc<script>123", func(t *testing.T, id string) {
			if id != "abcscript123" {
				t.Errorf("id = %q, want abcscript123", id)
			}
		}},
		{"truncated", strings.Repeat("a", 100), func(t *testing.T, id string) {
			if len(id) != maxRequestIDLength {
				t.Errorf("len(id) = %d, want %d", len(id), maxRequestIDLength)
			}
		}},
		{"only invalid characters", "<>!!", func(t *testing.T, id string) {
			if len(id) != 36 {
				t.Errorf("id %q should have been regenerated", id)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			tt.check(t, seen)
			if got := rr.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("response header %q != context id %q", got, seen)
			}
		})
	}
}

func TestGetRequestID_NoContext(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil)); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}

// --- Logging ---

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "INFO"},
		{"client error", http.StatusNotFound, "WARN"},
		{"server error", http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

			handler := RequestID()(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})))

			req := httptest.NewRequest(http.MethodPost, "/tools/get_statistics", nil)
			req.Header.Set(RequestIDHeader, "req-1")
			handler.ServeHTTP(httptest.NewRecorder(), req)
			_ = logger.Sync()

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["request_id"] != "req-1" {
				t.Errorf("request_id = %v, want req-1", entry["request_id"])
			}
			if entry["bytes"] != float64(4) {
				t.Errorf("bytes = %v, want 4", entry["bytes"])
			}
		})
	}
}

// --- CORS ---

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://agent.example.com"}

	tests := []struct {
		name       string
		cfg        *CORSConfig
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", cfg, http.MethodGet, "https://agent.example.com", false, http.StatusOK, "https://agent.example.com"},
		{"disallowed origin", cfg, http.MethodGet, "https://evil.example.com", false, http.StatusOK, ""},
		{"wildcard", &CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "https://any.example.com", false, http.StatusOK, "https://any.example.com"},
		{"preflight allowed", cfg, http.MethodOptions, "https://agent.example.com", true, http.StatusNoContent, "https://agent.example.com"},
		{"preflight disallowed", cfg, http.MethodOptions, "https://evil.example.com", true, http.StatusForbidden, ""},
		{"nil config denies", nil, http.MethodGet, "https://agent.example.com", false, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/tools", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

// --- Security headers ---

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

// --- Metrics ---

type mockMetricsRecorder struct {
	mu            sync.Mutex
	requests      []string
	responseSizes []int
	inFlight      int
}

func (m *mockMetricsRecorder) RecordHTTPRequest(method, path, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, method+" "+path+" "+status)
}

func (m *mockMetricsRecorder) RecordResponseSize(_, _ string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseSizes = append(m.responseSizes, size)
}

func (m *mockMetricsRecorder) IncHTTPRequestsInFlight() { m.inFlight++ }
func (m *mockMetricsRecorder) DecHTTPRequestsInFlight() { m.inFlight-- }

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	recorder := &mockMetricsRecorder{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Hello"))
	})
	handler := Metrics(recorder)(mux)

	for _, path := range []string{"/tools/find_objects", "/tools/get_statistics", "/nowhere"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	want := []string{
		"POST POST /tools/{name} 200",
		"POST POST /tools/{name} 200",
		"POST unmatched 404",
	}
	if len(recorder.requests) != len(want) {
		t.Fatalf("recorded %v, want %v", recorder.requests, want)
	}
	for i := range want {
		if recorder.requests[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, recorder.requests[i], want[i])
		}
	}
	if recorder.responseSizes[0] != 5 {
		t.Errorf("response size = %d, want 5", recorder.responseSizes[0])
	}
}

func TestMetrics_TracksInFlight(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	var during int

	handler := Metrics(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = recorder.inFlight
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if during != 1 {
		t.Errorf("in-flight during request = %d, want 1", during)
	}
	if recorder.inFlight != 0 {
		t.Errorf("in-flight after request = %d, want 0", recorder.inFlight)
	}
}

func TestMetrics_NilRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	Metrics(nil)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// --- Rate limiting ---

func newTestLimiter(rps float64, burst, maxClients int) (*RateLimiter, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerSecond: rps,
		BurstSize:         burst,
		ClientExpiration:  time.Minute,
		MaxClients:        maxClients,
	})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl, now := newTestLimiter(2, 3, 0)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was refused", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request beyond burst was allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}

	*now = now.Add(500 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("one token should refill after 1/rps seconds")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("only one token should have refilled")
	}
}

func TestRateLimiter_MaxClients(t *testing.T) {
	rl, _ := newTestLimiter(1, 1, 2)
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("b") {
		t.Fatal("first two clients should be admitted")
	}
	if rl.Allow("c") {
		t.Fatal("third client should be refused at the ceiling")
	}
	if rl.ActiveClients() != 2 {
		t.Errorf("ActiveClients() = %d, want 2", rl.ActiveClients())
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(1, 1, 0)
	defer rl.Stop()

	rl.Allow("idle")
	*now = now.Add(30 * time.Second)
	rl.Allow("recent")
	*now = now.Add(45 * time.Second)

	if removed := rl.cleanup(); removed != 1 {
		t.Errorf("cleanup() removed %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	tests := []struct {
		rps  float64
		want int
	}{
		{10, 1},
		{1, 1},
		{0.25, 4},
		{0, 1},
	}
	for _, tt := range tests {
		rl := &RateLimiter{config: &RateLimitConfig{RequestsPerSecond: tt.rps}}
		if got := rl.RetryAfter(); got != tt.want {
			t.Errorf("RetryAfter() at %v rps = %d, want %d", tt.rps, got, tt.want)
		}
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(1, 2, 0)
	defer rl.Stop()

	limited := 0
	handler := RateLimit(rl, ClientIPFunc(nil), func(r *http.Request, clientID string) {
		limited++
		if clientID != "192.0.2.1" {
			t.Errorf("clientID = %q, want 192.0.2.1", clientID)
		}
	})(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/tools", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			if rr.Header().Get("Retry-After") != "1" {
				t.Errorf("Retry-After = %q, want 1", rr.Header().Get("Retry-After"))
			}
			if decodeError(t, rr).Status != http.StatusTooManyRequests {
				t.Error("error body should echo the status")
			}
		}
	}

	want := []int{200, 200, 429}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}
	if limited != 1 {
		t.Errorf("onLimited called %d times, want 1", limited)
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	rr := httptest.NewRecorder()
	RateLimit(nil, ClientIPFunc(nil), nil)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// --- JWT auth ---

type stubValidator struct {
	claims *auth.Claims
	err    error
}

func (s stubValidator) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, s.err
	}
	return s.claims, nil
}

func (stubValidator) Name() string { return "stub" }

func TestJWTAuth(t *testing.T) {
	var failures []error
	cfg := AuthConfig{
		Validator:      stubValidator{claims: &auth.Claims{Subject: "agent-1"}, err: auth.ErrExpiredToken},
		PublicPrefixes: []string{"/health", "/metrics"},
		OnFailure:      func(_ *http.Request, err error) { failures = append(failures, err) },
	}

	var subject string
	handler := JWTAuth(cfg, logging.NopLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := auth.ClaimsFromContext(r.Context()); ok {
			subject = c.Subject
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		path        string
		header      string
		wantStatus  int
		wantSubject string
		wantMessage string
	}{
		{"public path", "/health/ready", "", http.StatusOK, "", ""},
		{"missing header", "/tools", "", http.StatusUnauthorized, "", "missing bearer token"},
		{"wrong scheme", "/tools", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, "", "missing bearer token"},
		{"rejected token", "/tools", "Bearer bad", http.StatusUnauthorized, "", "token has expired"},
		{"valid token", "/tools", "Bearer good", http.StatusOK, "agent-1", ""},
		{"scheme is case-insensitive", "/graphql", "bearer good", http.StatusOK, "agent-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			if tt.wantMessage != "" {
				if got := decodeError(t, rr).Error; got != tt.wantMessage {
					t.Errorf("error = %q, want %q", got, tt.wantMessage)
				}
				if rr.Header().Get("WWW-Authenticate") == "" {
					t.Error("WWW-Authenticate header missing")
				}
			}
		})
	}

	if len(failures) != 3 {
		t.Errorf("OnFailure called %d times, want 3", len(failures))
	}
}

func TestJWTAuth_Disabled(t *testing.T) {
	rr := httptest.NewRecorder()
	JWTAuth(AuthConfig{}, logging.NopLogger{})(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tools", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
