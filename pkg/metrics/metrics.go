package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetSnapshot summarises a freshly built index.
type DatasetSnapshot struct {
	Shapes       int
	Groups       int
	Skipped      int
	ByKind       map[string]int
	LoadDuration time.Duration
	LoadedAt     time.Time
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the number of bytes written for a response.
func (r *Registry) RecordResponseSize(method, path string, size int) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(float64(size))
}

// RecordToolCall counts a tool invocation and observes its latency.
func (r *Registry) RecordToolCall(tool, outcome string, d time.Duration) {
	r.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	r.ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordTruncation counts a result whose page was smaller than its match set.
func (r *Registry) RecordTruncation(tool string) {
	r.ToolTruncationsTotal.WithLabelValues(tool).Inc()
}

// RecordDataset publishes the dataset gauges. Kinds absent from ByKind
// are reset to zero when they were set by an earlier snapshot.
func (r *Registry) RecordDataset(s DatasetSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.DatasetShapes.Set(float64(s.Shapes))
	r.DatasetGroups.Set(float64(s.Groups))
	r.DatasetSkipped.Set(float64(s.Skipped))
	r.DatasetShapesByKind.Reset()
	for kind, n := range s.ByKind {
		r.DatasetShapesByKind.WithLabelValues(kind).Set(float64(n))
	}
	r.DatasetLoadDuration.Set(s.LoadDuration.Seconds())
	if !s.LoadedAt.IsZero() {
		r.DatasetLoadTimestamp.Set(float64(s.LoadedAt.Unix()))
		r.loadedAt = s.LoadedAt
	}
}

// UpdateSystemMetrics refreshes the process gauges and the dataset age.
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
	r.Goroutines.Set(float64(runtime.NumGoroutine()))
	r.HeapInuseBytes.Set(float64(m.HeapInuse))
	r.HeapObjects.Set(float64(m.HeapObjects))
	r.GCCycles.Set(float64(m.NumGC))

	r.mu.RLock()
	loadedAt := r.loadedAt
	r.mu.RUnlock()
	if !loadedAt.IsZero() {
		r.DatasetAgeSeconds.Set(time.Since(loadedAt).Seconds())
	}
}

// SetBuildInfo publishes the server version on the build_info series.
func (r *Registry) SetBuildInfo(version string) {
	r.BuildInfo.Reset()
	r.BuildInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// Handler serves the registry in the Prometheus exposition format,
// refreshing the system gauges on every scrape.
func (r *Registry) Handler() http.Handler {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.UpdateSystemMetrics()
		h.ServeHTTP(w, req)
	})
}

// IncHTTPRequestsInFlight marks a request as started.
func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }

// DecHTTPRequestsInFlight marks a request as finished.
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordRateLimited counts a request rejected by the rate limiter.
func (r *Registry) RecordRateLimited() { r.RateLimitedTotal.Inc() }

// RecordAuthFailure counts a request rejected for its bearer token.
func (r *Registry) RecordAuthFailure() { r.AuthFailuresTotal.Inc() }
