package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the registry.
const Namespace = "pipenet"

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec
	RateLimitedTotal      prometheus.Counter
	AuthFailuresTotal     prometheus.Counter

	// Tool Metrics
	ToolCallsTotal       *prometheus.CounterVec
	ToolCallDuration     *prometheus.HistogramVec
	ToolTruncationsTotal *prometheus.CounterVec

	// Dataset Metrics
	DatasetShapes        prometheus.Gauge
	DatasetGroups        prometheus.Gauge
	DatasetSkipped       prometheus.Gauge
	DatasetShapesByKind  *prometheus.GaugeVec
	DatasetLoadDuration  prometheus.Gauge
	DatasetLoadTimestamp prometheus.Gauge

	// System Metrics
	UptimeSeconds     prometheus.Gauge
	Goroutines        prometheus.Gauge
	HeapInuseBytes    prometheus.Gauge
	HeapObjects       prometheus.Gauge
	GCCycles          prometheus.Gauge
	DatasetAgeSeconds prometheus.Gauge
	BuildInfo         *prometheus.GaugeVec

	registry  *prometheus.Registry
	startTime time.Time
	loadedAt  time.Time
	mu        sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.initHTTPMetrics()
	r.initToolMetrics()
	r.initDatasetMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
