package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process gauges are refreshed on scrape by UpdateSystemMetrics. The index
// lives entirely on the heap, so heap figures track dataset footprint.
func (r *Registry) initSystemMetrics() {
	factory := promauto.With(r.registry)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help})
	}

	r.UptimeSeconds = gauge("uptime_seconds", "Seconds since the process started")
	r.Goroutines = gauge("goroutines", "Goroutines currently running")
	r.HeapInuseBytes = gauge("heap_inuse_bytes", "Heap bytes in use, dominated by the loaded shape index")
	r.HeapObjects = gauge("heap_objects", "Allocated heap objects")
	r.GCCycles = gauge("gc_cycles", "Completed garbage collection cycles")
	r.DatasetAgeSeconds = gauge("dataset_age_seconds", "Seconds since the serving dataset was loaded")

	r.BuildInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "build_info",
			Help:      "Always 1, labelled with the server version and Go runtime",
		},
		[]string{"version", "go_version"},
	)
}
