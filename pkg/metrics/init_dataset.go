package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDatasetMetrics() {
	r.DatasetShapes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_shapes",
			Help:      "Shapes held by the loaded index",
		},
	)

	r.DatasetGroups = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_pipe_groups",
			Help:      "Distinct pipe groups in the loaded index",
		},
	)

	r.DatasetSkipped = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_skipped_records",
			Help:      "Records skipped while building the index",
		},
	)

	r.DatasetShapesByKind = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_shapes_by_kind",
			Help:      "Shapes in the loaded index by shape name",
		},
		[]string{"shape_name"},
	)

	r.DatasetLoadDuration = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Time spent fetching and indexing the dataset",
		},
	)

	r.DatasetLoadTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_load_timestamp_seconds",
			Help:      "Unix time of the last successful dataset load",
		},
	)
}
