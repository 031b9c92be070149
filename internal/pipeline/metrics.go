package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for pipeline runs. All metrics are labeled
// by pipeline name so concurrent ingests stay distinguishable.
var (
	rowsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratum",
		Subsystem: "pipeline",
		Name:      "rows_read_total",
		Help:      "Raw rows pulled from the source, including structure rows",
	}, []string{"pipeline"})

	rowsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratum",
		Subsystem: "pipeline",
		Name:      "rows_emitted_total",
		Help:      "Data rows emitted past boundary detection",
	}, []string{"pipeline"})

	rowsCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratum",
		Subsystem: "pipeline",
		Name:      "rows_cast_total",
		Help:      "Rows converted to typed values and written out",
	}, []string{"pipeline"})

	castErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratum",
		Subsystem: "pipeline",
		Name:      "cast_errors_total",
		Help:      "Cell conversion failures accumulated during the typed pass",
	}, []string{"pipeline"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stratum",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per pipeline stage",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"pipeline", "stage"})

	partitionBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratum",
		Subsystem: "pipeline",
		Name:      "partition_bytes_total",
		Help:      "Compressed bytes written to partition files",
	}, []string{"pipeline"})
)

// observeStage records a stage duration sample.
func observeStage(pipeline, stage string, start time.Time) {
	stageDuration.WithLabelValues(pipeline, stage).Observe(time.Since(start).Seconds())
}
