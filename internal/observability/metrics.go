package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a merge run.
type Metrics struct {
	ObservationsRead  prometheus.Counter
	RowsSkipped       prometheus.Counter
	RecordsWritten    prometheus.Counter
	ModelSampleErrors prometheus.Counter
	MergeRunning      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Model source metrics.
	ModelFileReads *prometheus.CounterVec // labels: collection={chm,met,pbl}
	ModelCache     *prometheus.CounterVec // labels: result={hit,miss}
	SampleDuration prometheus.Histogram
}

// NewMetrics creates and registers all merge metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pandora_merge",
			Name:      "observations_read_total",
			Help:      "Total observation rows parsed from the input file.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pandora_merge",
			Name:      "rows_skipped_total",
			Help:      "Total input rows dropped, either malformed during parsing or failed during transform.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pandora_merge",
			Name:      "records_written_total",
			Help:      "Total merged records written to the output sinks.",
		}),
		ModelSampleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pandora_merge",
			Name:      "model_sample_errors_total",
			Help:      "Observations for which no GEOS-CF sample could be retrieved.",
		}),
		MergeRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pandora_merge",
			Name:      "merge_running",
			Help:      "1 while the merge pass is active, 0 once finished.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pandora_merge",
			Name:      "batch_size",
			Help:      "Number of merged records per output batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pandora_merge",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete transform-and-load batch cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ModelFileReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pandora_merge",
			Name:      "model_file_reads_total",
			Help:      "GEOS-CF NetCDF files opened, by collection.",
		}, []string{"collection"}),
		ModelCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pandora_merge",
			Name:      "model_cache_total",
			Help:      "Model profile cache lookups by result.",
		}, []string{"result"}),
		SampleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pandora_merge",
			Name:      "sample_duration_seconds",
			Help:      "GEOS-CF sample retrieval duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}),
	}

	prometheus.MustRegister(
		m.ObservationsRead,
		m.RowsSkipped,
		m.RecordsWritten,
		m.ModelSampleErrors,
		m.MergeRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ModelFileReads,
		m.ModelCache,
		m.SampleDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so multiple
// tests can construct their own set without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsRead:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "pandora_merge", Name: "observations_read_total"}),
		RowsSkipped:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "pandora_merge", Name: "rows_skipped_total"}),
		RecordsWritten:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "pandora_merge", Name: "records_written_total"}),
		ModelSampleErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "pandora_merge", Name: "model_sample_errors_total"}),
		MergeRunning:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "pandora_merge", Name: "merge_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "pandora_merge", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "pandora_merge", Name: "batch_processing_duration_seconds"}),
		ModelFileReads:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "pandora_merge", Name: "model_file_reads_total"}, []string{"collection"}),
		ModelCache:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "pandora_merge", Name: "model_cache_total"}, []string{"result"}),
		SampleDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "pandora_merge", Name: "sample_duration_seconds"}),
	}
}
