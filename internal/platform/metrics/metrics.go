package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ScansProcessed  prometheus.Counter
	ScanDuration    prometheus.Histogram
	PagesRendered   prometheus.Counter
	Detections      *prometheus.CounterVec
	RecordsSaved    prometheus.Counter
	SaveFailures    prometheus.Counter
	RecordsReaped   prometheus.Counter
	ReaperSweeps    prometheus.Counter
	DegradedScans   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ScansProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docscan_scans_processed_total",
			Help: "Total number of documents processed by the scan pipeline",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docscan_scan_duration_seconds",
			Help:    "Wall-clock duration of full document scans",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		PagesRendered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docscan_pages_rendered_total",
			Help: "Total number of PDF pages rendered to images",
		}),
		Detections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_detections_total",
			Help: "Total number of region detections by category",
		}, []string{"category"}),
		RecordsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docscan_history_records_saved_total",
			Help: "Total number of scan records persisted",
		}),
		SaveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docscan_history_save_failures_total",
			Help: "Total number of best-effort history saves that failed",
		}),
		RecordsReaped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docscan_history_records_reaped_total",
			Help: "Total number of expired scan records removed by the reaper",
		}),
		ReaperSweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docscan_reaper_sweeps_total",
			Help: "Total number of retention reaper sweeps",
		}),
		DegradedScans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docscan_degraded_scans_total",
			Help: "Total number of scans processed without detection capability",
		}),
	}
}
