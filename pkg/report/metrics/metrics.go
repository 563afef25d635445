// Package metrics exposes run counters through a private prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry implements report.MetricsRecorder on top of prometheus collectors.
// prometheus collectors are safe for concurrent use.
type Registry struct {
	reg           *prometheus.Registry
	LinesAccepted prometheus.Counter
	LinesRejected *prometheus.CounterVec
	Files         *prometheus.CounterVec
	FileDuration  prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	accepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sales_report_lines_accepted_total",
		Help: "Order lines accepted into a file summary.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_report_lines_rejected_total",
		Help: "Order lines rejected, by reason.",
	}, []string{"reason"})
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_report_files_total",
		Help: "Order files processed, by final status.",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_report_file_duration_seconds",
		Help:    "Wall time spent aggregating one order file.",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(accepted, rejected, files, duration)
	return &Registry{
		reg:           r,
		LinesAccepted: accepted,
		LinesRejected: rejected,
		Files:         files,
		FileDuration:  duration,
	}
}

// LineAccepted implements report.MetricsRecorder.
func (r *Registry) LineAccepted() { r.LinesAccepted.Inc() }

// LineRejected implements report.MetricsRecorder.
func (r *Registry) LineRejected(reason string) { r.LinesRejected.WithLabelValues(reason).Inc() }

// FileCompleted implements report.MetricsRecorder.
func (r *Registry) FileCompleted(status string, d time.Duration) {
	r.Files.WithLabelValues(status).Inc()
	r.FileDuration.Observe(d.Seconds())
}

// Gatherer returns the underlying registry for export.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes every metric to path in the node-exporter textfile
// format. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
