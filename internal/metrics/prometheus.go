// Package metrics provides Prometheus metrics for the bridge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kicadbridge_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kicadbridge_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Import metrics
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kicadbridge_imports_total",
			Help: "Total number of metadata imports by outcome",
		},
		[]string{"format", "status"},
	)

	ImportComponents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kicadbridge_import_components_total",
			Help: "Total components handled by imports",
		},
		[]string{"outcome"},
	)

	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kicadbridge_import_duration_seconds",
			Help:    "End-to-end duration of metadata imports",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"format"},
	)

	ActiveImports = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kicadbridge_imports_active",
			Help: "Imports currently running",
		},
	)
)

// Recorder feeds the package collectors. It satisfies the import
// metrics hook in core, keeping promauto out of the business logic.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// ImportStarted marks one import as in flight.
func (r *Recorder) ImportStarted() {
	ActiveImports.Inc()
}

// ImportFinished records one completed import run.
func (r *Recorder) ImportFinished(format, status string, duration time.Duration) {
	ActiveImports.Dec()
	ImportsTotal.WithLabelValues(format, status).Inc()
	ImportDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// ComponentsProcessed adds to the per-outcome component counter.
func (r *Recorder) ComponentsProcessed(outcome string, count int) {
	if count <= 0 {
		return
	}
	ImportComponents.WithLabelValues(outcome).Add(float64(count))
}

// RecordRequest records one served HTTP request. Route is the chi
// pattern, not the raw path, to keep cardinality bounded.
func (r *Recorder) RecordRequest(method, route, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
