package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total number of HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_import_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smart_import_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ActiveRequests tracks currently active requests
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smart_import_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)

	// ImportRows counts rows by outcome: imported, invalid or duplicate.
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Rows processed by committed imports",
		},
		[]string{"entity", "outcome"},
	)

	// ImportDuplicates counts duplicate matches by reason.
	ImportDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_duplicates_total",
			Help: "Duplicate records found during duplicate checks",
		},
		[]string{"entity", "reason"},
	)

	// ImportMappingConfidence records per-field detection scores.
	ImportMappingConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "import_mapping_confidence",
			Help:    "Confidence of detected column mappings",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"entity"},
	)
)

// Row outcomes used as the outcome label of ImportRows.
const (
	OutcomeImported  = "imported"
	OutcomeInvalid   = "invalid"
	OutcomeDuplicate = "duplicate"
)

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// NewStatusRecorder wraps w with a default status of 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Metrics collects Prometheus metrics for every request passing through next.
// The route label is the matched ServeMux pattern so path parameters do not
// explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ActiveRequests.Inc()
		defer ActiveRequests.Dec()

		rec := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.Status)).Inc()
	})
}
