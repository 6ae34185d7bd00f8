package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/exam-seating-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the allocation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	allocationDuration prometheus.Histogram
	allocationTotal    prometheus.Counter
	seatedTotal        prometheus.Counter
	unplacedTotal      prometheus.Counter
	conflictsTotal     prometheus.Counter
	lastConflicts      prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	allocationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocation_duration_seconds",
		Help:    "Duration of seating plan generation",
		Buckets: prometheus.DefBuckets,
	})

	allocationTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocations_total",
		Help: "Total number of generated seating plans",
	})

	seatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_seated_students_total",
		Help: "Total students seated across all generated plans",
	})

	unplacedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_unplaced_students_total",
		Help: "Total students left unplaced across all generated plans",
	})

	conflictsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_conflicts_total",
		Help: "Total residual adjacency conflicts across all generated plans",
	})

	lastConflicts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allocation_last_conflicts",
		Help: "Residual conflicts in the most recently generated plan",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, allocationDuration, allocationTotal, seatedTotal, unplacedTotal, conflictsTotal, lastConflicts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		allocationDuration: allocationDuration,
		allocationTotal:    allocationTotal,
		seatedTotal:        seatedTotal,
		unplacedTotal:      unplacedTotal,
		conflictsTotal:     conflictsTotal,
		lastConflicts:      lastConflicts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveAllocation records the outcome of one allocation run.
func (m *MetricsService) ObserveAllocation(summary models.PlanSummary, duration time.Duration) {
	if m == nil {
		return
	}
	m.allocationDuration.Observe(duration.Seconds())
	m.allocationTotal.Inc()
	m.seatedTotal.Add(float64(summary.Seated))
	m.unplacedTotal.Add(float64(summary.Unplaced))
	m.conflictsTotal.Add(float64(summary.Conflicts))
	m.lastConflicts.Set(float64(summary.Conflicts))
}
