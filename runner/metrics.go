package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scrape loop.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesTotal      prometheus.Counter
	ItemsTotal      prometheus.Counter
	ReconcileTotal  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	RetriesTotal    prometheus.Counter
	ExtractDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propscout_pages_total",
		Help: "Total listing pages navigated.",
	})
	items := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propscout_items_total",
		Help: "Total items extracted and persisted.",
	})
	reconcile := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propscout_reconcile_total",
			Help: "Reconcile outcomes by classification.",
		},
		[]string{"outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propscout_errors_total",
			Help: "Per-item failures by error type.",
		},
		[]string{"error_type"},
	)
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propscout_retries_total",
		Help: "Navigation retry attempts scheduled.",
	})
	extractDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "propscout_extract_duration_seconds",
		Help:    "Latency of one item's extraction, gallery capture included.",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(pages, items, reconcile, errorsTotal, retries, extractDuration)

	return &Metrics{
		Registry:        registry,
		PagesTotal:      pages,
		ItemsTotal:      items,
		ReconcileTotal:  reconcile,
		ErrorsTotal:     errorsTotal,
		RetriesTotal:    retries,
		ExtractDuration: extractDuration,
	}
}

// IncPage increments the pages counter.
func (m *Metrics) IncPage() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

// IncItem increments the items counter.
func (m *Metrics) IncItem() {
	if m == nil {
		return
	}
	m.ItemsTotal.Inc()
}

// IncReconcile increments the reconcile counter for an outcome label.
func (m *Metrics) IncReconcile(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileTotal.WithLabelValues(outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveExtract records one item's extraction latency.
func (m *Metrics) ObserveExtract(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractDuration.Observe(d.Seconds())
}
