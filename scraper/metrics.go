package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ProductsTotal   prometheus.Counter
	DegradedTotal   prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	FallbacksTotal  prometheus.Counter
	CacheHitsTotal  prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP fetch attempts issued, by backend.",
		},
		[]string{"backend"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "Fetch latency per attempt.",
			Buckets: prometheus.DefBuckets,
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_total",
			Help: "Total number of fully extracted product records.",
		},
	)
	degraded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_degraded_records_total",
			Help: "Total number of records emitted with summary data only.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of fetch retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	fallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_backend_fallbacks_total",
			Help: "Total number of summary fetches retried on the browser backend.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_hits_total",
			Help: "Total number of searches served from the result cache.",
		},
	)

	registry.MustRegister(requests, requestDuration, products, degraded, retries, errorsTotal, fallbacks, cacheHits)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ProductsTotal:   products,
		DegradedTotal:   degraded,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		FallbacksTotal:  fallbacks,
		CacheHitsTotal:  cacheHits,
	}
}

// IncRequest increments the fetch attempt counter for a backend.
func (m *Metrics) IncRequest(backend string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(backend).Inc()
}

// ObserveDuration records one fetch attempt's duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncProducts increments the extracted record counter.
func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsTotal.Inc()
}

// IncDegraded increments the degraded record counter.
func (m *Metrics) IncDegraded() {
	if m == nil {
		return
	}
	m.DegradedTotal.Inc()
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the error counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncFallback increments the browser fallback counter.
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.FallbacksTotal.Inc()
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}
