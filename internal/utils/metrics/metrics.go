package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Quota metrics
	AdmissionsTotal *prometheus.CounterVec

	// Ledger metrics
	LedgerAppendsTotal *prometheus.CounterVec
	DBQueryDuration    *prometheus.HistogramVec

	// Extraction metrics
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec

	// Blob storage metrics
	BlobBytesTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWith(prometheus.DefaultRegisterer, namespace)
}

// NewWith creates a new Metrics instance registered on reg.
func NewWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "echoverse"
	}
	factory := promauto.With(reg)

	return &Metrics{
		AdmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quota",
				Name:      "admissions_total",
				Help:      "Total number of quota admission decisions",
			},
			[]string{"feature", "outcome"}, // outcome: admitted, admitted_premium, denied, rejected, unavailable
		),
		LedgerAppendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "ledger_appends_total",
				Help:      "Total number of usage events appended to the ledger",
			},
			[]string{"feature", "tier"}, // tier: free, premium
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extract",
				Name:      "extractions_total",
				Help:      "Total number of content extractions",
			},
			[]string{"feature", "status"}, // status: ok, unsupported, error
		),
		ExtractionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "extract",
				Name:      "duration_seconds",
				Help:      "Content extraction duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"feature"},
		),
		BlobBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "blob_bytes_total",
				Help:      "Total bytes written to blob storage",
			},
			[]string{"category"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
	}
}

// --- Convenience methods ---

// RecordAdmission records a quota admission decision.
func (m *Metrics) RecordAdmission(feature, outcome string) {
	m.AdmissionsTotal.WithLabelValues(feature, outcome).Inc()
}

// RecordLedgerAppend records a persisted usage event.
func (m *Metrics) RecordLedgerAppend(feature string, premium bool) {
	tier := "free"
	if premium {
		tier = "premium"
	}
	m.LedgerAppendsTotal.WithLabelValues(feature, tier).Inc()
}

// RecordDBQuery records a database query.
func (m *Metrics) RecordDBQuery(operation string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordExtraction records a content extraction attempt.
func (m *Metrics) RecordExtraction(feature, status string, duration time.Duration) {
	m.ExtractionsTotal.WithLabelValues(feature, status).Inc()
	m.ExtractionDuration.WithLabelValues(feature).Observe(duration.Seconds())
}

// RecordBlobWrite records bytes written to blob storage.
func (m *Metrics) RecordBlobWrite(category string, size int) {
	m.BlobBytesTotal.WithLabelValues(category).Add(float64(size))
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}
