package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for SpendLog.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	httpDuration    *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	receipts        *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	eventsPublished *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests build as many
// Metrics as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spendlog_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spendlog_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route and status class.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlog_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlog_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlog_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		receipts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlog_receipts_total",
				Help: "Receipts written, by action.",
			},
			[]string{"action"},
		),
		uploadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spendlog_upload_bytes_total",
				Help: "Bytes of receipt attachments stored.",
			},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendlog_events_published_total",
				Help: "Domain events published, by type and outcome.",
			},
			[]string{"type", "status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveHTTP records one served request. Statuses are bucketed by class
// (2xx, 4xx...) to keep the label set small.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	class := strconv.Itoa(status/100) + "xx"
	m.httpDuration.WithLabelValues(method, route, class).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReceipt counts a receipt action (created, updated, deleted).
func (m *Metrics) IncrReceipt(action string) {
	m.receipts.WithLabelValues(action).Inc()
}

// AddUploadBytes counts stored attachment bytes.
func (m *Metrics) AddUploadBytes(n int64) {
	m.uploadBytes.Add(float64(n))
}

// IncrEvent counts a published event.
func (m *Metrics) IncrEvent(eventType, status string) {
	m.eventsPublished.WithLabelValues(eventType, status).Inc()
}

// Snapshot is a point-in-time view of the counters, for logs and tests.
type Snapshot struct {
	ReceiptsCreated float64
	CacheHits       float64
	CacheMisses     float64
	CacheHitRate    float64
	UploadBytes     float64
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	hits := getCounterValue(m.cacheHits.WithLabelValues("token"))
	misses := getCounterValue(m.cacheMisses.WithLabelValues("token"))
	rate := 0.0
	if hits+misses > 0 {
		rate = hits / (hits + misses)
	}
	return Snapshot{
		ReceiptsCreated: getCounterValue(m.receipts.WithLabelValues("created")),
		CacheHits:       hits,
		CacheMisses:     misses,
		CacheHitRate:    rate,
		UploadBytes:     getCounterValue(m.uploadBytes),
	}
}

// getCounterValue extracts the current float64 value of a counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
