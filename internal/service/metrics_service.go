package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/dormfix-api/internal/models"
)

// Oracle outcome labels.
const (
	OracleOutcomeOK       = "ok"
	OracleOutcomeError    = "error"
	OracleOutcomeMemoized = "memoized"
)

// MetricsService encapsulates Prometheus instrumentation and keeps a few
// counters for the JSON summary endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	oracleRequests  *prometheus.CounterVec
	oracleLatency   *prometheus.HistogramVec
	intakeOutcomes  *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	oracleCalls          uint64
	oracleFailures       uint64
	intakeAccepted       uint64
	intakeRejected       uint64
}

// NewMetricsService registers all collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of request store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	oracleRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_requests_total",
		Help: "Urgency and duplicate oracle calls by outcome",
	}, []string{"oracle", "outcome"})

	oracleLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oracle_latency_seconds",
		Help:    "Latency of oracle calls",
		Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 20},
	}, []string{"oracle"})

	intakeOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_outcomes_total",
		Help: "Request submissions by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, oracleRequests, oracleLatency, intakeOutcomes, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		oracleRequests:  oracleRequests,
		oracleLatency:   oracleLatency,
		intakeOutcomes:  intakeOutcomes,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a lookup and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records store operation timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveOracle records one oracle call. Memoized answers skip the latency histogram.
func (m *MetricsService) ObserveOracle(oracle, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.oracleRequests.WithLabelValues(oracle, outcome).Inc()
	if outcome == OracleOutcomeMemoized {
		return
	}
	m.oracleLatency.WithLabelValues(oracle).Observe(duration.Seconds())
	atomic.AddUint64(&m.oracleCalls, 1)
	if outcome == OracleOutcomeError {
		atomic.AddUint64(&m.oracleFailures, 1)
	}
}

// RecordIntake counts a submission outcome.
func (m *MetricsService) RecordIntake(outcome string) {
	if m == nil {
		return
	}
	m.intakeOutcomes.WithLabelValues(outcome).Inc()
	if outcome == models.IntakeOutcomeAccepted {
		atomic.AddUint64(&m.intakeAccepted, 1)
	} else {
		atomic.AddUint64(&m.intakeRejected, 1)
	}
}

// Snapshot aggregates counters for the admin summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if hits+misses > 0 {
		cacheRatio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		OracleCalls:              atomic.LoadUint64(&m.oracleCalls),
		OracleFailures:           atomic.LoadUint64(&m.oracleFailures),
		IntakeAccepted:           atomic.LoadUint64(&m.intakeAccepted),
		IntakeRejected:           atomic.LoadUint64(&m.intakeRejected),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
