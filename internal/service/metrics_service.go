package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheLookups      *prometheus.CounterVec
	submissions       prometheus.Counter
	moderationActions *prometheus.CounterVec
	realtimeEvents    *prometheus.CounterVec
	streamClients     prometheus.Gauge
	purgedWorks       *prometheus.CounterVec
}

// NewMetricsService registers the collectors exposed on /metrics.
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_submissions_total",
		Help: "Student submissions received",
	})

	moderationActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_moderation_actions_total",
		Help: "Moderation actions by action and outcome",
	}, []string{"action", "outcome"})

	realtimeEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_realtime_events_total",
		Help: "Change events published by table",
	}, []string{"table"})

	streamClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_change_stream_clients",
		Help: "Connected change stream clients",
	})

	purgedWorks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_purged_works_total",
		Help: "Soft-deleted works processed by the purge job",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		submissions, moderationActions, realtimeEvents, streamClients, purgedWorks, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheLookups:      cacheLookups,
		submissions:       submissions,
		moderationActions: moderationActions,
		realtimeEvents:    realtimeEvents,
		streamClients:     streamClients,
		purgedWorks:       purgedWorks,
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// IncSubmissions counts an accepted submission.
func (m *MetricsService) IncSubmissions() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordModeration counts a moderation action by outcome.
func (m *MetricsService) RecordModeration(action string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.moderationActions.WithLabelValues(action, outcome).Inc()
}

// RecordRealtimeEvent counts a change event published for table.
func (m *MetricsService) RecordRealtimeEvent(table string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(table).Inc()
}

// StreamClientConnected adjusts the connected change-stream gauge by delta.
func (m *MetricsService) StreamClientConnected(delta int) {
	if m == nil {
		return
	}
	m.streamClients.Add(float64(delta))
}

// RecordPurge adds the outcome of a purge run.
func (m *MetricsService) RecordPurge(purged, failed int) {
	if m == nil {
		return
	}
	m.purgedWorks.WithLabelValues("purged").Add(float64(purged))
	m.purgedWorks.WithLabelValues("failed").Add(float64(failed))
}
