package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the sync engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	syncRuns        *prometheus.CounterVec
	syncEvents      *prometheus.CounterVec
	webhookTotal    prometheus.Counter
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

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total sync runs by outcome",
	}, []string{"outcome"})

	syncEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_events_total",
		Help: "Remote events processed by result",
	}, []string{"result"})

	webhookTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Total webhook deliveries received",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, syncRuns, syncEvents, webhookTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		syncRuns:        syncRuns,
		syncEvents:      syncEvents,
		webhookTotal:    webhookTotal,
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSyncRun records the outcome of one sync run and its event results.
func (m *MetricsService) ObserveSyncRun(outcome string, summary *SyncSummary) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
	if summary == nil {
		return
	}
	m.syncEvents.WithLabelValues("updated").Add(float64(summary.Updated))
	m.syncEvents.WithLabelValues("deleted").Add(float64(summary.Deleted))
	m.syncEvents.WithLabelValues("conflict").Add(float64(summary.Conflicts))
	m.syncEvents.WithLabelValues("skipped").Add(float64(summary.Skipped))
}

// ObserveWebhookDelivery counts an inbound webhook delivery.
func (m *MetricsService) ObserveWebhookDelivery() {
	if m == nil {
		return
	}
	m.webhookTotal.Inc()
}
