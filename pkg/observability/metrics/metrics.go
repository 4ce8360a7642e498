package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConsoleMetrics exposes counters/histograms for the console API and worker.
type ConsoleMetrics struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	viewRenders    *prometheus.CounterVec
	calendarBuilds prometheus.Counter
	eventsConsumed *prometheus.CounterVec
	statsCache     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *ConsoleMetrics {
	m := &ConsoleMetrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by route and status code",
		}, []string{"method", "route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		viewRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "tableview",
			Name:      "renders_total",
			Help:      "Table views rendered by entity",
		}, []string{"entity"}),
		calendarBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "calendar",
			Name:      "builds_total",
			Help:      "Month grids built",
		}),
		eventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Lifecycle events consumed by the worker",
		}, []string{"event_type", "status"}),
		statsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "stats",
			Name:      "cache_lookups_total",
			Help:      "Dashboard stats cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.httpRequests, m.httpLatency, m.viewRenders, m.calendarBuilds, m.eventsConsumed, m.statsCache)
	return m
}

func (m *ConsoleMetrics) ObserveHTTP(method, route string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(code)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

func (m *ConsoleMetrics) ObserveRender(entity string) {
	if m == nil {
		return
	}
	m.viewRenders.WithLabelValues(entity).Inc()
}

func (m *ConsoleMetrics) ObserveCalendarBuild() {
	if m == nil {
		return
	}
	m.calendarBuilds.Inc()
}

func (m *ConsoleMetrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsConsumed.WithLabelValues(eventType, status).Inc()
}

func (m *ConsoleMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.statsCache.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
