// Package observability exposes Prometheus metrics for the ingestion
// and refresh loops. All recording methods are nil-safe so callers can
// run without metrics wired (tests, one-shot CLI commands).
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	readingsInserted prometheus.Counter
	insertErrors     prometheus.Counter
	readingsSeeded   prometheus.Counter

	windowQueries prometheus.Counter
	queryErrors   prometheus.Counter
	windowRows    prometheus.Gauge

	refreshCycles *prometheus.CounterVec
	cycleDuration prometheus.Histogram

	wsClients prometheus.Gauge

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers the pipeline collectors on the default registry.
func New() *Metrics {
	m := &Metrics{
		readingsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readings_inserted_total",
			Help: "Total readings appended by the producer loop.",
		}),
		insertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insert_errors_total",
			Help: "Total failed insert attempts.",
		}),
		readingsSeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readings_seeded_total",
			Help: "Total readings bulk-inserted by the seeder.",
		}),
		windowQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "window_queries_total",
			Help: "Total window queries executed.",
		}),
		queryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "query_errors_total",
			Help: "Total failed window queries.",
		}),
		windowRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "window_rows",
			Help: "Rows returned by the most recent window query.",
		}),
		refreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Completed refresh cycles by trigger.",
		}, []string{"trigger"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "refresh_cycle_duration_seconds",
			Help:    "Histogram of query-plus-render cycle durations.",
			Buckets: prometheus.DefBuckets,
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Currently connected dashboard websocket clients.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	prometheus.MustRegister(
		m.readingsInserted,
		m.insertErrors,
		m.readingsSeeded,
		m.windowQueries,
		m.queryErrors,
		m.windowRows,
		m.refreshCycles,
		m.cycleDuration,
		m.wsClients,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// ReadingInserted counts one successful producer insert.
func (m *Metrics) ReadingInserted() {
	if m == nil {
		return
	}
	m.readingsInserted.Inc()
}

// InsertFailed counts one failed insert attempt.
func (m *Metrics) InsertFailed() {
	if m == nil {
		return
	}
	m.insertErrors.Inc()
}

// ReadingsSeeded counts a completed seeding batch.
func (m *Metrics) ReadingsSeeded(n int) {
	if m == nil {
		return
	}
	m.readingsSeeded.Add(float64(n))
}

// QuerySucceeded counts one window query and records its row count.
func (m *Metrics) QuerySucceeded(rows int) {
	if m == nil {
		return
	}
	m.windowQueries.Inc()
	m.windowRows.Set(float64(rows))
}

// QueryFailed counts one failed window query.
func (m *Metrics) QueryFailed() {
	if m == nil {
		return
	}
	m.windowQueries.Inc()
	m.queryErrors.Inc()
}

// CycleCompleted records one finished refresh cycle and its duration.
// trigger is "auto" or "manual".
func (m *Metrics) CycleCompleted(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshCycles.WithLabelValues(trigger).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// WebsocketConnected tracks one new dashboard client.
func (m *Metrics) WebsocketConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

// WebsocketDisconnected tracks one departed dashboard client.
func (m *Metrics) WebsocketDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request counts and durations for one route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}
