// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	LedgerReplays         prometheus.Counter
	MovementsAppended     *prometheus.CounterVec
	MovementsRejected     *prometheus.CounterVec
	LedgerWarnings        *prometheus.CounterVec
	PaymentsSkipped       prometheus.Counter
	AllocationsComputed   prometheus.Counter
	DegenerateAllocations prometheus.Counter
	EventsPublished       *prometheus.CounterVec
	ReportRuns            *prometheus.CounterVec
	HTTPRequests          *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, so separate instances never
// collide (tests build one per case).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LedgerReplays: f.NewCounter(prometheus.CounterOpts{
			Name: "obras_ledger_replays_total",
			Help: "Movement logs replayed",
		}),
		MovementsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obras_ledger_movements_appended_total",
			Help: "Movements accepted and stored",
		}, []string{"kind"}),
		MovementsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obras_ledger_movements_rejected_total",
			Help: "Movements rejected at append",
		}, []string{"reason"}),
		LedgerWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obras_ledger_warnings_total",
			Help: "Clamped amortizations and withholdings",
		}, []string{"code"}),
		PaymentsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "obras_weekly_payments_skipped_total",
			Help: "Payments left out of weekly aggregation for lack of a date",
		}),
		AllocationsComputed: f.NewCounter(prometheus.CounterOpts{
			Name: "obras_allocations_computed_total",
			Help: "Indirect-cost distributions computed",
		}),
		DegenerateAllocations: f.NewCounter(prometheus.CounterOpts{
			Name: "obras_allocations_degenerate_total",
			Help: "Distributions with no direct spend",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obras_events_published_total",
			Help: "Outbound events by type and result",
		}, []string{"event", "result"}),
		ReportRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obras_report_runs_total",
			Help: "Scheduled distribution report runs",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obras_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "obras_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
