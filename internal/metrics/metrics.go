package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julienbonastre/scantosold/internal/calculator"
)

// Metrics records service activity. A nil *Metrics is a no-op.
type Metrics struct {
	calculations *prometheus.CounterVec
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	syncRuns     *prometheus.CounterVec
}

// New registers the metrics on the provided registerer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	calculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scantosold_profit_calculations_total",
		Help: "Profit calculations persisted, by verdict.",
	}, []string{"verdict"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scantosold_http_requests_total",
		Help: "HTTP requests handled.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scantosold_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scantosold_ebay_sync_runs_total",
		Help: "eBay reconcile and import runs, by outcome.",
	}, []string{"kind", "status"})
	reg.MustRegister(calculations, requests, duration, syncRuns)
	return &Metrics{
		calculations: calculations,
		requests:     requests,
		duration:     duration,
		syncRuns:     syncRuns,
	}
}

// ObserveCalculation counts a persisted calculation by verdict
func (m *Metrics) ObserveCalculation(calc calculator.ProfitCalculation) {
	if m == nil || m.calculations == nil {
		return
	}
	verdict := "unprofitable"
	if calc.IsProfitable {
		verdict = "profitable"
	}
	m.calculations.WithLabelValues(verdict).Inc()
}

// ObserveRequest records one handled HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// IncSync counts a sync run
func (m *Metrics) IncSync(kind, status string) {
	if m == nil || m.syncRuns == nil {
		return
	}
	m.syncRuns.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
