// Package metrics exposes Prometheus collectors for the allocator and
// implements the observer hooks of the data, cache, plan and backtest
// packages.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "momentum_allocator"

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal       *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	CacheTotal       *prometheus.CounterVec
	PlanTotal        *prometheus.CounterVec
	BacktestDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_total",
			Help:      "Price fetches by source and result",
		}, []string{"source", "result"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_duration_seconds",
			Help:      "Price fetch latency by source",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		CacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache name and result",
		}, []string{"cache", "result"}),
		PlanTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "requests_total",
			Help:      "Plan requests by strategy and result",
		}, []string{"strategy", "result"}),
		BacktestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Walk-forward backtest duration by strategy and result",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"strategy", "result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) ObserveFetch(source, result string, d time.Duration) {
	m.FetchTotal.WithLabelValues(source, result).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveCache(cache, result string) {
	m.CacheTotal.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) ObservePlan(strategyID, result string) {
	m.PlanTotal.WithLabelValues(strategyID, result).Inc()
}

func (m *Metrics) ObserveBacktest(strategyID, result string, d time.Duration) {
	m.BacktestDuration.WithLabelValues(strategyID, result).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
