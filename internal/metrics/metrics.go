package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SearchesTotal    *prometheus.CounterVec
	SearchDuration   *prometheus.HistogramVec
	SearchesInFlight prometheus.Gauge

	AdapterRequestsTotal   *prometheus.CounterVec
	AdapterRequestDuration *prometheus.HistogramVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	QuotaDenialsTotal *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		SearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rasuto_searches_total",
				Help: "Total number of aggregated searches processed",
			},
			[]string{"status"},
		),
		SearchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rasuto_search_duration_seconds",
				Help:    "Aggregated search duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{},
		),
		SearchesInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rasuto_searches_in_flight",
				Help: "Number of aggregated searches currently being processed",
			},
		),

		AdapterRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rasuto_adapter_requests_total",
				Help: "Total number of retailer adapter invocations",
			},
			[]string{"service", "status"},
		),
		AdapterRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rasuto_adapter_request_duration_seconds",
				Help:    "Retailer adapter request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"service"},
		),

		CacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rasuto_cache_hits_total",
				Help: "Total number of result cache hits",
			},
		),
		CacheMissesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rasuto_cache_misses_total",
				Help: "Total number of result cache misses",
			},
		),

		QuotaDenialsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rasuto_quota_denials_total",
				Help: "Total number of requests denied by the quota ledger",
			},
			[]string{"service"},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordSearch(status string, duration time.Duration) {
	m.SearchesTotal.WithLabelValues(status).Inc()
	m.SearchDuration.WithLabelValues().Observe(duration.Seconds())
}

func (m *Metrics) RecordAdapterRequest(service, status string, duration time.Duration) {
	m.AdapterRequestsTotal.WithLabelValues(service, status).Inc()
	m.AdapterRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordQuotaDenial(service string) {
	m.QuotaDenialsTotal.WithLabelValues(service).Inc()
}

func (m *Metrics) IncSearchesInFlight() {
	m.SearchesInFlight.Inc()
}

func (m *Metrics) DecSearchesInFlight() {
	m.SearchesInFlight.Dec()
}
