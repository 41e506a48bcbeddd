package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	stateVersion    prometheus.Gauge
	summaryRequests *prometheus.CounterVec
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			fetches: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "climapro_weather_fetch_total",
				Help: "Weather fetches by kind (city, location) and outcome",
			}, []string{"kind", "outcome"}),
			fetchDuration: promauto.With(defaultRegistry).NewHistogramVec(prometheus.HistogramOpts{
				Name:    "climapro_weather_fetch_duration_seconds",
				Help:    "Time taken by weather fetches",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			}, []string{"kind"}),
			stateVersion: promauto.With(defaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "climapro_state_version",
				Help: "Version of the most recently published weather state",
			}),
			summaryRequests: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "climapro_summary_requests_total",
				Help: "Summary requests by outcome (generated, cached, rate_limited, failed)",
			}, []string{"outcome"}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting(reg prometheus.Registerer) {
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
}
