package repository

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	failures *prometheus.CounterVec
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			failures: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "climapro_persistence_failures_total",
				Help: "Storage failures absorbed by the repository, by operation",
			}, []string{"operation"}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting(reg prometheus.Registerer) {
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
}
