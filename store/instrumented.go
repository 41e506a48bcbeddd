package store

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	opCount   *prometheus.CounterVec
	opLatency *prometheus.HistogramVec
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			opCount: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "kv_store_operations_total",
				Help: "Total number of key-value store operations by backend, operation and result",
			}, []string{"backend", "operation", "result"}),
			opLatency: promauto.With(defaultRegistry).NewHistogramVec(prometheus.HistogramOpts{
				Name:    "kv_store_operation_duration_seconds",
				Help:    "Time taken by key-value store operations",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			}, []string{"backend", "operation"}),
		}
	})
	return metricsInstance
}

func resetMetricsForTesting(reg prometheus.Registerer) {
	defaultRegistry = reg
	metricsInstance = nil
	metricsOnce = sync.Once{}
}

type instrumented struct {
	inner   KVStore
	backend string
	metrics *metrics
}

// Instrumented records operation counts and latencies for inner under the
// given backend label.
func Instrumented(inner KVStore, backend string) KVStore {
	return &instrumented{inner: inner, backend: backend, metrics: newMetrics()}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.opCount.WithLabelValues(s.backend, op, result).Inc()
	s.metrics.opLatency.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}

func (s *instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, ok, err := s.inner.Get(ctx, key)
	s.observe("get", start, err)
	return value, ok, err
}

func (s *instrumented) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.inner.Set(ctx, key, value)
	s.observe("set", start, err)
	return err
}

func (s *instrumented) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.inner.Remove(ctx, key)
	s.observe("remove", start, err)
	return err
}

func (s *instrumented) Ping(ctx context.Context) error {
	if pinger, ok := s.inner.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
