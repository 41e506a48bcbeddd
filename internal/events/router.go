package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// RouterMetrics holds Prometheus metrics for the router
type RouterMetrics struct {
	handlerCount    prometheus.Gauge
	handlerLatency  prometheus.Histogram
	handlerErrors   *prometheus.CounterVec
	eventsRouted    *prometheus.CounterVec
	eventsDiscarded *prometheus.CounterVec
}

var (
	routerMetricsOnce   sync.Once
	globalRouterMetrics *RouterMetrics
)

func getRouterMetrics() *RouterMetrics {
	routerMetricsOnce.Do(func() {
		globalRouterMetrics = &RouterMetrics{
			handlerCount: promauto.With(defaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "event_handlers_total",
				Help: "Total number of registered event handlers",
			}),
			handlerLatency: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "event_handler_duration_seconds",
				Help:    "Time taken to handle events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			handlerErrors: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "event_handler_errors_total",
				Help: "Total number of handler errors by event type",
			}, []string{"event_type"}),
			eventsRouted: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "events_routed_total",
				Help: "Total number of events routed by type",
			}, []string{"event_type"}),
			eventsDiscarded: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "events_discarded_total",
				Help: "Total number of events discarded by reason",
			}, []string{"reason"}),
		}
	})
	return globalRouterMetrics
}

// Router dispatches events to the handlers registered for their type. Each
// handler call runs as a task on the shared pool.
type Router struct {
	log      *zap.SugaredLogger
	metrics  *RouterMetrics
	pool     *ants.Pool
	mu       sync.RWMutex
	handlers map[types.EventType][]types.EventHandler
}

func NewRouter(pool *ants.Pool) *Router {
	return &Router{
		log:      logger.GetLogger().Named("event_router"),
		metrics:  getRouterMetrics(),
		pool:     pool,
		handlers: make(map[types.EventType][]types.EventHandler),
	}
}

// RegisterHandler registers handler for every type it supports.
func (r *Router) RegisterHandler(handler types.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	supported := handler.SupportedEvents()
	if len(supported) == 0 {
		r.log.Warnw("Handler registered with no supported events", "handler", fmt.Sprintf("%T", handler))
		return
	}
	for _, eventType := range supported {
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
	r.log.Infow("Registered event handler", "handler", fmt.Sprintf("%T", handler), "eventTypes", supported)
	r.metrics.handlerCount.Set(float64(r.countHandlers()))
}

func (r *Router) UnregisterHandler(handler types.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, eventType := range handler.SupportedEvents() {
		handlers := r.handlers[eventType]
		for i, h := range handlers {
			if h == handler {
				r.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
				break
			}
		}
		if len(r.handlers[eventType]) == 0 {
			delete(r.handlers, eventType)
		}
	}
	r.metrics.handlerCount.Set(float64(r.countHandlers()))
}

// HandleEvent runs every handler for event.Type and waits for them. Handler
// errors are collected into one error.
func (r *Router) HandleEvent(ctx context.Context, event types.Event) error {
	r.mu.RLock()
	handlers := append([]types.EventHandler(nil), r.handlers[event.Type]...)
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.metrics.eventsDiscarded.WithLabelValues("no_handlers").Inc()
		return nil
	}
	r.metrics.eventsRouted.WithLabelValues(string(event.Type)).Inc()

	var wg sync.WaitGroup
	errCh := make(chan error, len(handlers))

	for _, handler := range handlers {
		h := handler
		wg.Add(1)
		task := func() {
			defer wg.Done()
			timer := prometheus.NewTimer(r.metrics.handlerLatency)
			defer timer.ObserveDuration()

			if err := h.HandleEvent(ctx, event); err != nil {
				r.metrics.handlerErrors.WithLabelValues(string(event.Type)).Inc()
				r.log.Errorw("Handler error", "error", err, "eventType", event.Type, "handler", fmt.Sprintf("%T", h))
				errCh <- fmt.Errorf("handler %T: %w", h, err)
			}
		}
		if err := r.pool.Submit(task); err != nil {
			wg.Done()
			r.metrics.eventsDiscarded.WithLabelValues("pool_rejected").Inc()
			errCh <- fmt.Errorf("submit handler %T: %w", h, err)
		}
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("handler errors: %v", errs)
	}
	return nil
}

func (r *Router) countHandlers() int {
	unique := make(map[types.EventHandler]struct{})
	for _, handlers := range r.handlers {
		for _, h := range handlers {
			unique[h] = struct{}{}
		}
	}
	return len(unique)
}
