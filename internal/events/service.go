package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Service fans every published event out three ways: registered handlers
// (via the router), local subscribers (via the broadcaster) and, when
// configured, a mirror publisher such as Redis. The mirror runs on the pool
// so a slow remote never delays local delivery.
type Service struct {
	log         *zap.SugaredLogger
	pool        *ants.Pool
	router      *Router
	broadcaster *Broadcaster
	mirror      types.EventPublisher
	mirrorWG    sync.WaitGroup
	mu          sync.RWMutex
	handlers    map[string]types.EventHandler
}

type ServiceOption func(*Service)

// WithMirror forwards every event to publisher in the background.
func WithMirror(publisher types.EventPublisher) ServiceOption {
	return func(s *Service) {
		s.mirror = publisher
	}
}

func NewService(pool *ants.Pool, cfg Config, opts ...ServiceOption) *Service {
	s := &Service{
		log:         logger.GetLogger().Named("event_service"),
		pool:        pool,
		router:      NewRouter(pool),
		broadcaster: NewBroadcaster(cfg.EventBufferSize),
		handlers:    make(map[string]types.EventHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RegisterHandler(name string, handler types.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handlers[name]; exists {
		return fmt.Errorf("handler with name %s already registered", name)
	}
	s.handlers[name] = handler
	s.router.RegisterHandler(handler)
	return nil
}

func (s *Service) UnregisterHandler(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handler, exists := s.handlers[name]
	if !exists {
		return fmt.Errorf("handler %s not found", name)
	}
	s.router.UnregisterHandler(handler)
	delete(s.handlers, name)
	return nil
}

// Publish delivers event locally and schedules the mirror. Handler errors
// are logged; only local delivery errors are returned.
func (s *Service) Publish(ctx context.Context, topic string, event types.Event) error {
	event, err := prepare(topic, event)
	if err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	if err := s.router.HandleEvent(ctx, event); err != nil {
		s.log.Errorw("Error handling event locally", "error", err, "topic", topic, "eventType", event.Type)
	}

	if err := s.broadcaster.Publish(ctx, topic, event); err != nil {
		return err
	}

	s.forward(topic, event)
	return nil
}

func (s *Service) PublishBatch(ctx context.Context, topic string, events []types.Event) error {
	for _, event := range events {
		if err := s.Publish(ctx, topic, event); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) forward(topic string, event types.Event) {
	if s.mirror == nil {
		return
	}
	s.mirrorWG.Add(1)
	err := s.pool.Submit(func() {
		defer s.mirrorWG.Done()
		// Detached from the caller: the request that triggered the event may
		// already be finished.
		if err := s.mirror.Publish(context.Background(), topic, event); err != nil {
			s.log.Warnw("Failed to mirror event", "error", err, "topic", topic, "eventType", event.Type)
		}
	})
	if err != nil {
		s.mirrorWG.Done()
		s.log.Warnw("Event mirror rejected by pool", "error", err, "eventType", event.Type)
	}
}

// Subscribe follows local deliveries.
func (s *Service) Subscribe(ctx context.Context, topic string, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	return s.broadcaster.Subscribe(ctx, topic, subscriberID, filters...)
}

func (s *Service) Unsubscribe(ctx context.Context, topic string, subscriberID string) error {
	return s.broadcaster.Unsubscribe(ctx, topic, subscriberID)
}

func (s *Service) SubscriberCount(topic string) int {
	return s.broadcaster.SubscriberCount(topic)
}

// Shutdown waits for pending mirror publishes, closes local subscriptions
// and unregisters every handler. The pool is owned by the caller.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.mirrorWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warnw("Timed out waiting for mirrored events", "error", ctx.Err())
	}

	s.broadcaster.Close()

	s.mu.Lock()
	for name, handler := range s.handlers {
		s.router.UnregisterHandler(handler)
		delete(s.handlers, name)
	}
	s.mu.Unlock()

	if shutdowner, ok := s.mirror.(interface{ Shutdown(context.Context) error }); ok {
		if err := shutdowner.Shutdown(ctx); err != nil {
			s.log.Errorw("Error shutting down mirror publisher", "error", err)
		}
	}

	s.log.Info("Event service shutdown complete")
	return nil
}

// GetHandlerNames returns the names of the registered handlers.
func (s *Service) GetHandlerNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	return names
}
