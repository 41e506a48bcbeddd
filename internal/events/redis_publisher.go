package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds configuration for the publishers.
type Config struct {
	PublishTimeout   time.Duration
	SubscribeTimeout time.Duration
	EventBufferSize  int
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		PublishTimeout:   5 * time.Second,
		SubscribeTimeout: 10 * time.Second,
		EventBufferSize:  100,
	}
}

// ChannelName is the Redis Pub/Sub channel events for topic are sent on.
func ChannelName(topic string) string {
	return "climapro:" + topic
}

// RedisPublisher implements types.EventPublisher over Redis Pub/Sub so other
// processes can follow state changes.
type RedisPublisher struct {
	rdb     *redis.Client
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
	mu      sync.RWMutex
	subs    map[string]*subscription
	wg      sync.WaitGroup
}

type subscription struct {
	pubsub    *redis.PubSub
	cancelCtx context.CancelFunc
	closeOnce sync.Once
}

func (s *subscription) closePubSub(log *zap.SugaredLogger, subKey string) {
	s.closeOnce.Do(func() {
		if err := s.pubsub.Close(); err != nil {
			log.Errorw("Error closing pubsub", "error", err, "subKey", subKey)
		}
	})
}

func NewRedisPublisher(rdb *redis.Client, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}

	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("redis_events"),
		metrics: newMetrics(),
		config:  config,
		subs:    make(map[string]*subscription),
	}
}

func (p *RedisPublisher) encode(topic string, event types.Event, operation string) (types.Event, []byte, error) {
	event, err := prepare(topic, event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues(operation, "validation").Inc()
		return event, nil, fmt.Errorf("invalid event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues(operation, "marshal").Inc()
		return event, nil, fmt.Errorf("marshal event: %w", err)
	}
	return event, data, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event types.Event) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	event, data, err := p.encode(topic, event, "publish")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, ChannelName(topic), data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	return nil
}

// PublishBatch sends events in one pipeline.
func (p *RedisPublisher) PublishBatch(ctx context.Context, topic string, events []types.Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	channel := ChannelName(topic)
	pipe := p.rdb.Pipeline()
	prepared := make([]types.Event, 0, len(events))

	for _, event := range events {
		event, data, err := p.encode(topic, event, "publish_batch")
		if err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		pipe.Publish(ctx, channel, data)
		prepared = append(prepared, event)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		p.metrics.errorCount.WithLabelValues("publish_batch", "redis").Inc()
		return fmt.Errorf("execute batch publish: %w", err)
	}

	for _, event := range prepared {
		p.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	}
	return nil
}

func (p *RedisPublisher) Subscribe(ctx context.Context, topic string, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	start := time.Now()
	defer func() {
		p.metrics.subscribeLatency.Observe(time.Since(start).Seconds())
	}()

	subKey := topic + ":" + subscriberID

	p.mu.Lock()
	if _, exists := p.subs[subKey]; exists {
		p.mu.Unlock()
		p.metrics.errorCount.WithLabelValues("subscribe", "duplicate").Inc()
		return nil, fmt.Errorf("subscription already exists for topic %s and subscriber %s", topic, subscriberID)
	}

	pubsub := p.rdb.Subscribe(ctx, ChannelName(topic))
	subCtx, cancel := context.WithCancel(context.Background())
	p.subs[subKey] = &subscription{pubsub: pubsub, cancelCtx: cancel}
	p.mu.Unlock()

	p.metrics.activeSubscribers.Inc()

	events := make(chan types.Event, p.config.EventBufferSize)
	readyCh := make(chan struct{})

	p.wg.Add(1)
	go p.processMessages(subCtx, pubsub, events, filters, subKey, readyCh)

	select {
	case <-readyCh:
	case <-time.After(p.config.SubscribeTimeout):
		p.log.Warnw("Subscription ready timeout", "subKey", subKey)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return events, nil
}

func (p *RedisPublisher) processMessages(ctx context.Context, pubsub *redis.PubSub, events chan<- types.Event, filters []types.EventType, subKey string, readyCh chan<- struct{}) {
	defer p.wg.Done()
	defer func() {
		p.mu.RLock()
		sub, exists := p.subs[subKey]
		p.mu.RUnlock()
		if exists {
			sub.closePubSub(p.log, subKey)
		}

		close(events)
		p.metrics.activeSubscribers.Dec()
		p.log.Infow("Subscription closed", "subKey", subKey)
	}()

	// Receive blocks until Redis confirms the subscription.
	if _, err := pubsub.Receive(ctx); err != nil {
		p.log.Warnw("Subscription confirmation failed", "error", err, "subKey", subKey)
	}
	ch := pubsub.Channel()
	close(readyCh)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event types.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.metrics.errorCount.WithLabelValues("process", "unmarshal").Inc()
				p.log.Errorw("Failed to unmarshal event", "error", err, "subKey", subKey)
				continue
			}
			if !matches(event, filters) {
				continue
			}

			select {
			case events <- event:
				p.metrics.eventCount.WithLabelValues("receive", string(event.Type)).Inc()
			default:
				p.metrics.errorCount.WithLabelValues("process", "channel_full").Inc()
				p.log.Warnw("Dropped event due to full channel", "subKey", subKey, "eventType", event.Type)
			}
		}
	}
}

func (p *RedisPublisher) Unsubscribe(ctx context.Context, topic string, subscriberID string) error {
	subKey := topic + ":" + subscriberID

	p.mu.Lock()
	sub, exists := p.subs[subKey]
	if !exists {
		p.mu.Unlock()
		return fmt.Errorf("no subscription found for topic %s and subscriber %s", topic, subscriberID)
	}
	sub.cancelCtx()
	sub.closePubSub(p.log, subKey)
	delete(p.subs, subKey)
	p.mu.Unlock()

	return nil
}

// Shutdown cancels all subscriptions and waits for their goroutines.
func (p *RedisPublisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	localSubs := make(map[string]*subscription, len(p.subs))
	for k, v := range p.subs {
		localSubs[k] = v
	}
	p.subs = make(map[string]*subscription)
	p.mu.Unlock()

	p.log.Infow("Shutting down RedisPublisher", "subscriptions", len(localSubs))
	for subKey, sub := range localSubs {
		sub.cancelCtx()
		sub.closePubSub(p.log, subKey)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("redis publisher shutdown: %w", ctx.Err())
	}
}
