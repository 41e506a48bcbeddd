package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"go.uber.org/zap"
)

// Broadcaster is the in-process types.EventPublisher. Each subscriber gets a
// buffered channel; a subscriber whose buffer is full misses the event
// instead of stalling the publisher.
type Broadcaster struct {
	log        *zap.SugaredLogger
	metrics    *metrics
	bufferSize int

	mu     sync.RWMutex
	subs   map[string]map[string]*localSubscription // topic -> subscriber id
	closed bool
}

type localSubscription struct {
	ch        chan types.Event
	filters   []types.EventType
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *localSubscription) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.ch)
	})
}

func NewBroadcaster(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = DefaultConfig().EventBufferSize
	}
	return &Broadcaster{
		log:        logger.GetLogger().Named("broadcaster"),
		metrics:    newMetrics(),
		bufferSize: bufferSize,
		subs:       make(map[string]map[string]*localSubscription),
	}
}

func (b *Broadcaster) Publish(ctx context.Context, topic string, event types.Event) error {
	start := time.Now()
	defer func() {
		b.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	event, err := prepare(topic, event)
	if err != nil {
		b.metrics.errorCount.WithLabelValues("publish", "validation").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("broadcaster is closed")
	}

	for id, sub := range b.subs[topic] {
		if !matches(event, sub.filters) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.metrics.droppedEvents.WithLabelValues(topic).Inc()
			b.log.Warnw("Dropped event for slow subscriber", "topic", topic, "subscriberID", id, "eventType", event.Type)
		}
	}
	b.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	return nil
}

func (b *Broadcaster) PublishBatch(ctx context.Context, topic string, events []types.Event) error {
	for _, event := range events {
		if err := b.Publish(ctx, topic, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers subscriberID on topic. The subscription ends, and the
// channel is closed, on Unsubscribe, Close, or when ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	start := time.Now()
	defer func() {
		b.metrics.subscribeLatency.Observe(time.Since(start).Seconds())
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broadcaster is closed")
	}
	if _, exists := b.subs[topic][subscriberID]; exists {
		b.metrics.errorCount.WithLabelValues("subscribe", "duplicate").Inc()
		return nil, fmt.Errorf("subscription already exists for topic %s and subscriber %s", topic, subscriberID)
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]*localSubscription)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &localSubscription{
		ch:      make(chan types.Event, b.bufferSize),
		filters: filters,
		cancel:  cancel,
	}
	b.subs[topic][subscriberID] = sub
	b.metrics.activeSubscribers.Inc()

	go func() {
		<-subCtx.Done()
		b.remove(topic, subscriberID, sub)
	}()

	return sub.ch, nil
}

func (b *Broadcaster) Unsubscribe(ctx context.Context, topic string, subscriberID string) error {
	b.mu.RLock()
	sub, exists := b.subs[topic][subscriberID]
	b.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no subscription found for topic %s and subscriber %s", topic, subscriberID)
	}
	b.remove(topic, subscriberID, sub)
	return nil
}

// remove drops sub if it is still the registered subscription for the id.
func (b *Broadcaster) remove(topic, subscriberID string, sub *localSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.subs[topic][subscriberID]; ok && current == sub {
		delete(b.subs[topic], subscriberID)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
		b.metrics.activeSubscribers.Dec()
	}
	sub.close()
}

// SubscriberCount returns the number of live subscriptions on topic.
func (b *Broadcaster) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close ends every subscription and rejects further use.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*localSubscription
	for topic, subs := range b.subs {
		for _, sub := range subs {
			all = append(all, sub)
			b.metrics.activeSubscribers.Dec()
		}
		delete(b.subs, topic)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
	b.log.Infow("Broadcaster closed", "subscriptions", len(all))
}
