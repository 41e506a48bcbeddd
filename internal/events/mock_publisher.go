package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/NomadCrew/climapro-backend/types"
)

// MockPublisher implements types.EventPublisher for tests. It records every
// event and delivers to subscribers without blocking.
type MockPublisher struct {
	mu            sync.RWMutex
	events        map[string][]types.Event // key: topic
	subscriptions map[string]chan types.Event
	closed        bool
	PublishErr    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		events:        make(map[string][]types.Event),
		subscriptions: make(map[string]chan types.Event),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, event types.Event) error {
	return m.PublishBatch(ctx, topic, []types.Event{event})
}

func (m *MockPublisher) PublishBatch(ctx context.Context, topic string, events []types.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("publisher is closed")
	}
	if m.PublishErr != nil {
		return m.PublishErr
	}

	m.events[topic] = append(m.events[topic], events...)
	for key, ch := range m.subscriptions {
		if key != topic {
			continue
		}
		for _, event := range events {
			select {
			case ch <- event:
			default:
			}
		}
	}
	return nil
}

func (m *MockPublisher) Subscribe(ctx context.Context, topic string, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("publisher is closed")
	}
	if _, exists := m.subscriptions[topic]; exists {
		return nil, fmt.Errorf("subscription already exists")
	}
	ch := make(chan types.Event, 100)
	m.subscriptions[topic] = ch
	return ch, nil
}

func (m *MockPublisher) Unsubscribe(ctx context.Context, topic string, subscriberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, exists := m.subscriptions[topic]
	if !exists {
		return fmt.Errorf("subscription not found")
	}
	close(ch)
	delete(m.subscriptions, topic)
	return nil
}

// GetEvents returns the events recorded for topic.
func (m *MockPublisher) GetEvents(topic string) []types.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.Event(nil), m.events[topic]...)
}

// EventsOfType returns the recorded events of one type across all topics.
func (m *MockPublisher) EventsOfType(eventType types.EventType) []types.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Event
	for _, events := range m.events {
		for _, e := range events {
			if e.Type == eventType {
				out = append(out, e)
			}
		}
	}
	return out
}

func (m *MockPublisher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscriptions {
		close(ch)
	}
	m.subscriptions = make(map[string]chan types.Event)
	m.closed = true
}
