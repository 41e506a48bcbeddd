package events

import (
	"context"
	"testing"
	"time"

	"github.com/NomadCrew/climapro-backend/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan types.Event) types.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return types.Event{}
	}
}

func TestBroadcaster_DeliversToSubscribers(t *testing.T) {
	resetMetricsForTesting()
	b := NewBroadcaster(10)
	defer b.Close()
	ctx := context.Background()

	a, err := b.Subscribe(ctx, types.StateTopic, "a")
	require.NoError(t, err)
	c, err := b.Subscribe(ctx, types.StateTopic, "c", types.EventTypeFavoritesUpdated)
	require.NoError(t, err)
	assert.Equal(t, 2, b.SubscriberCount(types.StateTopic))

	require.NoError(t, b.Publish(ctx, types.StateTopic, testEvent(types.EventTypeWeatherUpdated)))
	require.NoError(t, b.Publish(ctx, types.StateTopic, testEvent(types.EventTypeFavoritesUpdated)))

	assert.Equal(t, types.EventTypeWeatherUpdated, receive(t, a).Type)
	assert.Equal(t, types.EventTypeFavoritesUpdated, receive(t, a).Type)
	// The filtered subscriber only sees favorites events.
	assert.Equal(t, types.EventTypeFavoritesUpdated, receive(t, c).Type)
	assert.Len(t, c, 0)
}

func TestBroadcaster_DuplicateSubscriber(t *testing.T) {
	resetMetricsForTesting()
	b := NewBroadcaster(10)
	defer b.Close()

	_, err := b.Subscribe(context.Background(), "t", "dup")
	require.NoError(t, err)
	_, err = b.Subscribe(context.Background(), "t", "dup")
	assert.Error(t, err)
}

func TestBroadcaster_SlowSubscriberDropsEvents(t *testing.T) {
	resetMetricsForTesting()
	b := NewBroadcaster(1)
	defer b.Close()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "t", "slow")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Publish(ctx, "t", testEvent(types.EventTypeWeatherUpdated)))
	}

	assert.Len(t, ch, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(b.metrics.droppedEvents.WithLabelValues("t")))
}

func TestBroadcaster_UnsubscribeAndContextCancel(t *testing.T) {
	resetMetricsForTesting()
	b := NewBroadcaster(10)
	defer b.Close()

	ch, err := b.Subscribe(context.Background(), "t", "a")
	require.NoError(t, err)
	require.NoError(t, b.Unsubscribe(context.Background(), "t", "a"))
	_, ok := <-ch
	assert.False(t, ok)
	assert.Error(t, b.Unsubscribe(context.Background(), "t", "a"))

	ctx, cancel := context.WithCancel(context.Background())
	ch2, err := b.Subscribe(ctx, "t", "b")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch2:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
	assert.Eventually(t, func() bool { return b.SubscriberCount("t") == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroadcaster_RejectsInvalidEventsAndClosed(t *testing.T) {
	resetMetricsForTesting()
	b := NewBroadcaster(10)

	err := b.Publish(context.Background(), "t", types.Event{})
	assert.Error(t, err)

	ch, err := b.Subscribe(context.Background(), "t", "a")
	require.NoError(t, err)
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)

	assert.Error(t, b.Publish(context.Background(), "t", testEvent(types.EventTypeWeatherUpdated)))
	_, err = b.Subscribe(context.Background(), "t", "b")
	assert.Error(t, err)
}
