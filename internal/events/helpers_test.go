package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/NomadCrew/climapro-backend/types"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// mockHandler records the events it receives.
type mockHandler struct {
	mu             sync.Mutex
	events         []types.Event
	supportedTypes []types.EventType
	shouldError    bool
	handlerLatency time.Duration
}

func newMockHandler(supportedTypes ...types.EventType) *mockHandler {
	return &mockHandler{supportedTypes: supportedTypes}
}

func (h *mockHandler) HandleEvent(ctx context.Context, event types.Event) error {
	if h.handlerLatency > 0 {
		time.Sleep(h.handlerLatency)
	}
	if h.shouldError {
		return fmt.Errorf("mock handler error")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *mockHandler) SupportedEvents() []types.EventType {
	return h.supportedTypes
}

func (h *mockHandler) GetEvents() []types.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]types.Event(nil), h.events...)
}

func newTestPool(t *testing.T) *ants.Pool {
	t.Helper()
	pool, err := NewPool(PoolConfig{Capacity: 4, ExpiryDuration: time.Second, MaxBlockingTasks: 64})
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return pool
}

func testEvent(eventType types.EventType) types.Event {
	event, err := NewEvent(eventType, types.StateTopic, "test", map[string]string{"k": "v"})
	if err != nil {
		panic(err)
	}
	return event
}

// setupRedisContainer starts a throwaway Redis for integration tests.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	mappedPort, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get container external port: %v", err)
	}
	hostIP, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", hostIP, mappedPort.Port()),
	})

	cleanup := func() {
		rdb.Close()
		if err := redisC.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}
	return rdb, cleanup
}
