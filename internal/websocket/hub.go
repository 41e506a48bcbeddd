package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var errHubClosed = errors.New("websocket hub is shut down")

// StateSubscriber follows coordinator state events.
type StateSubscriber interface {
	Subscribe(ctx context.Context, filters ...types.EventType) (<-chan types.Event, func(), error)
}

// Hub tracks the open state-stream connections. Each connection has its own
// subscription to the state topic.
type Hub struct {
	log          *zap.SugaredLogger
	states       StateSubscriber
	connections  map[string]*Connection // connection id -> connection
	mu           sync.RWMutex
	shutdownOnce sync.Once
	shuttingDown bool
	pingInterval time.Duration
	writeTimeout time.Duration
	sendBuffer   int
}

// Connection is one client socket.
type Connection struct {
	ID          string
	Conn        *websocket.Conn
	unsubscribe func()
	sendCh      chan types.Event
	done        chan struct{}
	mu          sync.Mutex
	closed      bool
}

type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

func NewHub(states StateSubscriber, cfg ...HubConfig) *Hub {
	config := DefaultHubConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	return &Hub{
		log:          logger.GetLogger().Named("websocket_hub"),
		states:       states,
		connections:  make(map[string]*Connection),
		pingInterval: config.PingInterval,
		writeTimeout: config.WriteTimeout,
		sendBuffer:   config.SendBuffer,
	}
}

// Register subscribes conn to state events and starts forwarding them to
// its send channel.
func (h *Hub) Register(ctx context.Context, conn *websocket.Conn) (*Connection, error) {
	events, unsubscribe, err := h.states.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	connection := &Connection{
		ID:          uuid.NewString(),
		Conn:        conn,
		unsubscribe: unsubscribe,
		sendCh:      make(chan types.Event, h.sendBuffer),
		done:        make(chan struct{}),
	}

	h.mu.Lock()
	if h.shuttingDown {
		h.mu.Unlock()
		unsubscribe()
		return nil, errHubClosed
	}
	h.connections[connection.ID] = connection
	h.mu.Unlock()

	go h.forward(connection, events)

	h.log.Infow("WebSocket connection registered", "connectionID", connection.ID)
	return connection, nil
}

func (h *Hub) forward(conn *Connection, events <-chan types.Event) {
	for {
		select {
		case <-conn.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			select {
			case conn.sendCh <- event:
			default:
				h.log.Warnw("Connection send buffer full, dropping event",
					"connectionID", conn.ID,
					"eventType", event.Type)
			}
		}
	}
}

// Unregister closes and forgets a connection.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	conn, ok := h.connections[connectionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, connectionID)
	h.mu.Unlock()

	h.closeConnection(conn, websocket.StatusNormalClosure, "unregistered")
}

func (h *Hub) closeConnection(conn *Connection, status websocket.StatusCode, reason string) {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	close(conn.done)
	conn.mu.Unlock()

	conn.unsubscribe()
	if conn.Conn != nil {
		_ = conn.Conn.Close(status, reason)
	}

	h.log.Infow("WebSocket connection closed", "connectionID", conn.ID, "reason", reason)
}

func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown closes every connection with StatusGoingAway and refuses new ones.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		h.shuttingDown = true
		connections := make([]*Connection, 0, len(h.connections))
		for _, conn := range h.connections {
			connections = append(connections, conn)
		}
		h.connections = make(map[string]*Connection)
		h.mu.Unlock()

		for _, conn := range connections {
			h.closeConnection(conn, websocket.StatusGoingAway, "server shutdown")
		}
	})

	h.log.Info("WebSocket hub shutdown complete")
	return nil
}

// SendChannel carries the state events to write to the client.
func (c *Connection) SendChannel() <-chan types.Event {
	return c.sendCh
}

// Done is closed when the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
