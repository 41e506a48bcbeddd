package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NomadCrew/climapro-backend/config"
	"github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Message types exchanged over the state stream.
const (
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeFetchCity         = "fetch_city"
	MessageTypeRefresh           = "refresh"
	MessageTypeState             = "state"
	MessageTypePersistenceFailed = "persistence_failed"
	MessageTypeError             = "error"
)

// StateController is the part of the coordinator the stream drives.
type StateController interface {
	StateSubscriber
	State() types.WeatherState
	FetchWeatherForCity(ctx context.Context, cityID string) (types.WeatherState, error)
	Refresh(ctx context.Context) (types.WeatherState, error)
}

// Handler upgrades /v1/ws requests and streams coordinator state.
type Handler struct {
	log            *zap.SugaredLogger
	hub            *Hub
	controller     StateController
	pingInterval   time.Duration
	writeTimeout   time.Duration
	allowedOrigins []string
	isDevelopment  bool
}

func NewHandler(hub *Hub, controller StateController, serverCfg *config.ServerConfig) *Handler {
	return &Handler{
		log:            logger.GetLogger().Named("websocket_handler"),
		hub:            hub,
		controller:     controller,
		pingInterval:   hub.pingInterval,
		writeTimeout:   hub.writeTimeout,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
}

// getAcceptOptions allows every origin in development and the configured
// ones otherwise.
func (h *Handler) getAcceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if h.isDevelopment || containsWildcard(h.allowedOrigins) {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}
	return opts
}

// ClientMessage is a message from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is a message to the client.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HandleWebSocket accepts the connection, sends the current state and then
// every state change until either side closes.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, h.getAcceptOptions())
	if err != nil {
		h.log.Errorw("Failed to accept WebSocket connection", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	connection, err := h.hub.Register(ctx, conn)
	if err != nil {
		h.log.Errorw("Failed to register WebSocket connection", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "registration failed")
		return
	}
	defer h.hub.Unregister(connection.ID)

	if err := h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypeState, Payload: h.controller.State()}); err != nil {
		h.log.Errorw("Failed to send initial state", "connectionID", connection.ID, "error", err)
		return
	}

	errCh := make(chan error, 3)
	go func() { errCh <- h.readLoop(ctx, conn) }()
	go func() { errCh <- h.writeLoop(ctx, conn, connection) }()
	go func() { errCh <- h.pingLoop(ctx, conn) }()

	err = <-errCh
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
		websocket.CloseStatus(err) != websocket.StatusGoingAway {
		h.log.Warnw("WebSocket connection error", "connectionID", connection.ID, "error", err)
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		h.handleClientMessage(ctx, conn, msg)
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, connection *Connection) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-connection.Done():
			return nil
		case event := <-connection.SendChannel():
			msg, ok := messageForEvent(event)
			if !ok {
				continue
			}
			if err := h.sendMessage(ctx, conn, msg); err != nil {
				return err
			}
		}
	}
}

// messageForEvent translates a state-topic event into the client message.
func messageForEvent(event types.Event) (ServerMessage, bool) {
	switch event.Type {
	case types.EventTypePersistenceFailed:
		var payload types.PersistenceFailedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return ServerMessage{}, false
		}
		return ServerMessage{Type: MessageTypePersistenceFailed, Payload: payload}, true
	default:
		var payload types.StateChangedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return ServerMessage{}, false
		}
		return ServerMessage{Type: MessageTypeState, Payload: payload.State}, true
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// handleClientMessage runs client intents. Resulting state changes reach the
// client through the subscription, so only failures are answered directly.
func (h *Handler) handleClientMessage(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	switch msg.Type {
	case MessageTypePing:
		_ = h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypePong})

	case MessageTypeFetchCity:
		var payload struct {
			CityID string `json:"cityId"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.CityID == "" {
			_ = h.sendMessage(ctx, conn, ServerMessage{
				Type:  MessageTypeError,
				Error: "Invalid fetch_city request: cityId required",
			})
			return
		}
		if _, err := h.controller.FetchWeatherForCity(ctx, payload.CityID); err != nil {
			h.sendError(ctx, conn, err)
		}

	case MessageTypeRefresh:
		if _, err := h.controller.Refresh(ctx); err != nil {
			h.sendError(ctx, conn, err)
		}

	default:
		h.log.Debugw("Unknown message type from client", "type", msg.Type)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, err error) {
	message := err.Error()
	if appErr, ok := errors.As(err); ok {
		message = appErr.Message
	}
	_ = h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypeError, Error: message})
}

func (h *Handler) sendMessage(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
