package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/internal/middleware"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxSessionLifetime = 15 * time.Minute
	writeWait          = 10 * time.Second // Time allowed to write a message to the peer
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10 // 54 seconds
	maxMessageSize     = 4 * 1024            // clients only send control frames
	clientBuffer       = 64
)

// EventsHandler streams recipe events to WebSocket clients. One broker
// subscription feeds every connection on this node.
type EventsHandler struct {
	events   broker.EventBroker
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*eventClient
	mu       sync.RWMutex

	sessionLifetime time.Duration
}

type eventClient struct {
	conn        *websocket.Conn
	recipeID    uuid.UUID // uuid.Nil streams every recipe
	userID      string
	send        chan broker.Event
	connectedAt time.Time
}

// NewEventsHandler accepts upgrades from allowedOrigins, or from any origin
// when the list is empty.
func NewEventsHandler(events broker.EventBroker, allowedOrigins []string) *EventsHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &EventsHandler{
		events:  events,
		clients: make(map[*websocket.Conn]*eventClient),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		sessionLifetime: maxSessionLifetime,
	}
}

// Run fans broker events out to connected clients until ctx is done.
func (h *EventsHandler) Run(ctx context.Context) error {
	stream, err := h.events.Subscribe(ctx)
	if err != nil {
		return err
	}
	logger.Log.Info("Event listener started")

	for event := range stream {
		h.broadcast(event)
	}

	logger.Log.Info("Event listener stopped")
	return nil
}

// ClientCount is the number of open connections.
func (h *EventsHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GET /api/events[?recipeId=]
func (h *EventsHandler) HandleEvents(c *gin.Context) {
	recipeID := uuid.Nil
	if raw := c.Query("recipeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(c, apperror.ValidationFailed("recipeId", "recipeId must be a valid id"))
			return
		}
		recipeID = id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		return
	}

	client := &eventClient{
		conn:        conn,
		recipeID:    recipeID,
		send:        make(chan broker.Event, clientBuffer),
		connectedAt: time.Now(),
	}
	if caller := middleware.CallerFrom(c); caller != nil {
		client.userID = caller.UserID.String()
	}

	h.mu.Lock()
	h.clients[conn] = client
	total := len(h.clients)
	h.mu.Unlock()

	logger.Log.Info("Event client connected",
		zap.String("recipe_id", recipeID.String()),
		zap.String("user_id", client.userID),
		zap.Int("total", total),
	)

	go h.writePump(client)
	h.readPump(client)
}

// readPump consumes control frames until the peer goes away.
func (h *EventsHandler) readPump(client *eventClient) {
	defer h.removeClient(client.conn)

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer on the connection.
func (h *EventsHandler) writePump(client *eventClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sessionTimer := time.NewTimer(h.sessionLifetime)
	defer sessionTimer.Stop()

	defer client.conn.Close()

	for {
		select {
		case event, ok := <-client.send:
			if !ok {
				h.writeClose(client, websocket.CloseNormalClosure, "")
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(event); err != nil {
				logger.Log.Debug("Failed to send event", zap.Error(err))
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sessionTimer.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = client.conn.WriteJSON(gin.H{
				"type":  "session_expired",
				"error": "session expired, reconnect to keep streaming",
			})
			h.writeClose(client, websocket.CloseNormalClosure, "session expired")
			return
		}
	}
}

func (h *EventsHandler) writeClose(client *eventClient, code int, reason string) {
	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

func (h *EventsHandler) broadcast(event broker.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.recipeID != uuid.Nil && client.recipeID != event.RecipeID {
			continue
		}
		select {
		case client.send <- event:
		default:
			// Slow consumer: drop this event for it only.
			logger.Log.Warn("Event client buffer full, dropping event",
				zap.String("type", string(event.Type)),
			)
		}
	}
}

func (h *EventsHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.clients[conn]
	if !exists {
		return
	}
	delete(h.clients, conn)
	close(client.send)

	logger.Log.Info("Event client disconnected",
		zap.Duration("session", time.Since(client.connectedAt).Round(time.Second)),
		zap.Int("remaining", len(h.clients)),
	)
}
