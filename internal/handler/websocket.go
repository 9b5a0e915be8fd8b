package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/region-catalog/internal/events"
	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// DefaultConfirmTimeout is how long a session waits for a confirm_reply.
	DefaultConfirmTimeout = 60 * time.Second
)

var activeSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "catalog_active_sessions",
		Help: "Number of open interactive catalog sessions",
	},
)

// EventSubscriber delivers item change events.
type EventSubscriber interface {
	Subscribe(handler events.Handler) (unsubscribe func())
}

// WebSocketHandler serves interactive catalog sessions. Each connection owns
// a catalog.Manager that is driven by client commands and refreshed on item
// change events.
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	service        CatalogService
	subscriber     EventSubscriber
	locale         string
	confirmTimeout time.Duration
	logger         *zap.Logger
	mu             sync.RWMutex
	clients        map[*websocket.Conn]context.CancelFunc
}

// NewWebSocketHandler creates a new WebSocketHandler instance. subscriber may
// be nil, in which case sessions only see their own changes.
func NewWebSocketHandler(
	service CatalogService,
	subscriber EventSubscriber,
	locale string,
	confirmTimeout time.Duration,
	logger *zap.Logger,
) *WebSocketHandler {
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		service:        service,
		subscriber:     subscriber,
		locale:         locale,
		confirmTimeout: confirmTimeout,
		logger:         logger,
		clients:        make(map[*websocket.Conn]context.CancelFunc),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the connection and starts a catalog session.
//
//nolint:contextcheck // intentional: WebSocket connections outlive the HTTP request context
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	// The HTTP request context is canceled when this handler returns, the
	// session lives until the connection closes.
	ctx, cancel := context.WithCancel(context.Background())

	s := newSession(conn, h.service, h.confirmTimeout, h.logger)
	manager, err := h.service.NewManager(ctx, s, h.locale)
	if err != nil {
		h.logger.Error("failed to load catalog for session", zap.Error(err))
		s.writeDirect(model.NewWebSocketMessage(model.WSMessageTypeError, "failed to load catalog"))
		cancel()
		if cerr := conn.Close(); cerr != nil {
			h.logger.Debug("error closing connection", zap.Error(cerr))
		}
		return
	}
	s.manager = manager

	unsubscribe := func() {}
	if h.subscriber != nil {
		unsubscribe = h.subscriber.Subscribe(s.notify)
	}

	h.mu.Lock()
	h.clients[conn] = cancel
	h.mu.Unlock()
	activeSessions.Inc()

	h.logger.Info("websocket client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go s.writePump(ctx)
	go s.run(ctx)
	go func() {
		defer func() {
			cancel()
			unsubscribe()
			h.removeClient(conn)
			if err := conn.Close(); err != nil {
				h.logger.Debug("error closing connection", zap.Error(err))
			}
		}()
		s.readPump(ctx)
	}()
}

// SessionCount returns the number of open sessions.
func (h *WebSocketHandler) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// removeClient removes a client from the clients map.
func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, exists := h.clients[conn]; exists {
		cancel()
		delete(h.clients, conn)
		activeSessions.Dec()
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// CloseAllConnections closes all active WebSocket connections.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.Lock()
	// Copy the clients map to avoid holding the lock while closing
	clients := make(map[*websocket.Conn]context.CancelFunc, len(h.clients))
	for conn, cancel := range h.clients {
		clients[conn] = cancel
	}
	h.mu.Unlock()

	// Cancel all contexts first - this will trigger writePump to send close messages
	for _, cancel := range clients {
		cancel()
	}

	// Give writePump goroutines time to send close messages
	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
		activeSessions.Dec()
	}
	h.mu.Unlock()

	h.logger.Info("all websocket connections closed")
}
