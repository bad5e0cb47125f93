package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weatherdeck/weatherdeck/internal/observability"
)

const (
	wsWriteDeadline = 10 * time.Second
	wsReadDeadline  = 60 * time.Second
	wsPingInterval  = 30 * time.Second
	wsChannelBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin browsers and non-browser clients (no Origin) only.
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// Hub fans snapshots out to connected websocket clients. Browsers that
// would otherwise poll /api/snapshot get pushed the same JSON the
// moment a refresh cycle renders.
type Hub struct {
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte

	log     *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewHub creates a hub. Run must be started for it to do anything.
func NewHub(log *slog.Logger, metrics *observability.Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		register:   make(chan *websocket.Conn, wsChannelBuffer),
		unregister: make(chan *websocket.Conn, wsChannelBuffer),
		broadcast:  make(chan []byte, wsChannelBuffer),
		log:        log,
		metrics:    metrics,
		clients:    make(map[*websocket.Conn]bool),
	}
}

// Run drives registration and fan-out until ctx is cancelled, then
// closes every client connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
			}
			h.clients = make(map[*websocket.Conn]bool)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.WebsocketConnected()
			h.log.Debug("websocket client connected", "clients", count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				h.metrics.WebsocketDisconnected()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("websocket client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()

			// Unregister failures without holding the read lock.
			for _, conn := range failed {
				h.unregister <- conn
			}
		}
	}
}

// Broadcast marshals v and queues it for every client. A full queue
// drops the message rather than blocking the caller: the next snapshot
// supersedes this one anyway.
func (h *Hub) Broadcast(v any) error {
	message, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("websocket broadcast queue full, dropping snapshot")
	}
	return nil
}

// ClientCount reports connected clients, for /healthz.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and parks it in the hub until the peer
// goes away. The upgrade needs the raw ResponseWriter, so this handler
// is registered without the metrics middleware.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.register <- conn

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		h.unregister <- conn
	}()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	// Clients never send data; the read loop exists to consume control
	// frames and observe the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}
