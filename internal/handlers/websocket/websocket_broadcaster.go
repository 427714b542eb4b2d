package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/useCases"
)

const writeWait = 5 * time.Second

// Message is the envelope pushed to dashboard clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	// project limits delivery to one project; empty means all projects.
	project string
}

// WebSocketBroadcaster pushes real-time stats to connected clients.
type WebSocketBroadcaster struct {
	clients  map[*websocket.Conn]client
	mu       sync.Mutex
	upgrader websocket.Upgrader
	log      *slog.Logger
}

var _ useCases.Broadcaster = (*WebSocketBroadcaster)(nil)

func NewWebSocketBroadcaster(log *slog.Logger) *WebSocketBroadcaster {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WebSocketBroadcaster{
		clients:  make(map[*websocket.Conn]client),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:      log.With(slog.String("component", "websocket")),
	}
}

// BroadcastRealTimeStats sends stats to every client subscribed to its
// project. Clients that fail a write are dropped.
func (b *WebSocketBroadcaster) BroadcastRealTimeStats(stats *model.RealTimeStats) {
	if stats == nil {
		return
	}
	msg, err := json.Marshal(Message{Type: string(model.DatasetRealTimeStats), Data: stats})
	if err != nil {
		b.log.Error("failed to marshal stats", slog.Any("error", err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c, meta := range b.clients {
		if meta.project != "" && meta.project != stats.ProjectID {
			continue
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			b.log.Warn("websocket write error", slog.Any("error", err))
			c.Close()
			delete(b.clients, c)
		}
	}
}

// Clients returns the number of connected clients.
func (b *WebSocketBroadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Handler returns an http.HandlerFunc to accept websocket connections. The
// optional "project" query parameter filters updates to one project.
func (b *WebSocketBroadcaster) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.log.Warn("websocket upgrade error", slog.Any("error", err))
			return
		}
		b.mu.Lock()
		b.clients[conn] = client{project: r.URL.Query().Get("project")}
		b.mu.Unlock()

		// The read loop only detects disconnects.
		go func() {
			defer func() {
				b.mu.Lock()
				delete(b.clients, conn)
				b.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Close disconnects every client.
func (b *WebSocketBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		c.Close()
		delete(b.clients, c)
	}
}
