// Package live pushes "state changed" notices to a visitor's open pages
// over WebSocket so they can reload without polling.
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

type Client struct {
	ID    string
	Key   string
	Send  chan []byte
	close sync.Once
}

// Hub tracks connections per visitor key.
type Hub struct {
	mu       sync.RWMutex
	visitors map[string]map[*Client]struct{}
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		visitors: make(map[string]map[*Client]struct{}),
		logger:   logger.With().Str("component", "live").Logger(),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.visitors[c.Key] == nil {
		h.visitors[c.Key] = make(map[*Client]struct{})
	}
	h.visitors[c.Key][c] = struct{}{}
}

// Unregister removes c and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.visitors[c.Key]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.visitors, c.Key)
	}
	c.close.Do(func() { close(c.Send) })
}

// Notify tells every page of the visitor that its state changed. Slow
// clients are skipped.
func (h *Hub) Notify(key string) {
	data, err := json.Marshal(Event{Type: "state", At: time.Now()})
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal live event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.visitors[key] {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.visitors {
		n += len(set)
	}
	return n
}

func (h *Hub) VisitorCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.visitors[key])
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades the request and subscribes the connection to the
// visitor returned by keyOf.
func (h *Hub) Handler(keyOf func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyOf(c)
		if key == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := &Client{
			ID:   uuid.NewString(),
			Key:  key,
			Send: make(chan []byte, sendBuffer),
		}
		h.Register(client)

		go h.writePump(client, ws)
		go h.readPump(client, ws)
	}
}

// readPump only watches for the connection to close; pages never send.
func (h *Hub) readPump(c *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.Unregister(c)
		ws.Close()
	}()

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
