// Package wshub fans dashboard events out to WebSocket clients.
package wshub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kjannette/signalforge-backend/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)

// Message is the envelope every client receives.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// direct is a message for a single client.
type direct struct {
	c       *client
	payload []byte
}

// Responder builds a reply message on demand.
type Responder func(ctx context.Context) (msgType string, data any)

// Hub owns the client set. Only Run touches the map; each client has its
// own writer goroutine so a slow dashboard never blocks a publisher.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	unicast    chan direct
	done       chan struct{}
	upgrader   websocket.Upgrader

	onConnect Responder
	requests  map[string]Responder
}

func NewHub(allowOrigin string) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		unicast:    make(chan direct, 64),
		requests:   make(map[string]Responder),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowOrigin == "" || allowOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowOrigin
			},
		},
	}
}

// OnConnect sets the message sent to each client as it connects. Must be
// called before Run.
func (h *Hub) OnConnect(fn Responder) {
	h.onConnect = fn
}

// OnRequest answers {"type": reqType} frames sent by a client. Must be
// called before Run.
func (h *Hub) OnRequest(reqType string, fn Responder) {
	h.requests[reqType] = fn
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			fmt.Printf("[WS] Client connected (%d total)\n", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				fmt.Printf("[WS] Client disconnected (%d total)\n", len(h.clients))
			}

		case d := <-h.unicast:
			if _, ok := h.clients[d.c]; !ok {
				continue
			}
			select {
			case d.c.send <- d.payload:
			default:
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					fmt.Println("[WS] Dropping slow client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	metrics.WebSocketClients.Set(float64(len(h.clients)))
}

// Publish queues a typed message for every connected client. It never
// blocks; messages are dropped when the queue is full.
func (h *Hub) Publish(msgType string, data any) {
	payload, ok := encode(msgType, data)
	if !ok {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

func encode(msgType string, data any) ([]byte, bool) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		fmt.Printf("[WS] Encode %s: %v\n", msgType, err)
		return nil, false
	}
	return payload, true
}

// reply computes fn's message and queues it for c alone.
func (h *Hub) reply(ctx context.Context, c *client, fn Responder) {
	payload, ok := encode(fn(ctx))
	if !ok {
		return
	}
	select {
	case h.unicast <- direct{c: c, payload: payload}:
	case <-h.done:
	}
}

// HandleWS upgrades the request and attaches the connection to the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("[WS] Upgrade failed: %v\n", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)

	if h.onConnect != nil {
		h.reply(r.Context(), c, h.onConnect)
	}
}

// readPump answers registered requests, discards other frames and
// notices disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &req) != nil {
			continue
		}
		if fn, ok := h.requests[req.Type]; ok {
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			h.reply(ctx, c, fn)
			cancel()
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
