package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/roadgrid/grid/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Messages queued per viewer before it is considered too slow and dropped.
	clientBuffer = 64

	// Broadcasts queued while the hub loop is busy.
	broadcastBuffer = 256
)

// Events sent alongside the edit events produced by the service
const (
	EventGridUpdate     = "grid_update"
	EventEdit           = "edit"
	EventSessionDeleted = "session_deleted"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one frame pushed to the viewers of a session
type Message struct {
	SessionID string              `json:"session_id"`
	Event     string              `json:"event"`
	Grid      *service.GridState  `json:"grid,omitempty"`
	Events    []service.EditEvent `json:"events,omitempty"`
	Data      any                 `json:"data,omitempty"`

	// close disconnects every viewer of the session once the frame is queued
	close bool
}

// Client is one websocket connection watching a session's grid
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub fans grid updates out to the viewers of each session. Registration,
// removal and delivery all happen on the Run goroutine; mu only guards the
// viewer sets for ClientCount.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]map[*Client]struct{}

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	// closed once Run returns
	done chan struct{}
}

// NewHub creates a hub; call Run to start delivering messages
func NewHub() *Hub {
	return &Hub{
		viewers:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// sessions are case-insensitive everywhere else, so the hub matches that
func viewerKey(sessionID string) string {
	return strings.ToLower(sessionID)
}

// Run delivers messages until ctx is cancelled, then disconnects every viewer
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.disconnectAll()
			return nil

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to a session.
// A non-nil initial state is sent first so the viewer can draw the grid
// before the next edit arrives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, initial *service.GridState) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, clientBuffer),
		sessionID: sessionID,
	}

	if initial != nil {
		if data, err := json.Marshal(&Message{SessionID: sessionID, Event: EventGridUpdate, Grid: initial}); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastGrid sends the current grid state to the viewers of a session
func (h *Hub) BroadcastGrid(sessionID string, grid *service.GridState) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventGridUpdate, Grid: grid})
}

// BroadcastEvents sends the events and resulting grid of an edit to the
// viewers of a session. Edits that changed nothing are not sent.
func (h *Hub) BroadcastEvents(sessionID string, result *service.EditResult) {
	if result == nil || (len(result.Events) == 0 && !result.Changed) {
		return
	}
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     EventEdit,
		Grid:      result.Grid,
		Events:    result.Events,
	})
}

// BroadcastEvent sends a custom event to the viewers of a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data any) {
	h.enqueue(&Message{SessionID: sessionID, Event: event, Data: data})
}

// CloseSession tells the viewers of a session it was deleted and disconnects them
func (h *Hub) CloseSession(sessionID string) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventSessionDeleted, close: true})
}

// ClientCount returns the number of viewers attached to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[viewerKey(sessionID)])
}

// enqueue hands a message to the hub loop, dropping it when the queue is full
func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("WebSocket broadcast queue full, dropping %s for session %s", message.Event, message.SessionID)
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := viewerKey(client.sessionID)
	if h.viewers[key] == nil {
		h.viewers[key] = make(map[*Client]struct{})
	}
	h.viewers[key][client] = struct{}{}

	log.Printf("Viewer attached to session %s (%d watching)", client.sessionID, len(h.viewers[key]))
}

// removeLocked detaches a client and closes its send channel. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) {
	key := viewerKey(client.sessionID)
	clients := h.viewers[key]
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.viewers, key)
	}

	log.Printf("Viewer detached from session %s (%d watching)", client.sessionID, len(clients))
}

// deliver sends a message to every viewer of its session. Viewers whose
// buffer is full are dropped rather than stalling the loop.
func (h *Hub) deliver(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.viewers[viewerKey(message.SessionID)] {
		select {
		case client.send <- data:
			if message.close {
				h.removeLocked(client)
			}
		default:
			h.removeLocked(client)
		}
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.viewers {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// readPump keeps the read deadline fresh and detaches the client when the
// connection drops. Viewers never send anything meaningful.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump writes queued frames and pings until the hub closes send
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
