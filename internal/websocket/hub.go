package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"assetdesk/internal/access"
	"assetdesk/internal/auth"
	"assetdesk/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the frame pushed to every subscriber
type Event struct {
	Event     string                 `json:"event"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
	Role   model.Role
}

// Message is a queued frame. A non-empty Owner restricts delivery to that
// user and to roles allowed to observe every user's events.
type Message struct {
	Payload []byte
	Owner   string
}

// receives reports whether the client may see m.
func (c *Client) receives(m Message) bool {
	if m.Owner == "" {
		return true
	}
	if c.UserID.String() == m.Owner {
		return true
	}
	return access.Allowed(c.Role, access.OpObserveUserEvents)
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Println("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Println("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.receives(message) {
					continue
				}
				select {
				case client.Send <- message.Payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount reports how many subscribers are registered
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues an event for broadcast. It never blocks the caller; when the
// queue is full the event is dropped. Events whose data carries a "user_id"
// only reach that user and procurement.
func (h *Hub) Publish(event string, data map[string]interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Printf("failed to encode %s event: %v", event, err)
		return
	}
	owner, _ := data["user_id"].(string)

	select {
	case h.Broadcast <- Message{Payload: payload, Owner: owner}:
	default:
		log.Printf("WebSocket broadcast queue full, dropping %s event", event)
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Subscribers only listen; reading detects the close
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
	}
}

// ServeWs handles websocket requests from the peer
func ServeWs(hub *Hub, c *gin.Context, tokens *auth.TokenManager) {
	// Browsers cannot set headers on the upgrade request, so the token comes as a query param
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	identity, err := tokens.Parse(tokenString)
	if err != nil {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if !access.Allowed(identity.Role, access.OpSubscribeEvents) {
		log.Println("WebSocket connection rejected: inadequate permissions")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: identity.UserID,
		Role:   identity.Role,
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
