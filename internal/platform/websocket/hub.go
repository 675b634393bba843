// Package websocket pushes real-time conversation events to connected
// clients. It implements a hub-and-spoke pattern where clients join
// conversation rooms and receive events broadcast to those rooms.
package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// EventMessageReceived is broadcast when a new message lands in a
// conversation.
const EventMessageReceived = "message_received"

// EventConversationEnded is broadcast when a conversation is closed and
// analyzed.
const EventConversationEnded = "conversation_ended"

// Event represents a real-time notification sent to WebSocket clients.
// Room is the conversation ID the event belongs to.
type Event struct {
	Type      string          `json:"type"`
	Room      string          `json:"room"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event for a conversation room. Marshal errors surface
// as an empty Data payload rather than failing the originating request.
func NewEvent(eventType string, conversationID uuid.UUID, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{
		Type:      eventType,
		Room:      conversationID.String(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewMessageEvent builds a message_received event for a conversation room.
func NewMessageEvent(conversationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventMessageReceived, conversationID, payload)
}

// ClientMessage represents an inbound message from a WebSocket client.
// Action is "join" or "leave"; Rooms lists conversation IDs.
type ClientMessage struct {
	Action string   `json:"action"`
	Rooms  []string `json:"rooms"`
}

// EventPublisher defines the interface services use to push events without
// depending on the hub directly.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection.
type Client struct {
	ID    string
	Rooms []string
	Send  chan []byte
	hub   *Hub
	conn  Conn
}

// Hub is the central connection manager that tracks clients and their room
// memberships. All operations are thread-safe via sync.RWMutex.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]map[*Client]struct{} // room -> set of clients
	all         map[*Client]struct{}            // all connected clients
	clientGauge func(int64)                     // fed the connected-client count
}

// NewHub creates a new Hub ready to manage WebSocket clients.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

// SetClientGauge attaches a gauge that receives the connected-client count
// on every register and unregister. May be left unset.
func (h *Hub) SetClientGauge(gauge func(int64)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clientGauge = gauge
}

// Register adds a client to the hub and joins it to its initial rooms.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}

	for _, room := range client.Rooms {
		if h.clients[room] == nil {
			h.clients[room] = make(map[*Client]struct{})
		}
		h.clients[room][client] = struct{}{}
	}

	if h.clientGauge != nil {
		h.clientGauge(int64(len(h.all)))
	}
}

// Unregister removes a client from the hub and all rooms, and closes the
// client's Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, room := range client.Rooms {
		if members, ok := h.clients[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.clients, room)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)

	if h.clientGauge != nil {
		h.clientGauge(int64(len(h.all)))
	}
}

// Join adds rooms to an already-registered client.
func (h *Hub) Join(client *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range rooms {
		if h.clients[room] == nil {
			h.clients[room] = make(map[*Client]struct{})
		}
		h.clients[room][client] = struct{}{}
	}
	client.Rooms = append(client.Rooms, rooms...)
}

// Leave removes rooms from an already-registered client.
func (h *Hub) Leave(client *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		removeSet[r] = struct{}{}
	}

	for _, room := range rooms {
		if members, ok := h.clients[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.clients, room)
			}
		}
	}

	remaining := make([]string, 0, len(client.Rooms))
	for _, r := range client.Rooms {
		if _, rm := removeSet[r]; !rm {
			remaining = append(remaining, r)
		}
	}
	client.Rooms = remaining
}

// ProcessMessage handles an inbound ClientMessage, dispatching to Join or
// Leave as appropriate.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "join":
		h.Join(client, msg.Rooms)
	case "leave":
		h.Leave(client, msg.Rooms)
	}
}

// Broadcast sends an event to all clients in the given room.
func (h *Hub) Broadcast(room string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket: failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.clients[room]
	if !ok {
		return
	}

	for client := range members {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// BroadcastAll sends an event to every connected client regardless of room.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket: failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.all {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// Publish implements the EventPublisher interface by broadcasting the event
// to members of the event's room.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Room, event)
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// RoomCount returns the number of clients in a specific room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[room])
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler handles HTTP-to-WebSocket upgrades and message routing.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new handler bound to the given Hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (wsh *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// client with the hub, and starts read/write pumps. A room query parameter
// joins the client to that conversation immediately.
func (wsh *Handler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	rooms := []string{}
	if room := c.QueryParam("room"); room != "" {
		rooms = append(rooms, room)
	}

	client := &Client{
		ID:    uuid.New().String(),
		Rooms: rooms,
		Send:  make(chan []byte, 256),
		hub:   wsh.hub,
		conn:  &gorillaConnAdapter{ws},
	}

	wsh.hub.Register(client)

	go wsh.writePump(client, ws)
	go wsh.readPump(client, ws)

	return nil
}

// readPump reads messages from the WebSocket connection and processes them.
func (wsh *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // Ignore malformed messages.
		}

		wsh.hub.ProcessMessage(client, msg)
	}
}

// writePump writes messages from the Send channel to the WebSocket connection.
func (wsh *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
