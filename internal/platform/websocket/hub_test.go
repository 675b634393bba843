package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func newTestClient(id string, rooms ...string) *Client {
	return &Client{
		ID:    id,
		Rooms: rooms,
		Send:  make(chan []byte, 256),
	}
}

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient("client-1", "conv-123")

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.RoomCount("conv-123") != 1 {
		t.Fatalf("expected 1 client in conv-123, got %d", hub.RoomCount("conv-123"))
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient("client-2", "conv-456")

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.RoomCount("conv-456") != 0 {
		t.Fatalf("expected 0 clients in conv-456, got %d", hub.RoomCount("conv-456"))
	}
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := NewHub()

	member := newTestClient("member-1", "conv-123")
	outsider := newTestClient("outsider-1", "conv-999")

	hub.Register(member)
	hub.Register(outsider)

	event := Event{
		Type:      EventMessageReceived,
		Room:      "conv-123",
		Timestamp: time.Now(),
	}

	hub.Broadcast("conv-123", event)

	select {
	case msg := <-member.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if received.Type != EventMessageReceived {
			t.Fatalf("expected %s, got %s", EventMessageReceived, received.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("room member did not receive event")
	}

	select {
	case <-outsider.Send:
		t.Fatal("outsider should not have received event")
	default:
		// expected
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub()

	c1 := newTestClient("all-1", "conv-1")
	c2 := newTestClient("all-2", "conv-2")

	hub.Register(c1)
	hub.Register(c2)

	event := Event{
		Type:      "system_alert",
		Room:      "system",
		Timestamp: time.Now(),
	}

	hub.BroadcastAll(event)

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.Send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}
			if received.Type != "system_alert" {
				t.Fatalf("expected system_alert, got %s", received.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive broadcast", c.ID)
		}
	}
}

func TestHub_RoomCount(t *testing.T) {
	hub := NewHub()

	hub.Register(newTestClient("rc-1", "conv-1"))
	hub.Register(newTestClient("rc-2", "conv-1"))
	hub.Register(newTestClient("rc-3", "conv-5"))

	if hub.RoomCount("conv-1") != 2 {
		t.Fatalf("expected 2 in conv-1, got %d", hub.RoomCount("conv-1"))
	}
	if hub.RoomCount("conv-5") != 1 {
		t.Fatalf("expected 1 in conv-5, got %d", hub.RoomCount("conv-5"))
	}
	if hub.RoomCount("nonexistent") != 0 {
		t.Fatalf("expected 0 in nonexistent, got %d", hub.RoomCount("nonexistent"))
	}
}

func TestHub_JoinAddsRooms(t *testing.T) {
	hub := NewHub()
	client := newTestClient("join-1")
	hub.Register(client)

	hub.Join(client, []string{"conv-a", "conv-b"})

	if hub.RoomCount("conv-a") != 1 {
		t.Fatalf("expected 1 in conv-a, got %d", hub.RoomCount("conv-a"))
	}
	if hub.RoomCount("conv-b") != 1 {
		t.Fatalf("expected 1 in conv-b, got %d", hub.RoomCount("conv-b"))
	}
	if len(client.Rooms) != 2 {
		t.Fatalf("expected 2 rooms on client, got %d", len(client.Rooms))
	}
}

func TestHub_LeaveRemovesRooms(t *testing.T) {
	hub := NewHub()
	client := newTestClient("leave-1", "conv-1", "conv-2", "conv-3")
	hub.Register(client)

	hub.Leave(client, []string{"conv-1", "conv-3"})

	if hub.RoomCount("conv-1") != 0 {
		t.Fatalf("expected 0 in conv-1, got %d", hub.RoomCount("conv-1"))
	}
	if hub.RoomCount("conv-2") != 1 {
		t.Fatalf("expected 1 in conv-2, got %d", hub.RoomCount("conv-2"))
	}
	if len(client.Rooms) != 1 {
		t.Fatalf("expected 1 room remaining, got %d", len(client.Rooms))
	}
}

func TestHub_ProcessMessageJoin(t *testing.T) {
	hub := NewHub()
	client := newTestClient("process-1")
	hub.Register(client)

	raw := `{"action":"join","rooms":["conv-123"]}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	hub.ProcessMessage(client, msg)

	if hub.RoomCount("conv-123") != 1 {
		t.Fatalf("expected 1 member in conv-123, got %d", hub.RoomCount("conv-123"))
	}
}

func TestHub_ProcessMessageLeave(t *testing.T) {
	hub := NewHub()
	client := newTestClient("process-2", "conv-123", "conv-456")
	hub.Register(client)

	raw := `{"action":"leave","rooms":["conv-123"]}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	hub.ProcessMessage(client, msg)

	if hub.RoomCount("conv-123") != 0 {
		t.Fatalf("expected 0 in conv-123, got %d", hub.RoomCount("conv-123"))
	}
	if hub.RoomCount("conv-456") != 1 {
		t.Fatalf("expected 1 in conv-456, got %d", hub.RoomCount("conv-456"))
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	client := newTestClient("close-1", "conv-a")

	hub.Register(client)
	hub.Unregister(client)

	_, ok := <-client.Send
	if ok {
		t.Fatal("expected Send channel to be closed after unregister")
	}
}

func TestHub_BroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub()

	event := Event{
		Type:      EventConversationEnded,
		Room:      "no-one-here",
		Timestamp: time.Now(),
	}

	// Should not panic
	hub.Broadcast("no-one-here", event)
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	clients := make([]*Client, n)
	for i := 0; i < n; i++ {
		clients[i] = newTestClient("concurrent-"+string(rune(i)), "conv-shared")
	}

	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}

	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}

	wg.Wait()

	if hub.ClientCount() < 0 {
		t.Fatalf("client count should not be negative, got %d", hub.ClientCount())
	}
}

func TestNewMessageEvent(t *testing.T) {
	convID := uuid.New()
	event := NewMessageEvent(convID, map[string]string{"content": "hello"})

	if event.Type != EventMessageReceived {
		t.Fatalf("expected %s, got %s", EventMessageReceived, event.Type)
	}
	if event.Room != convID.String() {
		t.Fatalf("expected room %s, got %s", convID, event.Room)
	}

	var payload map[string]string
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
	if payload["content"] != "hello" {
		t.Fatalf("expected content hello, got %s", payload["content"])
	}
}

func TestHub_PublishEvent(t *testing.T) {
	hub := NewHub()

	client := newTestClient("pub-1", "conv-100")
	hub.Register(client)

	var publisher EventPublisher = hub

	event := Event{
		Type:      EventMessageReceived,
		Room:      "conv-100",
		Timestamp: time.Now(),
	}

	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-client.Send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if received.Room != "conv-100" {
			t.Fatalf("expected room conv-100, got %s", received.Room)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive published event")
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub)

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	routes := e.Routes()
	found := false
	for _, r := range routes {
		if r.Path == "/ws" && r.Method == http.MethodGet {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected GET /ws route to be registered")
	}
}

func TestHandler_HandleConnectRequiresWebSocket(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleConnect(c)

	// gorilla/websocket upgrader will reject non-WS requests
	if err == nil && rec.Code == http.StatusSwitchingProtocols {
		t.Fatal("expected upgrade to fail for non-websocket request")
	}
}

func TestHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub)

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	dialer := gorillawebsocket.Dialer{}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() < 1 {
		t.Fatal("expected at least 1 client registered after connect")
	}

	joinMsg := ClientMessage{
		Action: "join",
		Rooms:  []string{"conv-ws-test"},
	}
	if err := conn.WriteJSON(joinMsg); err != nil {
		t.Fatalf("failed to send join: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if hub.RoomCount("conv-ws-test") != 1 {
		t.Fatalf("expected 1 member in conv-ws-test, got %d", hub.RoomCount("conv-ws-test"))
	}

	event := Event{
		Type:      EventMessageReceived,
		Room:      "conv-ws-test",
		Timestamp: time.Now(),
	}
	hub.Broadcast("conv-ws-test", event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Type != EventMessageReceived {
		t.Fatalf("expected %s, got %s", EventMessageReceived, received.Type)
	}
	if received.Room != "conv-ws-test" {
		t.Fatalf("expected room conv-ws-test, got %s", received.Room)
	}
}

func TestHandler_ConnectJoinsRoomQueryParam(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub)

	e := echo.New()
	g := e.Group("")
	handler.RegisterRoutes(g)

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?room=conv-initial"

	dialer := gorillawebsocket.Dialer{}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	if hub.RoomCount("conv-initial") != 1 {
		t.Fatalf("expected 1 member in conv-initial, got %d", hub.RoomCount("conv-initial"))
	}
}

func TestHub_ClientGauge(t *testing.T) {
	hub := NewHub()
	var readings []int64
	hub.SetClientGauge(func(n int64) { readings = append(readings, n) })

	c1 := newTestClient("gauge-1", "conv-1")
	c2 := newTestClient("gauge-2", "conv-1")
	hub.Register(c1)
	hub.Register(c2)
	hub.Unregister(c1)

	want := []int64{1, 2, 1}
	if len(readings) != len(want) {
		t.Fatalf("expected %d gauge readings, got %v", len(want), readings)
	}
	for i := range want {
		if readings[i] != want[i] {
			t.Errorf("reading %d: expected %d, got %d", i, want[i], readings[i])
		}
	}
}
