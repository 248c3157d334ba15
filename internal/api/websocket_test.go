package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialling websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	//nolint:errcheck // Test deadline; failure surfaces as read error
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading websocket message: %v", err)
	}
	return msg
}

func TestWebSocket_SubscribeAndBroadcast(t *testing.T) {
	apiServer, _, _ := testServer(t)
	hub := apiServer.Hub()
	httpServer := httptest.NewServer(apiServer.buildRouter())
	defer httpServer.Close()

	conn := dialWebSocket(t, httpServer)

	subscribe := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelStateChanged}},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		t.Fatalf("sending subscribe: %v", err)
	}

	response := readMessage(t, conn)
	if response.Type != WSTypeResponse || response.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v", response)
	}

	// Broadcast retries until the subscription has registered; the
	// subscribe response above already ordered it, so one send suffices.
	hub.Broadcast(ChannelStateChanged, map[string]any{
		"device_id": "dev-1",
		"state":     map[string]any{"isOn": 1},
	})

	event := readMessage(t, conn)
	if event.Type != WSTypeEvent || event.EventType != ChannelStateChanged {
		t.Fatalf("event = %+v", event)
	}
	payload, ok := event.Payload.(map[string]any)
	if !ok || payload["device_id"] != "dev-1" {
		t.Errorf("event payload = %v", event.Payload)
	}
}

func TestWebSocket_UnsubscribedChannelsAreSilent(t *testing.T) {
	apiServer, _, _ := testServer(t)
	hub := apiServer.Hub()
	httpServer := httptest.NewServer(apiServer.buildRouter())
	defer httpServer.Close()

	conn := dialWebSocket(t, httpServer)

	subscribe := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelCommandExpired}},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		t.Fatalf("sending subscribe: %v", err)
	}
	readMessage(t, conn) // subscribe response

	hub.Broadcast(ChannelStateChanged, map[string]any{"device_id": "dev-1"})
	hub.Broadcast(ChannelCommandExpired, map[string]any{"command_id": "cmd-1"})

	// Only the expired-command event arrives; the state event was filtered.
	event := readMessage(t, conn)
	if event.EventType != ChannelCommandExpired {
		t.Fatalf("event type = %q, want %q", event.EventType, ChannelCommandExpired)
	}
}

func TestWebSocket_PingMessage(t *testing.T) {
	apiServer, _, _ := testServer(t)
	apiServer.Hub()
	httpServer := httptest.NewServer(apiServer.buildRouter())
	defer httpServer.Close()

	conn := dialWebSocket(t, httpServer)

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("sending ping: %v", err)
	}
	response := readMessage(t, conn)
	if response.Type != WSTypePong || response.ID != "ping-1" {
		t.Fatalf("ping response = %+v", response)
	}
}

func TestWebSocket_MalformedMessage(t *testing.T) {
	apiServer, _, _ := testServer(t)
	apiServer.Hub()
	httpServer := httptest.NewServer(apiServer.buildRouter())
	defer httpServer.Close()

	conn := dialWebSocket(t, httpServer)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("sending malformed message: %v", err)
	}
	response := readMessage(t, conn)
	if response.Type != WSTypeError {
		t.Fatalf("response = %+v, want error", response)
	}
	data, _ := json.Marshal(response.Payload)
	if !strings.Contains(string(data), "invalid JSON") {
		t.Errorf("error payload = %s", data)
	}
}
