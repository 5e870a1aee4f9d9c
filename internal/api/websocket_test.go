package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rushdelivery/rush-core/internal/infrastructure/config"
	"github.com/rushdelivery/rush-core/internal/infrastructure/logging"
	"github.com/rushdelivery/rush-core/internal/tracking"
)

func newTestHub() *Hub {
	return NewHub(config.WebSocketConfig{
		MaxMessageSize: 4096,
		PingInterval:   30,
		PongTimeout:    60,
	}, logging.Default())
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := newTestHub()

	clients := make([]*WSClient, 3)
	for i := range clients {
		clients[i] = NewWSClient(hub, nil)
		hub.Register(clients[i])
	}
	if got := hub.ClientCount(); got != 3 {
		t.Fatalf("ClientCount() = %d, want 3", got)
	}

	hub.Unregister(clients[0])
	if got := hub.ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2 after unregister", got)
	}

	// Unregistering twice must not panic or double-close.
	hub.Unregister(clients[0])
	if got := hub.ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2 after repeat unregister", got)
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := newTestHub()

	first := NewWSClient(hub, nil)
	second := NewWSClient(hub, nil)
	hub.Register(first)
	hub.Register(second)

	hub.Broadcast("parcel_update", map[string]string{"tracking_id": "RUSH123"})

	for i, client := range []*WSClient{first, second} {
		select {
		case payload := <-client.send:
			var frame wsEvent
			if err := json.Unmarshal(payload, &frame); err != nil {
				t.Fatalf("client %d frame unmarshal: %v", i, err)
			}
			if frame.Type != "parcel_update" {
				t.Errorf("client %d frame type = %q, want parcel_update", i, frame.Type)
			}
			if frame.Timestamp == "" {
				t.Errorf("client %d frame missing timestamp", i)
			}
		default:
			t.Fatalf("client %d received no frame", i)
		}
	}
}

func TestHub_HeartbeatCarriesConnectionCount(t *testing.T) {
	hub := newTestHub()

	client := NewWSClient(hub, nil)
	hub.Register(client)

	hub.BroadcastHeartbeat()

	select {
	case payload := <-client.send:
		var frame wsEvent
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("frame unmarshal: %v", err)
		}
		if frame.Type != "heartbeat" {
			t.Errorf("frame type = %q, want heartbeat", frame.Type)
		}
		if frame.ActiveConnections != 1 {
			t.Errorf("active_connections = %d, want 1", frame.ActiveConnections)
		}
	default:
		t.Fatal("no heartbeat frame received")
	}
}

func TestHub_SendAfterDisconnectDoesNotPanic(t *testing.T) {
	hub := newTestHub()

	client := NewWSClient(hub, nil)
	hub.Register(client)

	// A client can unregister between the broadcast snapshot and the
	// send. The send channel is closed by then; the broadcaster must
	// shrug it off, not crash.
	hub.Unregister(client)
	client.trySend([]byte(`{"type":"heartbeat"}`))

	// The heartbeat path must survive the same interleaving.
	stale := NewWSClient(hub, nil)
	hub.Register(stale)
	hub.Unregister(stale)
	hub.BroadcastHeartbeat()
	stale.trySend([]byte(`{}`))
}

func TestHub_CloseDropsEveryClient(t *testing.T) {
	hub := newTestHub()

	client := NewWSClient(hub, nil)
	hub.Register(client)

	hub.Close()
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0 after close", got)
	}
	if _, open := <-client.send; open {
		t.Error("expected client send channel to be closed")
	}

	// Registrations after close are refused.
	late := NewWSClient(hub, nil)
	hub.Register(late)
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0 after late register", got)
	}
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame wsEvent
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return frame
}

func TestWebSocket_NewParcelBroadcast(t *testing.T) {
	server, _, ts := newTestServer(t)

	dashboard := dialWS(t, ts, "/ws/dashboard")

	// Wait for the connection to register before mutating.
	deadline := time.Now().Add(2 * time.Second)
	for server.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/parcels", "", map[string]any{
		"sender":             "Acme Warehouse",
		"receiver":           "Jane Doe",
		"estimated_delivery": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created tracking.Parcel
	decodeBody(t, resp, &created)

	frame := readFrame(t, dashboard)
	if frame.Type != "new_parcel" {
		t.Fatalf("frame type = %q, want new_parcel", frame.Type)
	}

	raw, err := json.Marshal(frame.Data)
	if err != nil {
		t.Fatalf("re-marshal payload: %v", err)
	}
	var payload tracking.Parcel
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TrackingID != created.TrackingID {
		t.Errorf("broadcast tracking ID = %q, want %q", payload.TrackingID, created.TrackingID)
	}
}

func TestWebSocket_UpdateReachesEveryConnection(t *testing.T) {
	server, store, ts := newTestServer(t)

	parcel, err := store.CreateParcel(&tracking.Parcel{
		Sender: "Acme", Receiver: "Jane",
		EstimatedDelivery: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateParcel() error = %v", err)
	}

	dashboard := dialWS(t, ts, "/ws/dashboard")
	tracker := dialWS(t, ts, "/ws/"+parcel.TrackingID)

	deadline := time.Now().Add(2 * time.Second)
	for server.hub.ClientCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("clients never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	status := tracking.StatusOutForDelivery
	if _, err := store.UpdateParcel(parcel.ID, tracking.ParcelPatch{Status: &status}); err != nil {
		t.Fatalf("UpdateParcel() error = %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"dashboard": dashboard, "tracker": tracker} {
		frame := readFrame(t, conn)
		if frame.Type != "parcel_update" {
			t.Errorf("%s frame type = %q, want parcel_update", name, frame.Type)
		}
	}
}

func TestWebSocket_DisconnectShrinksRegistry(t *testing.T) {
	server, _, ts := newTestServer(t)

	dialWS(t, ts, "/ws/dashboard")
	leaver := dialWS(t, ts, "/ws/dashboard")

	deadline := time.Now().Add(2 * time.Second)
	for server.hub.ClientCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("clients never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	leaver.Close()

	deadline = time.Now().Add(2 * time.Second)
	for server.hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want 1 after disconnect", server.hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHeartbeat_SimulatesParcelMovement(t *testing.T) {
	server, store, ts := newTestServer(t)

	parcel, err := store.CreateParcel(&tracking.Parcel{
		Sender: "Acme", Receiver: "Jane",
		EstimatedDelivery: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateParcel() error = %v", err)
	}

	conn := dialWS(t, ts, "/ws/dashboard")

	deadline := time.Now().Add(2 * time.Second)
	for server.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	server.simulateParcelMovement()

	// A simulated tick yields two frames: the store's own change event
	// and the tick's immediate push.
	for i := 0; i < 2; i++ {
		frame := readFrame(t, conn)
		if frame.Type != "parcel_update" {
			t.Fatalf("frame %d type = %q, want parcel_update", i, frame.Type)
		}
	}

	fresh, _ := store.GetParcelByID(parcel.ID)
	if fresh.Status == tracking.StatusProcessing {
		t.Error("expected the simulated tick to advance the parcel status")
	}
	if fresh.Status == tracking.StatusDelivered {
		t.Error("simulation must only draw non-terminal statuses")
	}
}
