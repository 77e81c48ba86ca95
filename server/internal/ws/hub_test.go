package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eshopco/latencymetrics/server/internal/telemetry"
	wsHub "github.com/eshopco/latencymetrics/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newStore() *telemetry.Store {
	return telemetry.NewStore([]telemetry.Record{
		{Region: "us-east", LatencyMs: 100, UptimePct: 99.9},
		{Region: "us-east", LatencyMs: 300, UptimePct: 99.5},
		{Region: "eu-west", LatencyMs: 50, UptimePct: 100},
	})
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, st *telemetry.Store) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one message from conn with a short deadline and decodes
// it as a generic envelope.
func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
	return m
}

func subscribe(t *testing.T, conn *websocket.Conn, body string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(body)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func regionData(t *testing.T, m map[string]interface{}, region string) map[string]interface{} {
	t.Helper()
	if m["event"] != "latency" {
		t.Fatalf("event: got %v, want latency (%v)", m["event"], m)
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data: missing or wrong type: %v", m)
	}
	r, ok := data[region].(map[string]interface{})
	if !ok {
		t.Fatalf("data[%s]: missing: %v", region, data)
	}
	return r
}

// --- tests ------------------------------------------------------------------

func TestHub_SubscribeMessage_ReceivesSummary(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL)

	subscribe(t, conn, `{"regions":["us-east"],"threshold_ms":200}`)
	r := regionData(t, readMessage(t, conn), "us-east")

	if r["avg_latency"] != 200.0 || r["p95_latency"] != 290.0 || r["avg_uptime"] != 99.7 || r["breaches"] != 1.0 {
		t.Errorf("us-east summary: got %v", r)
	}
}

func TestHub_QuerySubscription_ImmediateMessage(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL + "?regions=eu-west,nowhere&threshold_ms=10")

	m := readMessage(t, conn)
	if r := regionData(t, m, "eu-west"); r["breaches"] != 1.0 {
		t.Errorf("eu-west breaches: got %v, want 1", r["breaches"])
	}
	if r := regionData(t, m, "nowhere"); r["avg_latency"] != 0.0 {
		t.Errorf("nowhere avg_latency: got %v, want 0", r["avg_latency"])
	}
}

func TestHub_IncompleteQuery_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?regions=us-east"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial: expected handshake failure, got nil")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("handshake response: got %v, want 400", resp)
	}
}

func TestHub_NonFiniteQueryThreshold_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?regions=us-east&threshold_ms=NaN"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial: expected handshake failure, got nil")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("handshake response: got %v, want 400", resp)
	}
}

func TestHub_InvalidMessage_ReturnsErrorAndKeepsSubscription(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL)

	subscribe(t, conn, `{"regions":["us-east"],"threshold_ms":200}`)
	readMessage(t, conn)

	subscribe(t, conn, `{"regions":"us-east","threshold_ms":200}`)

	// Tick broadcasts of the old subscription may arrive before the error.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn)
		if m["event"] == "error" {
			if m["error"] != "`regions` must be a list of strings" {
				t.Errorf("error: got %v", m["error"])
			}
			break
		}
	}

	// The next broadcast still carries the original subscription.
	m := readMessage(t, conn)
	regionData(t, m, "us-east")
}

func TestHub_NullRegionElement_ReturnsError(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL)

	subscribe(t, conn, `{"regions":["us-east",null],"threshold_ms":200}`)
	m := readMessage(t, conn)
	if m["event"] != "error" || m["error"] != "`regions` must be a list of strings" {
		t.Errorf("got %v, want regions error", m)
	}
}

func TestHub_ResubscribeReplacesQuery(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL)

	subscribe(t, conn, `{"regions":["us-east"],"threshold_ms":200}`)
	readMessage(t, conn)

	subscribe(t, conn, `{"regions":["eu-west"],"threshold_ms":0}`)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn)
		data := m["data"].(map[string]interface{})
		if _, ok := data["eu-west"]; ok {
			if _, stale := data["us-east"]; stale {
				t.Errorf("new subscription still carries us-east: %v", data)
			}
			return
		}
	}
	t.Fatal("never received the replacement subscription")
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL + "?regions=us-east&threshold_ms=200")

	first := readMessage(t, conn)
	second := readMessage(t, conn) // next tick

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("tick broadcast differs from initial message:\n%s\n%s", a, b)
	}
}

func TestHub_NoSubscription_NoBroadcast(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL)

	conn.SetReadDeadline(time.Now().Add(5 * testInterval))
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Errorf("unsubscribed client received %s", msg)
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore())

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL + "?regions=us-east&threshold_ms=1")
		readMessage(t, conns[i]) // registered once a message arrives
	}
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}

	conns[0].Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close
	if n := hub.Count(); n != 2 {
		t.Errorf("Count after disconnect: got %d, want 2", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore())

	conn := dial(t, wsURL + "?regions=us-east&threshold_ms=1")
	readMessage(t, conn)

	cancel() // signal shutdown

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers → 400
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
