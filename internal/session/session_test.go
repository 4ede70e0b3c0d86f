package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/datasteward/hubconsole/internal/bus"
	"github.com/datasteward/hubconsole/internal/dispatch"
	"github.com/datasteward/hubconsole/internal/model"
	"github.com/datasteward/hubconsole/internal/registry"
)

// mockHub serves the capability probe at /ws/info and upgrades /ws,
// handing the channel to handler.
func mockHub(t *testing.T, probeStatus int, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/info", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(probeStatus)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		if handler != nil {
			handler(conn)
		}
	})

	return httptest.NewServer(mux)
}

func newTestSession(base time.Duration) (*Session, *bus.Bus) {
	b := bus.New(nil)
	d := dispatch.New(b, nil)
	s := New(Config{
		HeartbeatBase:    base,
		ProbeTimeout:     time.Second,
		HandshakeTimeout: time.Second,
		WriteTimeout:     time.Second,
	}, d, nil)
	return s, b
}

// echoEnvelope keeps the channel open and answers every ping with a hub
// change envelope, like a live backend.
func echoEnvelope(conn *websocket.Conn) {
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"obj":"hub"}`)); err != nil {
			return
		}
	}
}

func TestOpenAndClose(t *testing.T) {
	server := mockHub(t, http.StatusOK, echoEnvelope)
	defer server.Close()

	s, _ := newTestSession(time.Second)

	if err := s.Open(context.Background(), registry.Connection{Name: "local", URL: server.URL}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !s.Connected() {
		t.Error("Connected() = false after Open")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if s.Connected() {
		t.Error("Connected() = true after Close")
	}

	// Idempotent: a second Close observes the same state.
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if s.Connected() {
		t.Error("Connected() = true after second Close")
	}
}

func TestOpenProbeFailure(t *testing.T) {
	server := mockHub(t, http.StatusNotFound, nil)
	defer server.Close()

	s, _ := newTestSession(time.Second)

	err := s.Open(context.Background(), registry.Connection{Name: "local", URL: server.URL})
	if !errors.Is(err, ErrProbeFailed) {
		t.Fatalf("Open error = %v, want ErrProbeFailed", err)
	}
	if s.Connected() {
		t.Error("Connected() = true after failed probe")
	}
}

func TestOpenProbeUnreachable(t *testing.T) {
	s, _ := newTestSession(time.Second)

	err := s.Open(context.Background(), registry.Connection{Name: "local", URL: "http://127.0.0.1:1"})
	if !errors.Is(err, ErrProbeFailed) {
		t.Fatalf("Open error = %v, want ErrProbeFailed", err)
	}
	if s.Connected() {
		t.Error("Connected() = true after unreachable probe")
	}
}

func TestOpenWhileOpen(t *testing.T) {
	server := mockHub(t, http.StatusOK, echoEnvelope)
	defer server.Close()

	s, _ := newTestSession(time.Second)
	conn := registry.Connection{Name: "local", URL: server.URL}

	if err := s.Open(context.Background(), conn); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Open(context.Background(), conn); !errors.Is(err, ErrSessionOpen) {
		t.Errorf("second Open error = %v, want ErrSessionOpen", err)
	}
}

func TestHeartbeatDeadLink(t *testing.T) {
	var mu sync.Mutex
	pings := 0

	// Answers the probe, accepts the channel, then never replies.
	server := mockHub(t, http.StatusOK, func(conn *websocket.Conn) {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			pings++
			mu.Unlock()
		}
	})
	defer server.Close()

	s, _ := newTestSession(40 * time.Millisecond)

	if err := s.Open(context.Background(), registry.Connection{Name: "local", URL: server.URL}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// The first tick finds the initial ping unanswered and closes; the
	// caller does nothing beyond Open.
	deadline := time.Now().Add(2 * time.Second)
	for s.Connected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if s.Connected() {
		t.Fatal("session still connected, want heartbeat-timeout close")
	}

	time.Sleep(100 * time.Millisecond) // a zombie timer would fire in here

	mu.Lock()
	defer mu.Unlock()
	if pings != 1 {
		t.Errorf("server received %d pings, want exactly 1 (never two in flight)", pings)
	}
}

func TestLatencyAndDispatch(t *testing.T) {
	server := mockHub(t, http.StatusOK, echoEnvelope)
	defer server.Close()

	s, b := newTestSession(time.Second)

	var mu sync.Mutex
	var events []model.Event
	sub := b.Subscribe("change_hub", func(evt model.Event) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})
	defer sub.Cancel()

	if err := s.Open(context.Background(), registry.Connection{Name: "local", URL: server.URL}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	// The initial ping is echoed back as a hub envelope.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	n := len(events)
	mu.Unlock()
	if n == 0 {
		t.Fatal("no change_hub event dispatched")
	}

	ms, ok := s.LatencyMs()
	if !ok {
		t.Fatal("LatencyMs() ok = false after a round trip")
	}
	if ms <= 0 {
		t.Errorf("LatencyMs() = %v, want > 0", ms)
	}
	if q := s.Quality(); q == QualityUnknown {
		t.Error("Quality() = unknown after a round trip")
	}
}

func TestReopenAfterClose(t *testing.T) {
	server := mockHub(t, http.StatusOK, echoEnvelope)
	defer server.Close()

	s, _ := newTestSession(time.Second)
	conn := registry.Connection{Name: "local", URL: server.URL}

	if err := s.Open(context.Background(), conn); err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	s.Close()

	if err := s.Open(context.Background(), conn); err != nil {
		t.Fatalf("re-Open failed: %v", err)
	}
	defer s.Close()

	if !s.Connected() {
		t.Error("Connected() = false after re-Open")
	}
	if _, ok := s.LatencyMs(); ok {
		t.Error("LatencyMs() carried over from previous session")
	}
}

func TestOnConnectCallback(t *testing.T) {
	server := mockHub(t, http.StatusOK, echoEnvelope)
	defer server.Close()

	b := bus.New(nil)
	d := dispatch.New(b, nil)

	var mu sync.Mutex
	var switched []string
	s := New(Config{
		HeartbeatBase: time.Second,
		OnConnect: func(conn registry.Connection) {
			mu.Lock()
			switched = append(switched, conn.Name)
			mu.Unlock()
		},
	}, d, nil)

	if err := s.Open(context.Background(), registry.Connection{Name: "staging", URL: server.URL}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(switched) != 1 || switched[0] != "staging" {
		t.Errorf("OnConnect calls = %v, want [staging]", switched)
	}
}

func TestOnDisconnectCallback(t *testing.T) {
	// Answers the probe, accepts the channel, then never replies: the
	// heartbeat declares the link dead.
	server := mockHub(t, http.StatusOK, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	b := bus.New(nil)
	d := dispatch.New(b, nil)

	died := make(chan error, 1)
	s := New(Config{
		HeartbeatBase: 40 * time.Millisecond,
		OnDisconnect:  func(cause error) { died <- cause },
	}, d, nil)

	if err := s.Open(context.Background(), registry.Connection{Name: "local", URL: server.URL}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	select {
	case cause := <-died:
		if cause == nil {
			t.Error("OnDisconnect cause = nil, want heartbeat error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect never fired")
	}
}

func TestCloseDoesNotFireOnDisconnect(t *testing.T) {
	server := mockHub(t, http.StatusOK, echoEnvelope)
	defer server.Close()

	b := bus.New(nil)
	d := dispatch.New(b, nil)

	died := make(chan error, 1)
	s := New(Config{
		HeartbeatBase: time.Second,
		OnDisconnect:  func(cause error) { died <- cause },
	}, d, nil)

	if err := s.Open(context.Background(), registry.Connection{Name: "local", URL: server.URL}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	select {
	case <-died:
		t.Error("OnDisconnect fired on caller-initiated Close")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRealtimeURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:7080", "ws://localhost:7080/ws"},
		{"http://localhost:7080/", "ws://localhost:7080/ws"},
		{"https://hub.example.org", "wss://hub.example.org/ws"},
		{"https://hub.example.org/api", "wss://hub.example.org/api/ws"},
	}

	for _, tt := range tests {
		got, err := realtimeURL(tt.base)
		if err != nil {
			t.Errorf("realtimeURL(%q) error: %v", tt.base, err)
			continue
		}
		if got != tt.want {
			t.Errorf("realtimeURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}

	if _, err := realtimeURL("ftp://hub"); err == nil {
		t.Error("realtimeURL(ftp) succeeded, want unsupported scheme error")
	}
}

func TestLatencyReflectsRoundTrip(t *testing.T) {
	// The backend delays its reply; measured latency must be at least the
	// injected delay.
	const delay = 30 * time.Millisecond
	server := mockHub(t, http.StatusOK, func(conn *websocket.Conn) {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			time.Sleep(delay)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"obj":"hub"}`)); err != nil {
				return
			}
		}
	})
	defer server.Close()

	s, _ := newTestSession(time.Second)
	if err := s.Open(context.Background(), registry.Connection{Name: "local", URL: server.URL}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.LatencyMs(); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	ms, ok := s.LatencyMs()
	if !ok {
		t.Fatal("no latency sample recorded")
	}
	if ms < float64(delay/time.Millisecond) {
		t.Errorf("LatencyMs() = %v, want >= %v", ms, delay/time.Millisecond)
	}
}
