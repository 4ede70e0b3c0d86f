package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/datasteward/hubconsole/internal/dispatch"
	"github.com/datasteward/hubconsole/internal/registry"
)

var pingPayload = []byte(`{"op":"ping"}`)

// Session owns at most one live realtime channel to the active Hub backend.
// It probes for capability before connecting, keeps the link alive with an
// adaptive heartbeat, and forwards every inbound message to the dispatcher.
//
// There is no automatic reconnect: once the session closes (peer close,
// network drop, or heartbeat death) the caller must Open again.
type Session struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	httpClient *http.Client

	mu           sync.Mutex
	gen          uint64 // bumped on every open/close; stale timers and readers check it
	conn         *websocket.Conn
	current      registry.Connection
	connected    bool
	lastPingSent time.Time // zero: no ping outstanding
	interval     time.Duration
	latency      time.Duration
	hasLatency   bool
	timer        *time.Timer
}

// New creates a disconnected Session.
func New(cfg Config, d *dispatch.Dispatcher, logger *slog.Logger) *Session {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:        cfg,
		dispatcher: d,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
	}
}

// Open probes conn's backend for realtime capability and, on success, opens
// the channel and starts the heartbeat. A probe failure returns an error
// wrapping ErrProbeFailed and leaves the session disconnected with no
// channel opened. Opening while already open returns ErrSessionOpen; close
// the current session first.
func (s *Session) Open(ctx context.Context, conn registry.Connection) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return ErrSessionOpen
	}
	s.mu.Unlock()

	if err := s.probe(ctx, conn.URL); err != nil {
		return fmt.Errorf("%w: %s", ErrProbeFailed, err)
	}

	channelURL, err := realtimeURL(conn.URL)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrProbeFailed, err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, channelURL, nil)
	if err != nil {
		return fmt.Errorf("dial realtime channel: %w", err)
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.conn = ws
	s.current = conn
	s.connected = true
	s.interval = s.cfg.HeartbeatBase
	s.lastPingSent = time.Time{}
	s.hasLatency = false
	s.mu.Unlock()

	go s.readLoop(ws, gen)
	s.heartbeat(gen)

	if s.cfg.OnConnect != nil {
		s.cfg.OnConnect(conn)
	}

	s.logger.Info("realtime session open",
		"connection", conn.Name,
		"url", channelURL,
	)
	return nil
}

// Close tears the session down: the pending heartbeat timer is cancelled,
// the channel is closed, and state transitions to disconnected. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

// Connected reports whether the channel is live.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Connection returns the active connection, if any.
func (s *Session) Connection() (registry.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.connected
}

// LatencyMs returns the last measured heartbeat round trip in milliseconds.
// ok is false until the first round trip of the current session completes.
func (s *Session) LatencyMs() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLatency {
		return 0, false
	}
	return float64(s.latency) / float64(time.Millisecond), true
}

// Quality classifies the current link health.
func (s *Session) Quality() Quality {
	if ms, ok := s.LatencyMs(); ok {
		return Classify(ms)
	}
	return QualityUnknown
}

// probe checks the backend's realtime capability endpoint. Any 2xx means
// realtime is available.
func (s *Session) probe(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	probeURL := strings.TrimRight(base, "/") + "/ws/info"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe status %d", resp.StatusCode)
	}
	return nil
}

// readLoop receives until the channel dies. Any inbound message counts as
// proof of liveness: it settles an outstanding ping (recording the round
// trip) and is forwarded to the dispatcher in arrival order.
func (s *Session) readLoop(ws *websocket.Conn, gen uint64) {
	for {
		_, data, err := ws.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			s.closeGen(gen, err)
			return
		}

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		if !s.lastPingSent.IsZero() {
			s.latency = receivedAt.Sub(s.lastPingSent)
			s.hasLatency = true
			s.lastPingSent = time.Time{}
		}
		s.mu.Unlock()

		s.dispatcher.Dispatch(data)
	}
}

// heartbeat runs once per tick. An unanswered previous ping is proof of a
// dead link: the session closes and no second ping is ever sent. Otherwise
// a ping goes out, the next tick is scheduled at the current interval, and
// the interval grows toward its cap.
func (s *Session) heartbeat(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || !s.connected {
		s.mu.Unlock()
		return
	}

	if !s.lastPingSent.IsZero() {
		name := s.current.Name
		s.mu.Unlock()
		s.logger.Warn("heartbeat unanswered, closing session", "connection", name)
		s.closeGen(gen, errHeartbeatTimeout)
		return
	}

	s.lastPingSent = time.Now()
	ws := s.conn
	wait := s.interval

	next := time.Duration(float64(s.interval) * intervalGrowth)
	if max := s.cfg.HeartbeatBase * intervalCapFactor; next > max {
		next = max
	}
	s.interval = next

	s.timer = time.AfterFunc(wait, func() { s.heartbeat(gen) })
	s.mu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
		s.closeGen(gen, err)
	}
}

// closeGen closes the session only if it is still the given generation,
// so a stale reader or timer cannot tear down a newer session.
func (s *Session) closeGen(gen uint64, cause error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	wasConnected := s.connected
	if wasConnected {
		s.logger.Info("realtime session closed",
			"connection", s.current.Name,
			"cause", cause,
		)
	}
	s.closeLocked()
	s.mu.Unlock()

	if wasConnected && s.cfg.OnDisconnect != nil {
		s.cfg.OnDisconnect(cause)
	}
}

func (s *Session) closeLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.lastPingSent = time.Time{}
	s.connected = false

	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
		s.conn = nil
	}
}

// realtimeURL derives the channel endpoint from a base HTTP URL.
func realtimeURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
