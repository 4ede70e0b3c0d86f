package session

import (
	"errors"
	"time"

	"github.com/datasteward/hubconsole/internal/registry"
)

// Errors
var (
	// ErrProbeFailed wraps capability probe failures: the backend has no
	// reachable realtime endpoint, no channel was opened.
	ErrProbeFailed = errors.New("realtime probe failed")

	// ErrSessionOpen is returned by Open while another session is live.
	ErrSessionOpen = errors.New("session already open")

	errHeartbeatTimeout = errors.New("heartbeat unanswered")
)

// Heartbeat cadence relaxes while the link stays healthy, capped at six
// times the base interval.
const (
	intervalGrowth    = 1.2
	intervalCapFactor = 6
)

// Config holds session tuning.
type Config struct {
	// HeartbeatBase is the initial ping interval. The interval grows by
	// intervalGrowth after each ping while the link is healthy.
	HeartbeatBase time.Duration

	// ProbeTimeout bounds the capability probe request.
	ProbeTimeout time.Duration

	// HandshakeTimeout bounds the channel handshake.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound write.
	WriteTimeout time.Duration

	// OnConnect, if set, runs after the channel opens. Used by the console
	// to navigate to the new connection's dashboard on a user-initiated
	// switch.
	OnConnect func(conn registry.Connection)

	// OnDisconnect, if set, runs when a live channel dies unexpectedly
	// (peer close, network drop, unanswered heartbeat). It does not run on
	// a caller-initiated Close.
	OnDisconnect func(cause error)
}

func (c *Config) applyDefaults() {
	if c.HeartbeatBase == 0 {
		c.HeartbeatBase = 10 * time.Second
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
}
