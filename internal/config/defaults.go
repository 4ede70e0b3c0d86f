package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultHeartbeatBase    = 10 * time.Second
	DefaultProbeTimeout     = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultRefreshInterval  = 5 * time.Minute
	DefaultWatchConcurrency = 4
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultBatchSize        = 500
	DefaultFlushInterval    = 1 * time.Second
	DefaultBufferSize       = 5000
)

// DefaultEntities are the Hub entities watched when none are configured.
var DefaultEntities = []string{"source", "build", "build_config", "command"}

func (c *Config) applyDefaults() {
	if c.Console.RegistryPath == "" {
		c.Console.RegistryPath = defaultRegistryPath()
	}

	if c.Session.HeartbeatBase == 0 {
		c.Session.HeartbeatBase = DefaultHeartbeatBase
	}
	if c.Session.ProbeTimeout == 0 {
		c.Session.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Session.HandshakeTimeout == 0 {
		c.Session.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Session.WriteTimeout == 0 {
		c.Session.WriteTimeout = DefaultWriteTimeout
	}

	if len(c.Watch.Entities) == 0 {
		c.Watch.Entities = append([]string(nil), DefaultEntities...)
	}
	if c.Watch.RefreshInterval == 0 {
		c.Watch.RefreshInterval = DefaultRefreshInterval
	}
	if c.Watch.Concurrency == 0 {
		c.Watch.Concurrency = DefaultWatchConcurrency
	}

	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Archive.Postgres)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func defaultRegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "connections.db"
	}
	return filepath.Join(home, ".hubconsole", "connections.db")
}
