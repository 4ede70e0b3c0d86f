package config

import "time"

// Config is the root configuration for the hub console.
type Config struct {
	Console ConsoleConfig `yaml:"console"`
	Session SessionConfig `yaml:"session"`
	Watch   WatchConfig   `yaml:"watch"`
	Archive ArchiveConfig `yaml:"archive"`
}

// ConsoleConfig holds local console state settings.
type ConsoleConfig struct {
	// RegistryPath is the SQLite file holding known Hub connections.
	RegistryPath string `yaml:"registry_path"`

	// ReadOnly disables all mutating Hub operations.
	ReadOnly bool `yaml:"read_only"`
}

// SessionConfig holds realtime session tuning.
type SessionConfig struct {
	HeartbeatBase    time.Duration `yaml:"heartbeat_base"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// WatchConfig holds entity watcher settings.
type WatchConfig struct {
	// Entities to watch for change events (source, build, ...).
	Entities []string `yaml:"entities"`

	// RefreshInterval for the periodic full re-fetch.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Concurrency bounds simultaneous REST re-fetches.
	Concurrency int `yaml:"concurrency"`
}

// ArchiveConfig holds event archive settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Postgres      DBConfig      `yaml:"postgres"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
