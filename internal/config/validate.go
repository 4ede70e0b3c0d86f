package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Session.HeartbeatBase <= 0 {
		return errors.New("session.heartbeat_base must be > 0")
	}
	if c.Session.ProbeTimeout <= 0 {
		return errors.New("session.probe_timeout must be > 0")
	}

	if c.Watch.Concurrency < 1 {
		return errors.New("watch.concurrency must be >= 1")
	}
	if c.Watch.RefreshInterval <= 0 {
		return errors.New("watch.refresh_interval must be > 0")
	}

	if c.Archive.Enabled {
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
		if err := c.Archive.Postgres.validate("archive.postgres"); err != nil {
			return err
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("%s.port must be between 1 and 65535, got %d", prefix, db.Port)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
