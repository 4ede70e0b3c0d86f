package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for unknown connection names.
var ErrNotFound = errors.New("connection not found")

// Connection is a named, persisted reference to a Hub backend endpoint.
type Connection struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Icon    string `json:"icon,omitempty"`
	Version string `json:"version,omitempty"`
}

// Store persists Connection records and console settings in SQLite.
// All operations are synchronous local reads/writes.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS connections (
	name    TEXT PRIMARY KEY,
	url     TEXT NOT NULL,
	icon    TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	settingLastConnection = "last_connection"
	settingReadOnly       = "read_only"
)

// Open opens (and if needed creates) the registry database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping registry: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate registry: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all known connections keyed by name.
func (s *Store) List() (map[string]Connection, error) {
	rows, err := s.db.Query(`SELECT name, url, icon, version FROM connections`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Connection)
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.Name, &c.URL, &c.Icon, &c.Version); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out[c.Name] = c
	}
	return out, rows.Err()
}

// Get returns the connection with the given name, or ErrNotFound.
func (s *Store) Get(name string) (Connection, error) {
	var c Connection
	err := s.db.QueryRow(
		`SELECT name, url, icon, version FROM connections WHERE name = ?`, name,
	).Scan(&c.Name, &c.URL, &c.Icon, &c.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	if err != nil {
		return Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return c, nil
}

// Upsert inserts or overwrites a connection by name. The base URL is stored
// without a trailing slash.
func (s *Store) Upsert(c Connection) error {
	if c.Name == "" {
		return errors.New("connection name is required")
	}
	if c.URL == "" {
		return errors.New("connection url is required")
	}
	c.URL = strings.TrimRight(c.URL, "/")

	_, err := s.db.Exec(`
		INSERT INTO connections (name, url, icon, version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET url = excluded.url, icon = excluded.icon, version = excluded.version
	`, c.Name, c.URL, c.Icon, c.Version)
	if err != nil {
		return fmt.Errorf("upsert connection: %w", err)
	}
	return nil
}

// Remove deletes a connection if present. Removing an unknown name is not
// an error.
func (s *Store) Remove(name string) error {
	if _, err := s.db.Exec(`DELETE FROM connections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	return nil
}

// SetLast records the most recently activated connection.
func (s *Store) SetLast(name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	return s.setSetting(settingLastConnection, name)
}

// GetLast returns the most recently activated connection, or nil if none is
// recorded (or the recorded one has since been removed).
func (s *Store) GetLast() (*Connection, error) {
	name, ok, err := s.getSetting(settingLastConnection)
	if err != nil || !ok {
		return nil, err
	}

	c, err := s.Get(name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ReadOnly reports whether the console is in read-only mode.
func (s *Store) ReadOnly() (bool, error) {
	v, ok, err := s.getSetting(settingReadOnly)
	if err != nil {
		return false, err
	}
	return ok && v == "true", nil
}

// SetReadOnly toggles read-only mode.
func (s *Store) SetReadOnly(readOnly bool) error {
	v := "false"
	if readOnly {
		v = "true"
	}
	return s.setSetting(settingReadOnly, v)
}

func (s *Store) setSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) getSetting(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}
