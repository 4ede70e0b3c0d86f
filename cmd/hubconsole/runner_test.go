package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/datasteward/hubconsole/internal/config"
	"github.com/datasteward/hubconsole/internal/registry"
)

// testRunner returns a Runner wired to a temp-file registry and defaults.
func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	store, err := registry.Open(filepath.Join(t.TempDir(), "connections.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	out := &bytes.Buffer{}
	r := NewRunner(nil)
	r.cfg = config.Default()
	r.store = store
	r.output = out
	return r, out
}

// run executes a command tree against args, like main does.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "hubconsole",
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"hubconsole"}, args...))
}

func TestConnAddListUse(t *testing.T) {
	r, out := testRunner(t)

	require.NoError(t, run(t, r, "conn", "add", "prod", "https://hub.example.org/"))
	require.NoError(t, run(t, r, "conn", "add", "staging", "http://localhost:7080"))
	require.NoError(t, run(t, r, "conn", "use", "prod"))

	out.Reset()
	require.NoError(t, run(t, r, "conn", "list"))

	listing := out.String()
	assert.Contains(t, listing, "* prod")
	assert.Contains(t, listing, "staging")
	// trailing slash normalized on save
	assert.Contains(t, listing, "https://hub.example.org")
	assert.NotContains(t, listing, "example.org/ ")
}

func TestConnUseUnknown(t *testing.T) {
	r, _ := testRunner(t)
	err := run(t, r, "conn", "use", "nope")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestConnRemove(t *testing.T) {
	r, out := testRunner(t)

	require.NoError(t, run(t, r, "conn", "add", "prod", "https://hub.example.org"))
	require.NoError(t, run(t, r, "conn", "rm", "prod"))
	// removing an absent connection is not an error
	require.NoError(t, run(t, r, "conn", "rm", "prod"))

	out.Reset()
	require.NoError(t, run(t, r, "conn", "list"))
	assert.Empty(t, out.String())
}

func TestReadOnlyGuard(t *testing.T) {
	r, _ := testRunner(t)

	// nothing listens here: a request past the guard fails fast locally
	require.NoError(t, run(t, r, "conn", "add", "prod", "http://127.0.0.1:1"))
	require.NoError(t, run(t, r, "conn", "use", "prod"))
	require.NoError(t, run(t, r, "readonly", "on"))

	err := run(t, r, "source", "dump", "mygene")
	assert.ErrorIs(t, err, ErrReadOnly)

	require.NoError(t, run(t, r, "readonly", "off"))
	// guard passes once read-only is off; the request itself fails later
	err = run(t, r, "source", "dump", "mygene")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrReadOnly))
}

func TestReadOnlyStatus(t *testing.T) {
	r, out := testRunner(t)

	require.NoError(t, run(t, r, "readonly"))
	assert.Contains(t, out.String(), "read-only: off")

	out.Reset()
	require.NoError(t, run(t, r, "readonly", "on"))
	require.NoError(t, run(t, r, "readonly"))
	assert.Contains(t, out.String(), "read-only: on")
}

func TestConfigReadOnlyAlsoGuards(t *testing.T) {
	r, _ := testRunner(t)
	r.cfg.Console.ReadOnly = true

	require.NoError(t, run(t, r, "conn", "add", "prod", "https://hub.example.org"))
	require.NoError(t, run(t, r, "conn", "use", "prod"))

	err := run(t, r, "build", "new", "mygene_conf")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestNoConnectionSelected(t *testing.T) {
	r, _ := testRunner(t)
	err := run(t, r, "status")
	assert.ErrorIs(t, err, errNoConnection)
}
