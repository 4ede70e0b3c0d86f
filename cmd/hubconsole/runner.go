package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/datasteward/hubconsole/internal/api"
	"github.com/datasteward/hubconsole/internal/config"
	"github.com/datasteward/hubconsole/internal/registry"
)

// ErrReadOnly is returned by mutating commands while read-only mode is on.
var ErrReadOnly = errors.New("console is read-only")

// errNoConnection is returned when no connection is named and none was
// used before.
var errNoConnection = errors.New("no connection selected (run 'conn use <name>' or pass --conn)")

// Runner holds shared dependencies for all CLI commands.
type Runner struct {
	configPath string
	cfg        *config.Config
	store      *registry.Store
	logger     *slog.Logger
	output     io.Writer
}

// NewRunner creates a Runner. The config and registry are opened lazily so
// purely informational commands (version) never touch the filesystem.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, output: os.Stdout}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		connCommand, readonlyCommand, statusCommand, sourceCommand,
		buildCommand, indexCommand, releaseCommand, commandCommand,
		hubConfigCommand, getCommand, watchCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// loadConfig loads the config named by --config, or defaults when the flag
// is unset and no file exists at the default location.
func (r *Runner) loadConfig(cmd *cli.Command) (*config.Config, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}

	path := cmd.String("config")
	if path == "" {
		r.cfg = config.Default()
		return r.cfg, nil
	}

	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg
	r.configPath = path
	return cfg, nil
}

func (r *Runner) openStore(cmd *cli.Command) (*registry.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := registry.Open(cfg.Console.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("opening connection registry: %w", err)
	}
	r.store = store
	return store, nil
}

// resolveConnection picks the connection to talk to: the --conn flag if
// given, otherwise the last-used connection.
func (r *Runner) resolveConnection(cmd *cli.Command) (registry.Connection, error) {
	store, err := r.openStore(cmd)
	if err != nil {
		return registry.Connection{}, err
	}

	if name := cmd.String("conn"); name != "" {
		return store.Get(name)
	}

	last, err := store.GetLast()
	if err != nil {
		return registry.Connection{}, err
	}
	if last == nil {
		return registry.Connection{}, errNoConnection
	}
	return *last, nil
}

// client returns an API client for the resolved connection.
func (r *Runner) client(cmd *cli.Command) (*api.Client, error) {
	conn, err := r.resolveConnection(cmd)
	if err != nil {
		return nil, err
	}
	return api.NewClient(conn.URL, api.WithLogger(r.logger)), nil
}

// guardWrite fails mutating commands while read-only mode is on, either in
// the config or persisted in the registry.
func (r *Runner) guardWrite(cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Console.ReadOnly {
		return ErrReadOnly
	}

	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	readOnly, err := store.ReadOnly()
	if err != nil {
		return err
	}
	if readOnly {
		return ErrReadOnly
	}
	return nil
}

func (r *Runner) close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("closing registry", "error", err)
		}
		r.store = nil
	}
}

func (r *Runner) writeJSON(data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	out = append(out, '\n')
	_, err = r.output.Write(out)
	return err
}

func (r *Runner) writeRaw(payload json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		buf.Reset()
		buf.Write(payload)
	}
	buf.WriteByte('\n')
	_, err := r.output.Write(buf.Bytes())
	return err
}

func (r *Runner) writeln(format string, args ...any) {
	fmt.Fprintf(r.output, format+"\n", args...)
}

// baseFlags are shared by every command that touches config or registry.
func baseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
		},
	}
}

// connFlags additionally select a registered connection by name.
func connFlags() []cli.Flag {
	return append(baseFlags(),
		&cli.StringFlag{
			Name:  "conn",
			Usage: "Connection name (defaults to the last-used connection)",
		},
	)
}
