package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/datasteward/hubconsole/internal/registry"
)

// connCommand manages the local connection registry.
func connCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "conn",
		Usage: "Manage registered Hub connections",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a Hub backend (or update an existing entry)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "url"},
				},
				Flags: append(baseFlags(),
					&cli.StringFlag{
						Name:  "icon",
						Usage: "Icon URL shown for this connection",
					},
				),
				Action: r.ConnAdd,
			},
			{
				Name:   "list",
				Usage:  "List registered connections",
				Flags:  baseFlags(),
				Action: r.ConnList,
			},
			{
				Name:  "rm",
				Usage: "Remove a registered connection",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  baseFlags(),
				Action: r.ConnRemove,
			},
			{
				Name:  "use",
				Usage: "Set the connection used by default",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  baseFlags(),
				Action: r.ConnUse,
			},
		},
	}
}

// readonlyCommand toggles the persisted read-only mode.
func readonlyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "readonly",
		Usage: "Show or toggle read-only mode (blocks mutating Hub commands)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "mode"},
		},
		Flags:  baseFlags(),
		Action: r.ReadOnly,
	}
}

func (r *Runner) ConnAdd(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	url := cmd.StringArg("url")

	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}

	conn := registry.Connection{
		Name: name,
		URL:  url,
		Icon: cmd.String("icon"),
	}
	if err := store.Upsert(conn); err != nil {
		return err
	}

	r.logger.Info("connection registered", "name", name, "url", conn.URL)
	return nil
}

func (r *Runner) ConnList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}

	conns, err := store.List()
	if err != nil {
		return err
	}

	last, err := store.GetLast()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(conns))
	for name := range conns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		conn := conns[name]
		marker := " "
		if last != nil && last.Name == name {
			marker = "*"
		}
		r.writeln("%s %-20s %s", marker, conn.Name, conn.URL)
	}
	return nil
}

func (r *Runner) ConnRemove(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")

	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}

	if err := store.Remove(name); err != nil {
		return err
	}

	r.logger.Info("connection removed", "name", name)
	return nil
}

func (r *Runner) ConnUse(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")

	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}

	if err := store.SetLast(name); err != nil {
		return err
	}

	r.writeln("using %s", name)
	return nil
}

func (r *Runner) ReadOnly(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}

	switch mode := cmd.StringArg("mode"); mode {
	case "":
		readOnly, err := store.ReadOnly()
		if err != nil {
			return err
		}
		if readOnly || r.cfg.Console.ReadOnly {
			r.writeln("read-only: on")
		} else {
			r.writeln("read-only: off")
		}
		return nil
	case "on":
		return store.SetReadOnly(true)
	case "off":
		return store.SetReadOnly(false)
	default:
		return fmt.Errorf("unknown mode %q (want on or off)", mode)
	}
}
