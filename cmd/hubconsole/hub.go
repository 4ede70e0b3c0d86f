package main

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"
)

// statusCommand reports the Hub status document.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show Hub status",
		Flags: connFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := r.client(cmd)
			if err != nil {
				return err
			}
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}
			return r.writeJSON(status)
		},
	}
}

// sourceCommand covers data source operations.
func sourceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "source",
		Usage: "Data source operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List data sources",
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					sources, err := client.ListSources(ctx)
					if err != nil {
						return err
					}
					return r.writeJSON(sources)
				},
			},
			{
				Name:      "get",
				Usage:     "Show one data source",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					source, err := client.GetSource(ctx, cmd.StringArg("name"))
					if err != nil {
						return err
					}
					return r.writeJSON(source)
				},
			},
			{
				Name:      "dump",
				Usage:     "Trigger a dump for a source",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.Dump(ctx, cmd.StringArg("name"))
				},
			},
			{
				Name:      "upload",
				Usage:     "Trigger an upload for a source",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.Upload(ctx, cmd.StringArg("name"))
				},
			},
			{
				Name:      "inspect",
				Usage:     "Trigger a data inspection for a source",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: append(connFlags(),
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Inspection mode",
						Value: "type",
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.Inspect(ctx, cmd.StringArg("name"), cmd.String("mode"))
				},
			},
		},
	}
}

// buildCommand covers build and build-config operations.
func buildCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List builds",
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					builds, err := client.ListBuilds(ctx)
					if err != nil {
						return err
					}
					return r.writeJSON(builds)
				},
			},
			{
				Name:      "get",
				Usage:     "Show one build",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					build, err := client.GetBuild(ctx, cmd.StringArg("id"))
					if err != nil {
						return err
					}
					return r.writeJSON(build)
				},
			},
			{
				Name:  "configs",
				Usage: "List build configurations",
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					configs, err := client.ListBuildConfigs(ctx)
					if err != nil {
						return err
					}
					return r.writeJSON(configs)
				},
			},
			{
				Name:      "new",
				Usage:     "Launch a new build from a build configuration",
				Arguments: []cli.Argument{&cli.StringArg{Name: "conf"}},
				Flags:     connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.NewBuild(ctx, cmd.StringArg("conf"))
				},
			},
			{
				Name:  "diff",
				Usage: "Compute the diff between two builds",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "old"},
					&cli.StringArg{Name: "new"},
				},
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.Diff(ctx, cmd.StringArg("old"), cmd.StringArg("new"))
				},
			},
		},
	}
}

// indexCommand covers index, snapshot and publish operations.
func indexCommand(r *Runner) *cli.Command {
	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "Target environment",
	}
	return &cli.Command{
		Name:  "index",
		Usage: "Index operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List indexes",
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					indexes, err := client.ListIndexes(ctx)
					if err != nil {
						return err
					}
					return r.writeRaw(indexes)
				},
			},
			{
				Name:      "create",
				Usage:     "Index a build",
				Arguments: []cli.Argument{&cli.StringArg{Name: "build"}},
				Flags:     append(connFlags(), envFlag),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.Index(ctx, cmd.StringArg("build"), cmd.String("env"))
				},
			},
			{
				Name:      "snapshot",
				Usage:     "Snapshot a build's index",
				Arguments: []cli.Argument{&cli.StringArg{Name: "build"}},
				Flags:     append(connFlags(), envFlag),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.Snapshot(ctx, cmd.StringArg("build"), cmd.String("env"))
				},
			},
			{
				Name:      "publish",
				Usage:     "Publish a build's snapshot",
				Arguments: []cli.Argument{&cli.StringArg{Name: "build"}},
				Flags:     append(connFlags(), envFlag),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					return client.Publish(ctx, cmd.StringArg("build"), cmd.String("env"))
				},
			},
		},
	}
}

// releaseCommand lists published releases.
func releaseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Release operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List releases",
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					releases, err := client.ListReleases(ctx)
					if err != nil {
						return err
					}
					return r.writeRaw(releases)
				},
			},
		},
	}
}

// commandCommand inspects Hub command executions.
func commandCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "command",
		Usage: "Hub command executions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List launched commands",
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					commands, err := client.ListCommands(ctx)
					if err != nil {
						return err
					}
					return r.writeJSON(commands)
				},
			},
			{
				Name:      "get",
				Usage:     "Show one command execution",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					command, err := client.GetCommand(ctx, cmd.StringArg("id"))
					if err != nil {
						return err
					}
					return r.writeJSON(command)
				},
			},
		},
	}
}

// hubConfigCommand reads and writes the remote Hub configuration.
func hubConfigCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "hubconfig",
		Usage: "Remote Hub configuration",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show the Hub configuration",
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					hubCfg, err := client.HubConfig(ctx)
					if err != nil {
						return err
					}
					return r.writeRaw(hubCfg)
				},
			},
			{
				Name:  "set",
				Usage: "Set one Hub configuration value (value is parsed as JSON)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Flags: connFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := r.guardWrite(cmd); err != nil {
						return err
					}
					client, err := r.client(cmd)
					if err != nil {
						return err
					}
					raw := cmd.StringArg("value")
					var value any
					if err := json.Unmarshal([]byte(raw), &value); err != nil {
						value = raw // not JSON, send as string
					}
					return client.SetHubConfig(ctx, cmd.StringArg("key"), value)
				},
			},
		},
	}
}

// getCommand performs an arbitrary GET against the connected Hub.
func getCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Direct GET against the Hub API, prints the result payload",
		Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
		Flags:     connFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := r.client(cmd)
			if err != nil {
				return err
			}
			payload, err := client.GetRaw(ctx, cmd.StringArg("path"))
			if err != nil {
				return err
			}
			return r.writeRaw(payload)
		},
	}
}
