package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/datasteward/hubconsole/internal/version"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("HUBCONSOLE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	runner := NewRunner(logger)
	defer runner.close()

	app := &cli.Command{
		Name:    "hubconsole",
		Usage:   "Console for BioThings Hub backends: connections, resources, live events",
		Version:  version.String(),
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error("command failed", "error", err)
		runner.close()
		os.Exit(1)
	}
}
