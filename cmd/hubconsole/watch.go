package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/datasteward/hubconsole/internal/api"
	"github.com/datasteward/hubconsole/internal/archive"
	"github.com/datasteward/hubconsole/internal/bus"
	"github.com/datasteward/hubconsole/internal/database"
	"github.com/datasteward/hubconsole/internal/dispatch"
	"github.com/datasteward/hubconsole/internal/model"
	"github.com/datasteward/hubconsole/internal/session"
	"github.com/datasteward/hubconsole/internal/watch"
)

// watchCommand opens a realtime session and follows Hub events until the
// channel dies or a shutdown signal arrives.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Follow live Hub events over the realtime channel",
		Flags:  connFlags(),
		Action: r.Watch,
	}
}

func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	conn, err := r.resolveConnection(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			r.logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	b := bus.New(r.logger)
	defer b.Close()
	dispatcher := dispatch.New(b, r.logger)

	alertSub := b.Subscribe(model.TopicAlert, func(evt model.Event) {
		if evt.Alert == nil {
			return
		}
		r.logger.Info("hub alert",
			"event", evt.Alert.Event,
			"msg", evt.Alert.Msg,
		)
	})
	defer alertSub.Cancel()

	var logMu sync.Mutex
	changeSub := b.Subscribe(bus.TopicAll, func(evt model.Event) {
		if evt.Topic == model.TopicAlert {
			return
		}
		logMu.Lock()
		defer logMu.Unlock()
		r.writeln("%s  %-20s %-10s %s",
			evt.ReceivedAt.Format(time.TimeOnly), evt.Topic, evt.Op, evt.ID)
	})
	defer changeSub.Cancel()

	client := api.NewClient(conn.URL, api.WithLogger(r.logger))

	manager := watch.NewManager(watch.Config{
		Entities:        cfg.Watch.Entities,
		RefreshInterval: cfg.Watch.RefreshInterval,
		Concurrency:     int64(cfg.Watch.Concurrency),
	}, client, nil, r.logger)
	if err := manager.Start(ctx, b); err != nil {
		return err
	}

	if cfg.Archive.Enabled {
		pool, err := database.Connect(ctx, cfg.Archive.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		archiver := archive.New(archive.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}, pool, r.logger)
		if err := archiver.Start(ctx, b); err != nil {
			return err
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := archiver.Stop(stopCtx); err != nil {
				r.logger.Warn("archiver stop", "error", err)
			}
		}()
	}

	sess := session.New(session.Config{
		HeartbeatBase:    cfg.Session.HeartbeatBase,
		ProbeTimeout:     cfg.Session.ProbeTimeout,
		HandshakeTimeout: cfg.Session.HandshakeTimeout,
		WriteTimeout:     cfg.Session.WriteTimeout,
		OnDisconnect: func(cause error) {
			r.logger.Warn("realtime channel lost, reconnect manually", "cause", cause)
			cancel()
		},
	}, dispatcher, r.logger)

	if err := sess.Open(ctx, conn); err != nil {
		manager.Stop(context.Background())
		return err
	}
	defer sess.Close()

	// Remember this backend for next time.
	if r.store != nil {
		if err := r.store.SetLast(conn.Name); err != nil {
			r.logger.Warn("persisting last connection", "error", err)
		}
	}

	r.logger.Info("watching",
		"connection", conn.Name,
		"entities", cfg.Watch.Entities,
	)

	<-ctx.Done()

	if ms, ok := sess.LatencyMs(); ok {
		q := sess.Quality()
		r.logger.Info("session stats",
			"latency_ms", ms,
			"quality", q.Label,
		)
	}
	stats := dispatcher.Stats()
	r.logger.Info("dispatch stats",
		"received", stats.Received,
		"dispatched", stats.Dispatched,
		"alerts", stats.Alerts,
		"dropped", stats.Dropped,
	)

	sess.Close()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return manager.Stop(stopCtx)
}
