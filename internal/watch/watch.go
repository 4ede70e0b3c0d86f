package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/datasteward/hubconsole/internal/api"
	"github.com/datasteward/hubconsole/internal/bus"
	"github.com/datasteward/hubconsole/internal/model"
)

// entityPaths maps watched entities to the REST resource re-fetched when a
// change event for that entity arrives.
var entityPaths = map[string]string{
	"source":       "/sources",
	"build":        "/builds",
	"build_config": "/build_configs",
	"index":        "/indexes",
	"release":      "/releases",
	"command":      "/commands",
	"hub":          "/status",
}

// RefreshFunc receives the freshly fetched resource payload for an entity.
type RefreshFunc func(entity string, payload json.RawMessage)

// Config holds watcher settings.
type Config struct {
	// Entities to watch (source, build, ...). Unknown names are skipped
	// with a warning.
	Entities []string

	// RefreshInterval for the periodic full re-fetch of every entity,
	// independent of change events.
	RefreshInterval time.Duration

	// Concurrency bounds simultaneous REST calls.
	Concurrency int64

	// FetchTimeout bounds each REST call.
	FetchTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 5 * time.Minute,
		Concurrency:     4,
		FetchTimeout:    30 * time.Second,
	}
}

// Manager subscribes one watcher per entity on the topic bus. A change
// event triggers a re-fetch of that entity's resource; a periodic ticker
// re-fetches everything. Bus handlers only spawn: fetching happens off the
// dispatch path.
type Manager struct {
	cfg     Config
	client  *api.Client
	refresh RefreshFunc
	logger  *slog.Logger

	sem  *semaphore.Weighted
	subs []*bus.Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager re-fetching through client. refresh may be
// nil, in which case fetched payloads are summarized to the log.
func NewManager(cfg Config, client *api.Client, refresh RefreshFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}

	m := &Manager{
		cfg:     cfg,
		client:  client,
		refresh: refresh,
		logger:  logger,
		sem:     semaphore.NewWeighted(cfg.Concurrency),
	}
	if m.refresh == nil {
		m.refresh = m.logRefresh
	}
	return m
}

// Start subscribes the watchers and begins the periodic refresh.
func (m *Manager) Start(ctx context.Context, b *bus.Bus) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	for _, entity := range m.cfg.Entities {
		path, ok := entityPaths[entity]
		if !ok {
			m.logger.Warn("unknown watch entity, skipping", "entity", entity)
			continue
		}
		sub := b.Subscribe(model.ChangeTopic(entity), func(evt model.Event) {
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.fetch(entity, path)
			}()
		})
		m.subs = append(m.subs, sub)
	}

	m.wg.Add(1)
	go m.refreshLoop()

	m.logger.Info("watchers started",
		"entities", m.cfg.Entities,
		"refresh_interval", m.cfg.RefreshInterval,
	)
	return nil
}

// Stop cancels all subscriptions and waits for in-flight fetches. No
// subscription outlives the manager.
func (m *Manager) Stop(ctx context.Context) error {
	for _, sub := range m.subs {
		sub.Cancel()
	}
	m.subs = nil

	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("watcher stop timed out")
	}
	return nil
}

// RefreshAll re-fetches every watched entity immediately.
func (m *Manager) RefreshAll() {
	for _, entity := range m.cfg.Entities {
		path, ok := entityPaths[entity]
		if !ok {
			continue
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.fetch(entity, path)
		}()
	}
}

func (m *Manager) refreshLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.RefreshAll()
		}
	}
}

func (m *Manager) fetch(entity, path string) {
	if err := m.sem.Acquire(m.ctx, 1); err != nil {
		return
	}
	defer m.sem.Release(1)

	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.FetchTimeout)
	defer cancel()

	payload, err := m.client.GetRaw(ctx, path)
	if err != nil {
		m.logger.Warn("re-fetch failed", "entity", entity, "error", err)
		return
	}

	m.refresh(entity, payload)
}

func (m *Manager) logRefresh(entity string, payload json.RawMessage) {
	m.logger.Info("entity refreshed", "entity", entity, "bytes", len(payload))
}
