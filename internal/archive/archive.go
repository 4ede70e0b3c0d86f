package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datasteward/hubconsole/internal/bus"
	"github.com/datasteward/hubconsole/internal/model"
)

// Config holds archiver settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    5000,
	}
}

// Metrics contains archiver counters.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Dropped   int64
	Errors    int64
}

// eventRow is one archived event.
type eventRow struct {
	EventID    uuid.UUID
	Topic      string
	EntityID   string
	Op         string
	Payload    []byte
	ReceivedAt time.Time
}

// Archiver taps the topic bus and persists every dispatched event into the
// hub_events table. Bus handlers only enqueue: batching and writing happen
// on the archiver's own goroutines so dispatch never blocks on the database.
type Archiver struct {
	cfg    Config
	db     *pgxpool.Pool
	logger *slog.Logger

	sub   *bus.Subscription
	input chan eventRow

	batch   []eventRow
	batchMu sync.Mutex

	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

const schema = `
CREATE TABLE IF NOT EXISTS hub_events (
	event_id    UUID PRIMARY KEY,
	topic       TEXT NOT NULL,
	entity_id   TEXT NOT NULL DEFAULT '',
	op          TEXT NOT NULL DEFAULT '',
	payload     JSONB,
	received_at TIMESTAMPTZ NOT NULL
)`

// New creates an Archiver writing to db.
func New(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan eventRow, cfg.BufferSize),
		batch:  make([]eventRow, 0, cfg.BatchSize),
	}
}

// Start ensures the schema, taps the bus, and begins consuming.
func (a *Archiver) Start(ctx context.Context, b *bus.Bus) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if _, err := a.db.Exec(a.ctx, schema); err != nil {
		return err
	}

	a.sub = b.Subscribe(bus.TopicAll, a.enqueue)
	a.flushTicker = time.NewTicker(a.cfg.FlushInterval)

	a.wg.Add(1)
	go a.consumeLoop()

	a.wg.Add(1)
	go a.flushLoop()

	a.logger.Info("event archiver started",
		"batch_size", a.cfg.BatchSize,
		"flush_interval", a.cfg.FlushInterval,
	)
	return nil
}

// Stop detaches from the bus, drains, and writes the final batch.
func (a *Archiver) Stop(ctx context.Context) error {
	a.logger.Info("stopping event archiver")

	if a.sub != nil {
		a.sub.Cancel()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.flushTicker != nil {
		a.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("event archiver stopped")
	case <-ctx.Done():
		a.logger.Warn("event archiver stop timed out")
	}

	a.flush()
	return nil
}

// Stats returns current metrics.
func (a *Archiver) Stats() Metrics {
	a.batchMu.Lock()
	defer a.batchMu.Unlock()
	return a.metrics
}

// enqueue runs on the dispatch path and must not block.
func (a *Archiver) enqueue(evt model.Event) {
	select {
	case a.input <- rowFromEvent(evt):
	default:
		a.batchMu.Lock()
		a.metrics.Dropped++
		a.batchMu.Unlock()
		a.logger.Warn("archive buffer full, dropping event", "topic", evt.Topic)
	}
}

// rowFromEvent converts a bus event into its archive row. Alerts are stored
// with the alert object as payload; change events keep their data payload.
func rowFromEvent(evt model.Event) eventRow {
	var payload []byte
	if evt.Alert != nil {
		payload, _ = json.Marshal(evt.Alert)
	} else if len(evt.Data) > 0 {
		payload = evt.Data
	}

	return eventRow{
		EventID:    evt.EventID,
		Topic:      evt.Topic,
		EntityID:   evt.ID,
		Op:         evt.Op,
		Payload:    payload,
		ReceivedAt: evt.ReceivedAt,
	}
}

// consumeLoop accumulates rows and flushes on batch-size.
func (a *Archiver) consumeLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case row := <-a.input:
			a.batchMu.Lock()
			a.batch = append(a.batch, row)
			shouldFlush := len(a.batch) >= a.cfg.BatchSize
			a.batchMu.Unlock()

			if shouldFlush {
				a.flush()
			}
		}
	}
}

// flushLoop periodically flushes the batch.
func (a *Archiver) flushLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flushTicker.C:
			a.flush()
		}
	}
}

// flush writes the current batch to the database.
func (a *Archiver) flush() {
	a.batchMu.Lock()
	if len(a.batch) == 0 {
		a.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := a.batch
	a.batch = make([]eventRow, 0, a.cfg.BatchSize)
	a.batchMu.Unlock()

	start := time.Now()

	conflicts, err := a.batchInsert(batch)
	if err != nil {
		a.logger.Error("batch insert failed", "error", err, "count", len(batch))
		a.batchMu.Lock()
		a.metrics.Errors++
		a.batchMu.Unlock()
		return
	}

	a.batchMu.Lock()
	a.metrics.Inserts += int64(len(batch) - conflicts)
	a.metrics.Conflicts += int64(conflicts)
	a.metrics.Flushes++
	a.batchMu.Unlock()

	a.logger.Debug("flushed events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (a *Archiver) batchInsert(rows []eventRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO hub_events (event_id, topic, entity_id, op, payload, received_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.Topic, r.EntityID, r.Op, r.Payload, r.ReceivedAt)
	}

	results := a.db.SendBatch(context.Background(), batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
