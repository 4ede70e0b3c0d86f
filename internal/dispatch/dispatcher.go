package dispatch

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datasteward/hubconsole/internal/bus"
	"github.com/datasteward/hubconsole/internal/model"
)

// Stats contains dispatcher counters.
type Stats struct {
	Received   int64
	Dispatched int64
	Alerts     int64
	Dropped    int64
}

// Dispatcher decodes inbound realtime messages and republishes them on the
// topic bus: entity changes on "change_<obj>", structured alerts on "alert".
// Everything else is dropped. Dispatch is synchronous and performs no I/O.
type Dispatcher struct {
	bus    *bus.Bus
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Dispatcher publishing on b.
func New(b *bus.Bus, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		bus:    b,
		logger: logger,
	}
}

// Dispatch classifies one raw message. Malformed payloads are dropped,
// never fatal.
func (d *Dispatcher) Dispatch(raw []byte) {
	receivedAt := time.Now()

	d.mu.Lock()
	d.stats.Received++
	d.mu.Unlock()

	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.logger.Debug("undecodable realtime message", "error", err)
		d.drop()
		return
	}

	if env.Obj != "" {
		d.bus.Publish(model.Event{
			EventID:    uuid.New(),
			Topic:      model.ChangeTopic(env.Obj),
			ID:         env.ID,
			Op:         env.Op,
			Data:       env.Data,
			ReceivedAt: receivedAt,
		})
		d.mu.Lock()
		d.stats.Dispatched++
		d.mu.Unlock()
		return
	}

	if alert, ok := parseAlert(env.Data, raw); ok {
		d.bus.Publish(model.Event{
			EventID:    uuid.New(),
			Topic:      model.TopicAlert,
			Alert:      alert,
			ReceivedAt: receivedAt,
		})
		d.mu.Lock()
		d.stats.Alerts++
		d.mu.Unlock()
		return
	}

	d.drop()
}

// Stats returns a copy of the current counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Dispatcher) drop() {
	d.mu.Lock()
	d.stats.Dropped++
	d.mu.Unlock()
}

// parseAlert tries to interpret the envelope data (a JSON-encoded string or
// an inline object), or failing that the whole message, as a structured
// alert. Parse failures are swallowed.
func parseAlert(data json.RawMessage, raw []byte) (*model.Alert, bool) {
	candidates := make([][]byte, 0, 2)
	if len(data) > 0 {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			candidates = append(candidates, []byte(s))
		} else {
			candidates = append(candidates, data)
		}
	}
	candidates = append(candidates, raw)

	for _, c := range candidates {
		var a model.Alert
		if err := json.Unmarshal(c, &a); err != nil {
			continue
		}
		if a.Type == "alert" {
			return &a, true
		}
	}
	return nil, false
}
