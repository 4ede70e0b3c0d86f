package archive

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/datasteward/hubconsole/internal/model"
)

func TestRowFromChangeEvent(t *testing.T) {
	id := uuid.New()
	receivedAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	evt := model.Event{
		EventID:    id,
		Topic:      "change_build",
		ID:         "b1",
		Op:         "update",
		Data:       json.RawMessage(`{"status":"success"}`),
		ReceivedAt: receivedAt,
	}

	row := rowFromEvent(evt)

	if row.EventID != id {
		t.Errorf("EventID = %v, want %v", row.EventID, id)
	}
	if row.Topic != "change_build" {
		t.Errorf("Topic = %q, want change_build", row.Topic)
	}
	if row.EntityID != "b1" {
		t.Errorf("EntityID = %q, want b1", row.EntityID)
	}
	if row.Op != "update" {
		t.Errorf("Op = %q, want update", row.Op)
	}
	if string(row.Payload) != `{"status":"success"}` {
		t.Errorf("Payload = %s, want data payload", row.Payload)
	}
	if !row.ReceivedAt.Equal(receivedAt) {
		t.Errorf("ReceivedAt = %v, want %v", row.ReceivedAt, receivedAt)
	}
}

func TestRowFromAlertEvent(t *testing.T) {
	evt := model.Event{
		EventID:    uuid.New(),
		Topic:      model.TopicAlert,
		Alert:      &model.Alert{Type: "alert", Event: "hub_stop", Msg: "Lost connection"},
		ReceivedAt: time.Now(),
	}

	row := rowFromEvent(evt)

	var decoded model.Alert
	if err := json.Unmarshal(row.Payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Event != "hub_stop" {
		t.Errorf("payload event = %q, want hub_stop", decoded.Event)
	}
}

func TestRowFromEmptyEvent(t *testing.T) {
	row := rowFromEvent(model.Event{EventID: uuid.New(), Topic: "change_hub"})
	if row.Payload != nil {
		t.Errorf("Payload = %s, want nil for event without data", row.Payload)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 1
	a := New(cfg, nil, nil)

	// No consumer running: the second enqueue must drop, not block.
	a.enqueue(model.Event{EventID: uuid.New(), Topic: "change_build"})

	done := make(chan struct{})
	go func() {
		a.enqueue(model.Event{EventID: uuid.New(), Topic: "change_build"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}

	if a.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", a.Stats().Dropped)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", cfg.BatchSize)
	}
	if cfg.FlushInterval != time.Second {
		t.Errorf("FlushInterval = %v, want 1s", cfg.FlushInterval)
	}
	if cfg.BufferSize != 5000 {
		t.Errorf("BufferSize = %d, want 5000", cfg.BufferSize)
	}
}
