package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is one decoded inbound message from the Hub event feed.
// Entity change notifications carry "obj"; everything else is either a
// structured alert or noise.
type Envelope struct {
	Obj  string          `json:"obj,omitempty"`
	ID   string          `json:"_id,omitempty"`
	Op   string          `json:"op,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Alert is a structured operator notification pushed by the Hub
// (e.g. hub_start, hub_stop).
type Alert struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Msg   string `json:"msg"`
}

// TopicAlert is the bus topic alerts are published on.
const TopicAlert = "alert"

// ChangeTopic returns the bus topic for change notifications on an entity,
// e.g. ChangeTopic("build") == "change_build".
func ChangeTopic(obj string) string {
	return "change_" + obj
}

// Event is a dispatched message as delivered on the topic bus.
type Event struct {
	EventID    uuid.UUID
	Topic      string
	ID         string // entity id, empty when the Hub sent none
	Op         string
	Data       json.RawMessage
	Alert      *Alert // set only on the alert topic
	ReceivedAt time.Time
}
