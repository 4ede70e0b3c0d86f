// Package model defines shared types flowing between the realtime session,
// the event dispatcher, and downstream consumers (watchers, archive).
//
// Conventions:
//   - Wire field names follow the Hub event feed ("obj", "_id", "op", "data")
//   - Timestamps: local receive time, time.Time
//   - EventID: uuid.UUID assigned at dispatch, used as archive identity
package model
