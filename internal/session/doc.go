// Package session implements the Realtime Session Manager.
//
// The session:
//   - Probes the backend's /ws/info capability endpoint before connecting
//   - Holds exactly one WebSocket channel to the active connection's /ws
//   - Sends {"op":"ping"} heartbeats on an adaptive interval
//   - Treats a second tick with an unanswered ping as a dead link
//   - Forwards every inbound message to the event dispatcher
//
// Reconnection is caller-initiated; a closed session never redials itself.
package session
