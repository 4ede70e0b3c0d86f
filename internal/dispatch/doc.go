// Package dispatch turns raw Hub event-feed messages into topic bus events.
package dispatch
