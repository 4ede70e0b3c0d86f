// Package archive persists dispatched Hub events into PostgreSQL as an
// audit trail. Writes are batched; duplicate event ids are ignored.
package archive
