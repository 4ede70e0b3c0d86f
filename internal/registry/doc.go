// Package registry implements the Connection Registry: CRUD over named Hub
// backend endpoints plus console settings (last-used connection, read-only
// mode), persisted in a local SQLite file.
package registry
