// Package bus implements the in-process topic bus.
//
// The dispatcher publishes change and alert events; watchers and the archive
// subscribe. Subscriptions are explicit objects with a Cancel disposer, and
// cancelling during dispatch is safe.
package bus
