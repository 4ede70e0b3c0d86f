// Package watch re-fetches Hub REST resources in response to change events.
//
// Each watched entity gets one bus subscription; on change_<entity> the
// corresponding list resource is fetched again and handed to the refresh
// callback. A ticker additionally refreshes everything at a fixed interval,
// with concurrency bounded by a weighted semaphore.
package watch
