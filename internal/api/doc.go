// Package api is the REST facade over the Hub backend.
//
// All successful responses arrive wrapped as {"result": <payload>}; the
// facade unwraps them. Non-2xx responses become *APIError and are surfaced
// to the caller unchanged — there is no retry logic, the console shows the
// first failure to the operator.
package api
