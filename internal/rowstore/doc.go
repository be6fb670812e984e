// Package rowstore defines the contract between the log store and the
// database engines that hold its rows.
//
// An engine executes compiled statements and returns rows as column-name to
// value maps. Engines live in subpackages (sqlite, cql). Instrument wraps any
// engine with the per-call deadline, error classification, Prometheus
// metrics and OpenTelemetry spans every caller relies on.
//
// # Errors
//
//   - ErrNoRows: QueryRow matched nothing. Passed through unchanged.
//   - ErrTimeout: the call exceeded its deadline.
//   - ErrUnavailable: any other engine failure. The cause stays wrapped.
package rowstore
