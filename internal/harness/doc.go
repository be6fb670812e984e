// Package harness runs audit-log scenarios against a log store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: login_then_freeze
//	description: "A login entry is finalized and then rejects updates"
//	start: 2026-10-01T09:00:00Z
//	steps:
//	  - op: create
//	    ref: login
//	    owner: alice
//	    action: user.login
//	    tokens: 1000
//	  - op: update
//	    ref: login
//	    status: 1
//	  - op: update
//	    ref: login
//	    status: 1
//	    expect: { error: frozen }
//	assertions:
//	  - type: final_state
//	    ref: login
//	    expect: { status: 1 }
//
// Owners are aliases; the harness assigns each alias an identifier on first
// use. Refs name created entries so later steps and list results can refer
// to them without knowing generated identifiers.
//
// # Step Ops
//
//   - create: creates an entry for owner and binds it to ref
//   - get: reads ref, optionally projected to fields
//   - update: applies status, tokens, payload and error to ref
//   - list: pages backwards through owner's entries
//   - list_recent: lists owner's entries inside the recent window
//   - advance: moves the clock forward by the given duration
//
// # Assertion Types
//
//   - final_state: reads ref after all steps and checks the expectation
//   - trace_count: counts steps with the given op and outcome
//   - trace_order: checks that "op:ref" events occur in the given order
//
// # Deterministic Execution
//
// Run executes against a fresh in-memory SQLite store with a fake clock
// and sequential identifiers, so traces are identical across runs and can
// be compared with golden files.
package harness
