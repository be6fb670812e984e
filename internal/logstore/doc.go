// Package logstore is the log entry store and its pagination engine.
//
// Store is a stateless façade over a rowstore.Store. Every read and write is
// described as a queryir statement and compiled for the row store's dialect;
// the only process-wide state is the row-store handle and the immutable
// action registry.
//
// # Freeze discipline
//
// An entry is created pending. An update that sets status to success or
// failure freezes it; every later update is rejected with CodeFrozen. The
// guard is a read followed by a write and is not atomic: two concurrent
// updates of a pending entry can both pass the guard, and the last write
// wins.
//
// # Pagination
//
//   - List walks an owner's entries backwards from a cursor, newest first.
//   - ListRecent returns the newest entries of the last few days, optionally
//     restricted to a small set of actions.
package logstore
