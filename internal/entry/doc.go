// Package entry defines the audit log row: its fields, the projection rules
// that decide which of them a read materializes, and the typed errors the
// store reports.
//
// # Projection
//
// Reads name the columns they want. ResolveProjection validates the names
// against the full field set and always adds the mandatory fields (action,
// status) and, for listings, the primary key. Optional fields that were not
// projected stay invalid in the returned Entry, so "not requested" and
// "present but zero" remain distinguishable.
//
// # Freeze
//
// An entry whose status is terminal (success or failure) is frozen. The store
// rejects every later update with CodeFrozen.
package entry
