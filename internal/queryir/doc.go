// Package queryir provides the statement intermediate representation (IR)
// that sits between the log store and its row-store engines.
//
// The log store describes what it wants to read or write as a Statement;
// package querysql compiles the Statement into the dialect of the engine in
// use (SQLite SQL or CQL). Nothing above the compiler builds query text.
//
//	[logstore] → [Statement IR] → [SQLite SQL]
//	                            → [CQL]
//
// STATEMENTS:
//
//   - Select(from, columns, filter, order, limit) - projected read
//   - Upsert(into, columns, values, key) - full-row write, insert or replace
//   - Update(table, set, filter) - partial write of named columns
//
// PREDICATES:
//
//   - Equals, Less, Greater - column compared to a literal
//   - In - column is one of a literal list
//   - And - conjunction
//
// There is no OR, no joins and no aggregation. Every value travels as a
// bound parameter; the IR never carries query text.
//
// SEALED INTERFACES:
//
// Statement and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package implement them, which keeps the type
// switches in compilers exhaustive:
//
//	switch s := stmt.(type) {
//	case Select:
//	    // Handle select
//	case Upsert:
//	    // Handle upsert
//	case Update:
//	    // Handle update
//	}
//
// WIDE-COLUMN RESTRICTIONS:
//
// A wide-column engine can only filter efficiently on key columns and on
// indexed columns compared for equality. Validate reports statements that
// step outside those limits so the CQL compiler can append ALLOW FILTERING
// and callers can log the broad-scan warning.
package queryir
