// Package querysql compiles queryir statements to parameterized query text.
//
// Two dialects are supported: SQLite SQL for the embedded engine and CQL for
// ScyllaDB/Cassandra. Both use ? placeholders; values are never interpolated.
// Columns are emitted in the order the statement lists them, so compiled
// text is deterministic and golden-tested.
package querysql
