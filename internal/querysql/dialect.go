package querysql

import (
	"fmt"
	"strings"
)

// Dialect selects the query language a Compiler emits.
type Dialect int

const (
	// SQLite emits SQL understood by SQLite 3.24+ (upsert support).
	SQLite Dialect = iota

	// CQL emits Cassandra Query Language with ScyllaDB's USING TIMEOUT.
	CQL
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case CQL:
		return "cql"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ParseDialect accepts "sqlite" or "cql" (case-insensitive).
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "cql", "scylla", "cassandra":
		return CQL, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q", s)
	}
}
