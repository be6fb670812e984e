package rowstore

import (
	"context"
	"errors"

	"github.com/roach88/logbase/internal/querysql"
)

var (
	// ErrNoRows is returned by QueryRow when no row matches.
	ErrNoRows = errors.New("rowstore: no rows")

	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("rowstore: timeout")

	// ErrUnavailable wraps engine failures other than timeouts.
	ErrUnavailable = errors.New("rowstore: unavailable")
)

// Row maps column names to the values the engine decoded.
type Row map[string]any

// Store executes compiled statements against one table family.
//
// Thread-safety: implementations are safe for concurrent use.
type Store interface {
	// Dialect selects the compiler for statements sent to this store.
	Dialect() querysql.Dialect

	Exec(ctx context.Context, stmt string, params []any) error

	// QueryRow returns the first matching row, or ErrNoRows.
	QueryRow(ctx context.Context, stmt string, params []any) (Row, error)

	// Query returns every matching row. The engine releases its cursor
	// before returning, including on cancellation.
	Query(ctx context.Context, stmt string, params []any) ([]Row, error)

	Close() error
}
