package logstore

import (
	"context"
	"time"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/logid"
	"github.com/roach88/logbase/internal/queryir"
	"github.com/roach88/logbase/internal/querysql"
	"github.com/roach88/logbase/internal/rowstore"
)

// Table is the row-store table holding log entries.
const Table = "log"

const (
	// DefaultPageSize applies when ListInput.PageSize is zero.
	DefaultPageSize = 10

	// MaxPageSize bounds ListInput.PageSize.
	MaxPageSize = 1000

	// DefaultRecentWindow is how far back ListRecent looks.
	DefaultRecentWindow = 72 * time.Hour

	// DefaultRecentLimit bounds the rows ListRecent returns.
	DefaultRecentLimit = 1000

	// MaxRecentActions bounds the distinct actions one ListRecent may filter on.
	MaxRecentActions = 10

	// DefaultQueryTimeout is the per-query budget of both listing algorithms.
	DefaultQueryTimeout = 3 * time.Second
)

// Schema describes the log table's key and indexes to the compiler.
var Schema = queryir.Schema{
	Key:                  []string{entry.FieldOwnerID, entry.FieldID},
	Indexed:              []string{entry.FieldAction},
	Clustering:           entry.FieldID,
	ClusteringDescending: true,
}

// FrozenCache holds full rows of entries already in a terminal state.
// Frozen rows never change, so a hit is always current.
type FrozenCache interface {
	Get(ctx context.Context, ownerID, id xid.ID) (entry.Entry, bool, error)
	Put(ctx context.Context, e entry.Entry) error
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	IDs          logid.Generator
	Now          func() time.Time
	QueryTimeout time.Duration
	RecentWindow time.Duration
	RecentLimit  int
	Cache        FrozenCache
	Logger       *zap.Logger
	Tracer       trace.Tracer
}

// Store reads and writes log entries.
//
// Thread-safety: safe for concurrent use when the row store is.
type Store struct {
	rows     rowstore.Store
	compiler querysql.Compiler

	ids          logid.Generator
	now          func() time.Time
	recentWindow time.Duration
	recentLimit  int
	cache        FrozenCache
	logger       *zap.Logger
	tracer       trace.Tracer
}

// New creates a Store over rows.
func New(rows rowstore.Store, opts Options) *Store {
	s := &Store{
		rows:         rows,
		ids:          opts.IDs,
		now:          opts.Now,
		recentWindow: opts.RecentWindow,
		recentLimit:  opts.RecentLimit,
		cache:        opts.Cache,
		logger:       opts.Logger,
		tracer:       opts.Tracer,
	}

	if s.now == nil {
		s.now = time.Now
	}
	if s.ids == nil {
		s.ids = logid.XIDGenerator{Now: s.now}
	}
	if s.recentWindow <= 0 {
		s.recentWindow = DefaultRecentWindow
	}
	if s.recentLimit <= 0 {
		s.recentLimit = DefaultRecentLimit
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/roach88/logbase/internal/logstore")
	}

	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	s.compiler = querysql.Compiler{
		Dialect: rows.Dialect(),
		Timeout: timeout,
		Schema:  Schema,
	}

	return s
}

// keyFilter matches exactly one entry.
func keyFilter(ownerID, id xid.ID) queryir.Predicate {
	return queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: entry.FieldOwnerID, Value: ownerID.Bytes()},
		queryir.Equals{Field: entry.FieldID, Value: id.Bytes()},
	}}
}
