// Package cql is the wide-column row-store engine for ScyllaDB and
// Cassandra, built on gocql.
//
// The log table is partitioned by owner_id and clustered by entry_id in
// descending order, so backward listing is a forward scan of one partition.
// action carries a secondary index; equality on it is served without a
// filtering scan.
package cql

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/roach88/logbase/internal/querysql"
	"github.com/roach88/logbase/internal/rowstore"
)

//go:embed schema.cql
var schemaCQL string

// Config configures the cluster connection.
type Config struct {
	Hosts          []string
	Keyspace       string
	Consistency    string
	Username       string
	Password       string
	Timeout        time.Duration
	ConnectTimeout time.Duration

	// Bootstrap creates the log table and its index when missing.
	Bootstrap bool
}

// Store is a gocql-backed rowstore.Store.
type Store struct {
	session *gocql.Session
}

var _ rowstore.Store = (*Store)(nil)

// Open connects to the cluster and, when cfg.Bootstrap is set, applies the
// embedded schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("open cql: no hosts")
	}
	if cfg.Keyspace == "" {
		return nil, fmt.Errorf("open cql: no keyspace")
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Consistency != "" {
		c, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
		if err != nil {
			return nil, fmt.Errorf("open cql: %w", err)
		}
		cluster.Consistency = c
	} else {
		cluster.Consistency = gocql.LocalQuorum
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("open cql: %w", err)
	}

	s := &Store{session: session}
	if cfg.Bootstrap {
		if err := s.bootstrap(ctx); err != nil {
			session.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	for _, stmt := range splitStatements(schemaCQL) {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.session.Close()
	return nil
}

func (s *Store) Dialect() querysql.Dialect {
	return querysql.CQL
}

func (s *Store) Exec(ctx context.Context, stmt string, params []any) error {
	if err := s.session.Query(stmt, params...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("exec: %w", mapError(err))
	}
	return nil
}

func (s *Store) QueryRow(ctx context.Context, stmt string, params []any) (rowstore.Row, error) {
	row := make(map[string]any)
	if err := s.session.Query(stmt, params...).WithContext(ctx).MapScan(row); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, rowstore.ErrNoRows
		}
		return nil, fmt.Errorf("query row: %w", mapError(err))
	}
	return row, nil
}

// Query collects every row. The iterator is always closed; its error, which
// includes cancellation, is returned.
func (s *Store) Query(ctx context.Context, stmt string, params []any) ([]rowstore.Row, error) {
	iter := s.session.Query(stmt, params...).WithContext(ctx).Iter()

	result := []rowstore.Row{}
	for {
		row := make(map[string]any)
		if !iter.MapScan(row) {
			break
		}
		result = append(result, row)
		if ctx.Err() != nil {
			break
		}
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("iterate: %w", mapError(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return result, nil
}

// mapError marks server and driver timeouts as rowstore.ErrTimeout.
func mapError(err error) error {
	var readTimeout *gocql.RequestErrReadTimeout
	var writeTimeout *gocql.RequestErrWriteTimeout
	switch {
	case errors.Is(err, gocql.ErrTimeoutNoResponse),
		errors.As(err, &readTimeout),
		errors.As(err, &writeTimeout):
		return fmt.Errorf("%w: %w", rowstore.ErrTimeout, err)
	default:
		return err
	}
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
