package logstore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/queryir"
	"github.com/roach88/logbase/internal/rowstore"
)

// GetOne reads the requested fields of one entry; action and status are
// always included. An empty field list reads every field.
//
// Errors: CodeInvalidField for an unknown field, CodeNotFound when no row
// exists, rowstore.ErrTimeout or rowstore.ErrUnavailable from storage.
func (s *Store) GetOne(ctx context.Context, ownerID, id xid.ID, fields []string) (entry.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "logstore.GetOne")
	defer span.End()

	span.SetAttributes(
		attribute.String("log.owner_id", ownerID.String()),
		attribute.String("log.entry_id", id.String()),
	)

	projection, err := entry.ResolveProjection(fields, false)
	if err != nil {
		return entry.Entry{}, err
	}

	if cached, ok := s.cached(ctx, ownerID, id); ok {
		span.SetAttributes(attribute.Bool("log.cache_hit", true))
		return entry.Project(cached, projection), nil
	}

	stmt := queryir.Select{
		From:    Table,
		Columns: projection,
		Filter:  keyFilter(ownerID, id),
		Limit:   1,
	}

	row, err := s.queryRow(ctx, stmt)
	if errors.Is(err, rowstore.ErrNoRows) {
		span.SetStatus(codes.Error, "log entry not found")
		return entry.Entry{}, entry.NewNotFoundError(ownerID, id)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get log entry")
		return entry.Entry{}, fmt.Errorf("get log entry: %w", err)
	}

	e, err := entry.FromRow(entry.Entry{OwnerID: ownerID, ID: id}, row, projection)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("get log entry: %w", err)
	}

	if e.Frozen() && isFullProjection(projection) {
		s.remember(ctx, e)
	}
	return e, nil
}

// cached consults the frozen-entry cache. Cache failures count as misses.
func (s *Store) cached(ctx context.Context, ownerID, id xid.ID) (entry.Entry, bool) {
	if s.cache == nil {
		return entry.Entry{}, false
	}
	e, ok, err := s.cache.Get(ctx, ownerID, id)
	if err != nil {
		s.logger.Warn("frozen cache get failed",
			zap.Stringer("owner_id", ownerID),
			zap.Stringer("entry_id", id),
			zap.Error(err))
		return entry.Entry{}, false
	}
	return e, ok && e.Frozen()
}

func (s *Store) remember(ctx context.Context, e entry.Entry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, e); err != nil {
		s.logger.Warn("frozen cache put failed",
			zap.Stringer("owner_id", e.OwnerID),
			zap.Stringer("entry_id", e.ID),
			zap.Error(err))
	}
}

func isFullProjection(projection []string) bool {
	for _, f := range entry.Fields() {
		if !slices.Contains(projection, f) {
			return false
		}
	}
	return true
}

func (s *Store) exec(ctx context.Context, stmt queryir.Statement) error {
	query, params, err := s.compiler.Compile(stmt)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	return s.rows.Exec(ctx, query, params)
}

func (s *Store) queryRow(ctx context.Context, stmt queryir.Statement) (rowstore.Row, error) {
	query, params, err := s.compiler.Compile(stmt)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return s.rows.QueryRow(ctx, query, params)
}

func (s *Store) query(ctx context.Context, stmt queryir.Statement) ([]rowstore.Row, error) {
	query, params, err := s.compiler.Compile(stmt)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return s.rows.Query(ctx, query, params)
}
