package logstore

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/action"
	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/logid"
	"github.com/roach88/logbase/internal/queryir"
	"github.com/roach88/logbase/internal/rowstore"
)

// ListInput selects one page of an owner's entries.
type ListInput struct {
	OwnerID xid.ID
	Fields  []string

	// PageSize defaults to DefaultPageSize; above MaxPageSize is rejected.
	PageSize int

	// Cursor is exclusive. Nil starts from the newest entry.
	Cursor *xid.ID

	// Action restricts the page to one action name.
	Action *string
}

// Page is one page of List results, newest first.
type Page struct {
	Entries []entry.Entry

	// NextCursor is set when the page is full and more entries may follow.
	NextCursor *xid.ID
}

// List returns entries with ids strictly below the cursor, descending.
//
// The projection always includes the primary key. Errors: CodeInvalidField,
// CodeInvalidAction, CodeValidation for a bad page size, and storage
// errors.
func (s *Store) List(ctx context.Context, in ListInput) (Page, error) {
	ctx, span := s.tracer.Start(ctx, "logstore.List")
	defer span.End()

	span.SetAttributes(attribute.String("log.owner_id", in.OwnerID.String()))

	projection, err := entry.ResolveProjection(in.Fields, true)
	if err != nil {
		return Page{}, err
	}

	pageSize := in.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 0 || pageSize > MaxPageSize {
		return Page{}, entry.NewValidationError("page_size",
			fmt.Sprintf("page size %d out of range [1, %d]", in.PageSize, MaxPageSize))
	}

	cursor := logid.Max
	if in.Cursor != nil {
		cursor = *in.Cursor
	}

	preds := []queryir.Predicate{
		queryir.Equals{Field: entry.FieldOwnerID, Value: in.OwnerID.Bytes()},
	}
	if in.Action != nil {
		code, ok := action.Code(*in.Action)
		if !ok {
			return Page{}, entry.NewInvalidActionError(*in.Action)
		}
		preds = append(preds, queryir.Equals{Field: entry.FieldAction, Value: code})
	}
	preds = append(preds, queryir.Less{Field: entry.FieldID, Value: cursor.Bytes()})

	stmt := queryir.Select{
		From:       Table,
		Columns:    projection,
		Filter:     queryir.And{Predicates: preds},
		OrderBy:    entry.FieldID,
		Descending: true,
		Limit:      pageSize,
	}

	entries, err := s.selectEntries(ctx, stmt, projection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list log entries")
		return Page{}, fmt.Errorf("list log entries: %w", err)
	}

	page := Page{Entries: entries}
	if len(entries) == pageSize {
		next := entries[len(entries)-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// ListRecent returns the newest entries created within the recent window,
// descending, at most the configured limit.
//
// actionNames restricts the result to those actions. Unknown names and more
// than MaxRecentActions distinct actions are rejected with CodeValidation.
func (s *Store) ListRecent(ctx context.Context, ownerID xid.ID, fields []string, actionNames []string) ([]entry.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "logstore.ListRecent")
	defer span.End()

	span.SetAttributes(
		attribute.String("log.owner_id", ownerID.String()),
		attribute.StringSlice("log.actions", actionNames),
	)

	projection, err := entry.ResolveProjection(fields, true)
	if err != nil {
		return nil, err
	}

	actionCodes, err := resolveActions(actionNames)
	if err != nil {
		return nil, err
	}

	bound := logid.Floor(s.now().Add(-s.recentWindow))

	preds := []queryir.Predicate{
		queryir.Equals{Field: entry.FieldOwnerID, Value: ownerID.Bytes()},
		queryir.Greater{Field: entry.FieldID, Value: bound.Bytes()},
	}
	if len(actionCodes) > 0 {
		values := make([]any, len(actionCodes))
		for i, c := range actionCodes {
			values[i] = c
		}
		preds = append(preds, queryir.In{Field: entry.FieldAction, Values: values})
	}

	stmt := queryir.Select{
		From:       Table,
		Columns:    projection,
		Filter:     queryir.And{Predicates: preds},
		OrderBy:    entry.FieldID,
		Descending: true,
		Limit:      s.recentLimit,
	}

	if result := queryir.Validate(stmt, Schema); len(result.Warnings) > 0 {
		s.logger.Debug("recent listing needs a filtering scan",
			zap.Stringer("owner_id", ownerID),
			zap.Strings("warnings", result.Warnings))
	}

	entries, err := s.selectEntries(ctx, stmt, projection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list recent log entries")
		return nil, fmt.Errorf("list recent log entries: %w", err)
	}
	return entries, nil
}

// resolveActions maps names to codes, dropping duplicates and keeping first
// occurrence order.
func resolveActions(names []string) ([]int8, error) {
	seen := mapset.NewThreadUnsafeSet[int8]()
	var out []int8
	for _, name := range names {
		code, ok := action.Code(name)
		if !ok {
			return nil, entry.NewValidationError("actions", fmt.Sprintf("invalid action %q", name))
		}
		if seen.Add(code) {
			out = append(out, code)
		}
	}
	if seen.Cardinality() > MaxRecentActions {
		return nil, entry.NewValidationError("actions",
			fmt.Sprintf("too many actions: %d distinct, at most %d", seen.Cardinality(), MaxRecentActions))
	}
	return out, nil
}

func (s *Store) selectEntries(ctx context.Context, stmt queryir.Select, projection []string) ([]entry.Entry, error) {
	rows, err := s.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows, projection)
}

func decodeRows(rows []rowstore.Row, projection []string) ([]entry.Entry, error) {
	entries := make([]entry.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := entry.FromRow(entry.Entry{}, row, projection)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
