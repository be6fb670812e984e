package logstore

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/logbase/internal/action"
	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/queryir"
	"github.com/roach88/logbase/internal/querysql"
)

// CreateInput describes a new entry. Action is a registry name.
type CreateInput struct {
	OwnerID  xid.ID
	GroupID  xid.ID
	Action   string
	SourceIP string
	Payload  []byte
	Tokens   int32
}

// UpdateInput describes the upward update operation. Nil pointers leave the
// field unchanged.
type UpdateInput struct {
	OwnerID xid.ID
	ID      xid.ID
	Status  entry.Status
	Payload *[]byte
	Tokens  *int32
	Error   *string
}

// Create writes a new pending entry as a single full-row upsert.
//
// The returned entry has every optional field materialized. Errors:
// CodeInvalidAction for an unknown action name, CodeValidation for negative
// tokens, rowstore.ErrTimeout or rowstore.ErrUnavailable from storage.
func (s *Store) Create(ctx context.Context, in CreateInput) (entry.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "logstore.Create")
	defer span.End()

	code, ok := action.Code(in.Action)
	if !ok {
		return entry.Entry{}, entry.NewInvalidActionError(in.Action)
	}
	if in.Tokens < 0 {
		return entry.Entry{}, entry.NewValidationError(entry.FieldTokens, "tokens must be non-negative")
	}

	payload := in.Payload
	if payload == nil {
		payload = []byte{}
	}

	e := entry.Entry{
		OwnerID:  in.OwnerID,
		ID:       s.ids.Generate(),
		Action:   code,
		Status:   entry.StatusPending,
		GroupID:  entry.Some(in.GroupID),
		SourceIP: entry.Some(norm.NFC.String(in.SourceIP)),
		Payload:  entry.Some(payload),
		Tokens:   entry.Some(in.Tokens),
		Error:    entry.Some(""),
	}

	span.SetAttributes(
		attribute.String("log.owner_id", e.OwnerID.String()),
		attribute.String("log.entry_id", e.ID.String()),
		attribute.String("log.action", in.Action),
	)

	cols := entry.RowColumns(e)
	stmt := queryir.Upsert{
		Into:    Table,
		Columns: cols.Names(),
		Values:  cols.Values(),
		Key:     Schema.Key,
	}

	if err := s.exec(ctx, stmt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create log entry")
		return entry.Entry{}, fmt.Errorf("create log entry: %w", err)
	}

	s.logger.Debug("log entry created",
		zap.Stringer("owner_id", e.OwnerID),
		zap.Stringer("entry_id", e.ID),
		zap.String("action", in.Action))

	return e, nil
}

// UpdateFields writes the given columns of a pending entry.
//
// Column names must be in the mutable allowlist (CodeInvalidField
// otherwise). An existing entry must not be frozen (CodeFrozen, with the
// stored status as the actual value). A missing entry is written with the
// key and the given columns; every other column keeps its zero value. The
// guard read and the write are separate calls; see the package
// documentation.
func (s *Store) UpdateFields(ctx context.Context, ownerID, id xid.ID, cols entry.Columns) error {
	ctx, span := s.tracer.Start(ctx, "logstore.UpdateFields")
	defer span.End()

	span.SetAttributes(
		attribute.String("log.owner_id", ownerID.String()),
		attribute.String("log.entry_id", id.String()),
		attribute.StringSlice("log.fields", cols.Names()),
	)

	if len(cols) == 0 {
		return entry.NewValidationError("", "no fields to update")
	}

	set := make([]queryir.Assignment, 0, len(cols))
	for _, col := range cols {
		if !entry.IsMutable(col.Name) {
			return entry.NewInvalidFieldError(col.Name)
		}
		value, err := normalizeColumn(col.Name, col.Value)
		if err != nil {
			return err
		}
		set = append(set, queryir.Assignment{Column: col.Name, Value: entry.EncodeValue(value)})
	}

	if err := s.guardPending(ctx, ownerID, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update rejected")
		return err
	}

	if err := s.exec(ctx, s.partialWrite(ownerID, id, set)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update log entry")
		return fmt.Errorf("update log entry: %w", err)
	}

	s.logger.Debug("log entry updated",
		zap.Stringer("owner_id", ownerID),
		zap.Stringer("entry_id", id),
		zap.Strings("fields", cols.Names()))

	return nil
}

// Update applies the upward update operation and returns the entry as
// stored afterwards, with every field materialized.
func (s *Store) Update(ctx context.Context, in UpdateInput) (entry.Entry, error) {
	if !in.Status.Valid() {
		return entry.Entry{}, entry.NewValidationError(entry.FieldStatus,
			fmt.Sprintf("invalid status %d: must be -1, 0 or 1", int8(in.Status)))
	}
	if in.Tokens != nil && *in.Tokens < 0 {
		return entry.Entry{}, entry.NewValidationError(entry.FieldTokens, "tokens must be non-negative")
	}

	var cols entry.Columns
	cols.Set(entry.FieldStatus, in.Status)
	if in.Payload != nil {
		cols.Set(entry.FieldPayload, *in.Payload)
	}
	if in.Tokens != nil {
		cols.Set(entry.FieldTokens, *in.Tokens)
	}
	if in.Error != nil {
		cols.Set(entry.FieldError, *in.Error)
	}

	if err := s.UpdateFields(ctx, in.OwnerID, in.ID, cols); err != nil {
		return entry.Entry{}, err
	}
	return s.GetOne(ctx, in.OwnerID, in.ID, nil)
}

// partialWrite writes the key plus set. A CQL UPDATE creates a missing row;
// SQLite needs an upsert whose conflict branch touches only set.
func (s *Store) partialWrite(ownerID, id xid.ID, set []queryir.Assignment) queryir.Statement {
	if s.compiler.Dialect == querysql.CQL {
		return queryir.Update{
			Table:  Table,
			Set:    set,
			Filter: keyFilter(ownerID, id),
		}
	}

	cols := []string{entry.FieldOwnerID, entry.FieldID}
	values := []any{ownerID.Bytes(), id.Bytes()}
	for _, a := range set {
		cols = append(cols, a.Column)
		values = append(values, a.Value)
	}
	return queryir.Upsert{
		Into:    Table,
		Columns: cols,
		Values:  values,
		Key:     Schema.Key,
	}
}

// guardPending rejects updates of frozen entries. A missing entry passes; a
// storage failure during the read rejects the update.
func (s *Store) guardPending(ctx context.Context, ownerID, id xid.ID) error {
	if cached, ok := s.cached(ctx, ownerID, id); ok {
		return entry.NewFrozenError(ownerID, id, cached.Status)
	}

	current, err := s.GetOne(ctx, ownerID, id, []string{entry.FieldStatus})
	if entry.IsCode(err, entry.CodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.Frozen() {
		return entry.NewFrozenError(ownerID, id, current.Status)
	}
	return nil
}

// normalizeColumn checks the Go type and range of an update value and
// applies text normalization.
func normalizeColumn(name string, value any) (any, error) {
	switch name {
	case entry.FieldStatus:
		var st entry.Status
		switch v := value.(type) {
		case entry.Status:
			st = v
		case int8:
			st = entry.Status(v)
		default:
			return nil, typeError(name, value)
		}
		if !st.Valid() {
			return nil, entry.NewValidationError(name, fmt.Sprintf("invalid status %d: must be -1, 0 or 1", int8(st)))
		}
		return st, nil

	case entry.FieldAction:
		switch v := value.(type) {
		case string:
			code, ok := action.Code(v)
			if !ok {
				return nil, entry.NewInvalidActionError(v)
			}
			return code, nil
		case int8:
			if action.Name(int(v)) == action.Reserved {
				return nil, entry.NewInvalidActionError(fmt.Sprintf("%d", v))
			}
			return v, nil
		default:
			return nil, typeError(name, value)
		}

	case entry.FieldTokens:
		v, ok := value.(int32)
		if !ok {
			return nil, typeError(name, value)
		}
		if v < 0 {
			return nil, entry.NewValidationError(name, "tokens must be non-negative")
		}
		return v, nil

	case entry.FieldGroupID:
		v, ok := value.(xid.ID)
		if !ok {
			return nil, typeError(name, value)
		}
		return v, nil

	case entry.FieldPayload:
		v, ok := value.([]byte)
		if !ok {
			return nil, typeError(name, value)
		}
		if v == nil {
			v = []byte{}
		}
		return v, nil

	case entry.FieldSourceIP, entry.FieldError:
		v, ok := value.(string)
		if !ok {
			return nil, typeError(name, value)
		}
		return norm.NFC.String(v), nil

	default:
		return nil, entry.NewInvalidFieldError(name)
	}
}

func typeError(name string, value any) error {
	return entry.NewValidationError(name, fmt.Sprintf("unexpected value type %T for %s", value, name))
}
