package entry

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/roach88/logbase/internal/logid"
)

// Column is one name/value pair of a write.
type Column struct {
	Name  string
	Value any
}

// Columns is an ordered set of column writes. Order is preserved so that
// compiled statements are deterministic.
type Columns []Column

// Set adds or replaces the value for name.
func (c *Columns) Set(name string, value any) {
	for i := range *c {
		if (*c)[i].Name == name {
			(*c)[i].Value = value
			return
		}
	}
	*c = append(*c, Column{Name: name, Value: value})
}

// Get returns the value for name.
func (c Columns) Get(name string) (any, bool) {
	for _, col := range c {
		if col.Name == name {
			return col.Value, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (c Columns) Names() []string {
	names := make([]string, len(c))
	for i, col := range c {
		names[i] = col.Name
	}
	return names
}

// Values returns the column values in order, encoded for a row store.
func (c Columns) Values() []any {
	values := make([]any, len(c))
	for i, col := range c {
		values[i] = EncodeValue(col.Value)
	}
	return values
}

// EncodeValue converts domain values to row-store parameter types.
// Identifiers are stored as 12-byte blobs so byte order is id order.
func EncodeValue(v any) any {
	switch val := v.(type) {
	case xid.ID:
		return val.Bytes()
	case Status:
		return int8(val)
	default:
		return v
	}
}

// RowColumns returns the full row of e as column writes, in schema order.
func RowColumns(e Entry) Columns {
	return Columns{
		{Name: FieldOwnerID, Value: e.OwnerID},
		{Name: FieldID, Value: e.ID},
		{Name: FieldAction, Value: e.Action},
		{Name: FieldStatus, Value: e.Status},
		{Name: FieldGroupID, Value: e.GroupID.Value},
		{Name: FieldSourceIP, Value: e.SourceIP.Value},
		{Name: FieldPayload, Value: nonNilBytes(e.Payload.Value)},
		{Name: FieldTokens, Value: e.Tokens.Value},
		{Name: FieldError, Value: e.Error.Value},
	}
}

// FromRow decodes the projected fields of row into an Entry. Fields not in
// the projection are left unset; the caller's key, if any, is preserved.
func FromRow(base Entry, row map[string]any, projection []string) (Entry, error) {
	e := base
	for _, name := range projection {
		v, ok := row[name]
		if !ok {
			return Entry{}, fmt.Errorf("decode row: missing column %q", name)
		}
		if err := e.setField(name, v); err != nil {
			return Entry{}, fmt.Errorf("decode row: %s: %w", name, err)
		}
	}
	return e, nil
}

// Project returns a copy of e in which only the given fields are
// materialized. Mandatory and key fields are always kept.
func Project(e Entry, projection []string) Entry {
	out := Entry{
		OwnerID: e.OwnerID,
		ID:      e.ID,
		Action:  e.Action,
		Status:  e.Status,
	}
	for _, name := range projection {
		switch name {
		case FieldGroupID:
			out.GroupID = Some(e.GroupID.Value)
		case FieldSourceIP:
			out.SourceIP = Some(e.SourceIP.Value)
		case FieldPayload:
			out.Payload = Some(e.Payload.Value)
		case FieldTokens:
			out.Tokens = Some(e.Tokens.Value)
		case FieldError:
			out.Error = Some(e.Error.Value)
		}
	}
	return out
}

func (e *Entry) setField(name string, v any) error {
	switch name {
	case FieldOwnerID:
		id, err := decodeID(v)
		if err != nil {
			return err
		}
		e.OwnerID = id
	case FieldID:
		id, err := decodeID(v)
		if err != nil {
			return err
		}
		e.ID = id
	case FieldAction:
		n, err := decodeInt(v)
		if err != nil {
			return err
		}
		e.Action = int8(n)
	case FieldStatus:
		n, err := decodeInt(v)
		if err != nil {
			return err
		}
		e.Status = Status(n)
	case FieldGroupID:
		id, err := decodeID(v)
		if err != nil {
			return err
		}
		e.GroupID = Some(id)
	case FieldSourceIP:
		s, err := decodeString(v)
		if err != nil {
			return err
		}
		e.SourceIP = Some(s)
	case FieldPayload:
		b, err := decodeBytes(v)
		if err != nil {
			return err
		}
		e.Payload = Some(b)
	case FieldTokens:
		n, err := decodeInt(v)
		if err != nil {
			return err
		}
		e.Tokens = Some(int32(n))
	case FieldError:
		s, err := decodeString(v)
		if err != nil {
			return err
		}
		e.Error = Some(s)
	default:
		return NewInvalidFieldError(name)
	}
	return nil
}

// decodeID accepts a 12-byte blob. A missing (empty) blob decodes to the nil
// id, which is how an unset group_id reads back.
func decodeID(v any) (xid.ID, error) {
	b, err := decodeBytes(v)
	if err != nil {
		return xid.NilID(), err
	}
	if len(b) == 0 {
		return xid.NilID(), nil
	}
	return logid.FromBytes(b)
}

func decodeInt(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected integer type %T", v)
	}
}

func decodeString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("unexpected text type %T", v)
	}
}

func decodeBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return nonNilBytes(b), nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("unexpected blob type %T", v)
	}
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
