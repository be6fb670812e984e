package entry

import (
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns_SetPreservesOrder(t *testing.T) {
	var cols Columns
	cols.Set("status", StatusSuccess)
	cols.Set("tokens", int32(5))
	cols.Set("status", StatusFailure)

	assert.Equal(t, []string{"status", "tokens"}, cols.Names())
	v, ok := cols.Get("status")
	require.True(t, ok)
	assert.Equal(t, StatusFailure, v)

	_, ok = cols.Get("error")
	assert.False(t, ok)
}

func TestColumns_ValuesEncoded(t *testing.T) {
	id := xid.New()
	cols := Columns{
		{Name: "group_id", Value: id},
		{Name: "status", Value: StatusSuccess},
		{Name: "tokens", Value: int32(3)},
	}
	assert.Equal(t, []any{id.Bytes(), int8(1), int32(3)}, cols.Values())
}

func TestFromRow_FullRow(t *testing.T) {
	owner, id, group := xid.New(), xid.New(), xid.New()
	row := map[string]any{
		"owner_id":  owner.Bytes(),
		"entry_id":  id.Bytes(),
		"action":    int64(40),
		"status":    int64(1),
		"group_id":  group.Bytes(),
		"source_ip": "10.0.0.1",
		"payload":   []byte{1, 2, 3},
		"tokens":    int64(42),
		"error":     "",
	}

	e, err := FromRow(Entry{}, row, Fields())
	require.NoError(t, err)

	assert.Equal(t, owner, e.OwnerID)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "creation.create", e.ActionName())
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, Some(group), e.GroupID)
	assert.Equal(t, Some("10.0.0.1"), e.SourceIP)
	assert.Equal(t, Some([]byte{1, 2, 3}), e.Payload)
	assert.Equal(t, Some(int32(42)), e.Tokens)
	assert.True(t, e.Error.Valid)
	_, ok := e.ErrorMessage()
	assert.False(t, ok, "empty error is logically absent")
}

func TestFromRow_ProjectionSetsValidOnlyForRequested(t *testing.T) {
	owner, id := xid.New(), xid.New()
	row := map[string]any{
		"tokens": int32(7),
		"action": int8(8),
		"status": int8(0),
	}

	e, err := FromRow(Entry{OwnerID: owner, ID: id}, row, []string{"tokens", "action", "status"})
	require.NoError(t, err)

	assert.Equal(t, owner, e.OwnerID)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "user.login", e.ActionName())
	assert.Equal(t, Some(int32(7)), e.Tokens)
	assert.False(t, e.GroupID.Valid)
	assert.False(t, e.SourceIP.Valid)
	assert.False(t, e.Payload.Valid)
	assert.False(t, e.Error.Valid)
}

func TestFromRow_ToleratesDriverTypes(t *testing.T) {
	row := map[string]any{
		"action":    int(24),
		"status":    int16(-1),
		"source_ip": []byte("::1"),
		"payload":   nil,
		"error":     []byte("boom"),
	}

	e, err := FromRow(Entry{}, row, []string{"action", "status", "source_ip", "payload", "error"})
	require.NoError(t, err)

	assert.Equal(t, "group.create", e.ActionName())
	assert.Equal(t, StatusFailure, e.Status)
	assert.Equal(t, "::1", e.SourceIP.Value)
	assert.Equal(t, []byte{}, e.Payload.Value)
	msg, ok := e.ErrorMessage()
	assert.True(t, ok)
	assert.Equal(t, "boom", msg)
}

func TestFromRow_EmptyGroupIsNil(t *testing.T) {
	row := map[string]any{"group_id": []byte{}}
	e, err := FromRow(Entry{}, row, []string{"group_id"})
	require.NoError(t, err)
	assert.True(t, e.GroupID.Valid)
	assert.True(t, e.GroupID.Value.IsNil())
}

func TestFromRow_Errors(t *testing.T) {
	_, err := FromRow(Entry{}, map[string]any{}, []string{"tokens"})
	assert.ErrorContains(t, err, `missing column "tokens"`)

	_, err = FromRow(Entry{}, map[string]any{"tokens": "seven"}, []string{"tokens"})
	assert.ErrorContains(t, err, "unexpected integer type string")

	_, err = FromRow(Entry{}, map[string]any{"owner_id": []byte{1, 2}}, []string{"owner_id"})
	assert.ErrorContains(t, err, "invalid id length 2")
}

func TestRowColumns_RoundTrip(t *testing.T) {
	e := Entry{
		OwnerID:  xid.New(),
		ID:       xid.New(),
		Action:   56,
		Status:   StatusPending,
		GroupID:  Some(xid.New()),
		SourceIP: Some("192.168.1.1"),
		Payload:  Some([]byte("data")),
		Tokens:   Some(int32(9)),
		Error:    Some(""),
	}

	cols := RowColumns(e)
	assert.Equal(t, Fields(), cols.Names())

	row := make(map[string]any, len(cols))
	for i, v := range cols.Values() {
		row[cols[i].Name] = v
	}

	got, err := FromRow(Entry{}, row, Fields())
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestProject(t *testing.T) {
	e := Entry{
		OwnerID: xid.New(),
		ID:      xid.New(),
		Action:  8,
		Status:  StatusSuccess,
		Tokens:  Some(int32(2)),
		Error:   Some("x"),
		Payload: Some([]byte("p")),
	}

	got := Project(e, []string{"tokens", "action", "status"})
	assert.Equal(t, e.Action, got.Action)
	assert.Equal(t, e.Status, got.Status)
	assert.Equal(t, Some(int32(2)), got.Tokens)
	assert.False(t, got.Error.Valid)
	assert.False(t, got.Payload.Valid)
}
