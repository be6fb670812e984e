package logstore

import (
	"context"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/rowstore"
)

func TestCreate_RoundTrip(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	owner, group := xid.New(), xid.New()

	created, err := env.store.Create(ctx, CreateInput{
		OwnerID:  owner,
		GroupID:  group,
		Action:   "creation.create",
		SourceIP: "192.168.0.7",
		Payload:  []byte{0x01, 0x02},
		Tokens:   42,
	})
	require.NoError(t, err)

	assert.Equal(t, owner, created.OwnerID)
	assert.False(t, created.ID.IsNil())
	assert.Equal(t, entry.StatusPending, created.Status)
	assert.Equal(t, "creation.create", created.ActionName())
	assert.True(t, created.GroupID.Valid)
	assert.True(t, created.Error.Valid)

	got, err := env.store.GetOne(ctx, owner, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreate_InvalidAction(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.store.Create(context.Background(), CreateInput{OwnerID: xid.New(), Action: "user.fly"})
	assert.True(t, entry.IsCode(err, entry.CodeInvalidAction))

	_, err = env.store.Create(context.Background(), CreateInput{OwnerID: xid.New(), Action: "reserved"})
	assert.True(t, entry.IsCode(err, entry.CodeInvalidAction))
}

func TestCreate_NegativeTokens(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.store.Create(context.Background(), CreateInput{OwnerID: xid.New(), Action: "user.login", Tokens: -1})
	assert.True(t, entry.IsCode(err, entry.CodeValidation))
}

func TestCreate_NormalizesText(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	created, err := env.store.Create(ctx, CreateInput{
		OwnerID:  xid.New(),
		Action:   "user.login",
		SourceIP: "cafe\u0301",
	})
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", created.SourceIP.Value)

	got, err := env.store.GetOne(ctx, created.OwnerID, created.ID, []string{"source_ip"})
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", got.SourceIP.Value)
}

func TestCreate_StorageFailure(t *testing.T) {
	store := New(rowstore.Instrument(brokenRows{err: errConnRefused}, rowstore.Options{}), Options{})

	_, err := store.Create(context.Background(), CreateInput{OwnerID: xid.New(), Action: "user.login"})
	require.Error(t, err)
	assert.ErrorIs(t, err, rowstore.ErrUnavailable)
	assert.ErrorIs(t, err, errConnRefused)
}

func TestUpdate_FreezesOnTerminalStatus(t *testing.T) {
	for _, status := range []entry.Status{entry.StatusSuccess, entry.StatusFailure} {
		t.Run(status.String(), func(t *testing.T) {
			env := newTestEnv(t, Options{})
			ctx := context.Background()
			e := env.create(t, xid.New(), "user.login")

			msg := "done"
			updated, err := env.store.Update(ctx, UpdateInput{OwnerID: e.OwnerID, ID: e.ID, Status: status, Error: &msg})
			require.NoError(t, err)
			assert.Equal(t, status, updated.Status)
			assert.True(t, updated.Frozen())

			tokens := int32(99)
			_, err = env.store.Update(ctx, UpdateInput{OwnerID: e.OwnerID, ID: e.ID, Status: entry.StatusPending, Tokens: &tokens})
			require.Error(t, err)

			var storeErr *entry.Error
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, entry.CodeFrozen, storeErr.Code)
			assert.Equal(t, "pending", storeErr.Details["expected"])
			assert.Equal(t, status.String(), storeErr.Details["actual"])

			after, err := env.store.GetOne(ctx, e.OwnerID, e.ID, nil)
			require.NoError(t, err)
			assert.Equal(t, int32(1), after.Tokens.Value, "frozen entry must be unchanged")
			assert.Equal(t, status, after.Status)
		})
	}
}

func TestUpdate_PendingStaysMutable(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	e := env.create(t, xid.New(), "group.create")

	for i := int32(2); i <= 4; i++ {
		tokens := i
		updated, err := env.store.Update(ctx, UpdateInput{OwnerID: e.OwnerID, ID: e.ID, Status: entry.StatusPending, Tokens: &tokens})
		require.NoError(t, err)
		assert.Equal(t, tokens, updated.Tokens.Value)
		assert.False(t, updated.Frozen())
	}

	payload := []byte("new")
	updated, err := env.store.Update(ctx, UpdateInput{OwnerID: e.OwnerID, ID: e.ID, Status: entry.StatusSuccess, Payload: &payload})
	require.NoError(t, err)
	assert.Equal(t, payload, updated.Payload.Value)
	assert.Equal(t, int32(4), updated.Tokens.Value)
}

func TestUpdate_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	e := env.create(t, xid.New(), "user.login")

	_, err := env.store.Update(ctx, UpdateInput{OwnerID: e.OwnerID, ID: e.ID, Status: entry.Status(2)})
	assert.True(t, entry.IsCode(err, entry.CodeValidation))

	tokens := int32(-5)
	_, err = env.store.Update(ctx, UpdateInput{OwnerID: e.OwnerID, ID: e.ID, Status: entry.StatusPending, Tokens: &tokens})
	assert.True(t, entry.IsCode(err, entry.CodeValidation))
}

func TestUpdate_MissingRowWritesSuppliedFields(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	owner, id := xid.New(), xid.New()

	tokens := int32(7)
	msg := "late"
	got, err := env.store.Update(ctx, UpdateInput{OwnerID: owner, ID: id, Status: entry.StatusPending, Tokens: &tokens, Error: &msg})
	require.NoError(t, err)

	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, entry.StatusPending, got.Status)
	assert.Equal(t, entry.Some(int32(7)), got.Tokens)
	assert.Equal(t, entry.Some("late"), got.Error)

	// Columns not supplied keep their zero values.
	assert.Equal(t, int8(0), got.Action)
	assert.Equal(t, entry.Some(xid.NilID()), got.GroupID)
	assert.Equal(t, entry.Some(""), got.SourceIP)
	assert.True(t, got.Payload.Valid)
	assert.Empty(t, got.Payload.Value)

	reread, err := env.store.GetOne(ctx, owner, id, nil)
	require.NoError(t, err)
	assert.Equal(t, got, reread)
}

func TestUpdateFields_MissingRowThenFreeze(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	owner, id := xid.New(), xid.New()

	var cols entry.Columns
	cols.Set(entry.FieldStatus, entry.StatusSuccess)
	require.NoError(t, env.store.UpdateFields(ctx, owner, id, cols))

	got, err := env.store.GetOne(ctx, owner, id, []string{entry.FieldTokens})
	require.NoError(t, err)
	assert.Equal(t, entry.StatusSuccess, got.Status)
	assert.Equal(t, entry.Some(int32(0)), got.Tokens)

	err = env.store.UpdateFields(ctx, owner, id, cols)
	assert.True(t, entry.IsCode(err, entry.CodeFrozen))
}

func TestUpdateFields_RejectsImmutableAndUnknown(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	e := env.create(t, xid.New(), "user.login")

	for _, name := range []string{"owner_id", "entry_id", "bogus"} {
		err := env.store.UpdateFields(ctx, e.OwnerID, e.ID, entry.Columns{{Name: name, Value: xid.New()}})
		require.Error(t, err, name)

		var storeErr *entry.Error
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, entry.CodeInvalidField, storeErr.Code)
		assert.Equal(t, name, storeErr.Field)
	}
}

func TestUpdateFields_Empty(t *testing.T) {
	env := newTestEnv(t, Options{})
	err := env.store.UpdateFields(context.Background(), xid.New(), xid.New(), nil)
	assert.True(t, entry.IsCode(err, entry.CodeValidation))
}

func TestUpdateFields_ActionAndGroup(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	e := env.create(t, xid.New(), "user.login")
	group := xid.New()

	var cols entry.Columns
	cols.Set("action", "user.logout")
	cols.Set("group_id", group)
	cols.Set("source_ip", "::1")
	require.NoError(t, env.store.UpdateFields(ctx, e.OwnerID, e.ID, cols))

	got, err := env.store.GetOne(ctx, e.OwnerID, e.ID, []string{"group_id", "source_ip"})
	require.NoError(t, err)
	assert.Equal(t, "user.logout", got.ActionName())
	assert.Equal(t, group, got.GroupID.Value)
	assert.Equal(t, "::1", got.SourceIP.Value)
}

func TestUpdateFields_ValueChecks(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	e := env.create(t, xid.New(), "user.login")

	tests := []struct {
		name string
		cols entry.Columns
		code entry.Code
	}{
		{"unknown action", entry.Columns{{Name: "action", Value: "nope"}}, entry.CodeInvalidAction},
		{"reserved code", entry.Columns{{Name: "action", Value: int8(5)}}, entry.CodeInvalidAction},
		{"status range", entry.Columns{{Name: "status", Value: int8(3)}}, entry.CodeValidation},
		{"tokens type", entry.Columns{{Name: "tokens", Value: 5}}, entry.CodeValidation},
		{"negative tokens", entry.Columns{{Name: "tokens", Value: int32(-1)}}, entry.CodeValidation},
		{"error type", entry.Columns{{Name: "error", Value: 7}}, entry.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.store.UpdateFields(ctx, e.OwnerID, e.ID, tt.cols)
			assert.True(t, entry.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestUpdateFields_GuardReadFailureRejects(t *testing.T) {
	store := New(rowstore.Instrument(brokenRows{err: errConnRefused}, rowstore.Options{}), Options{})

	err := store.UpdateFields(context.Background(), xid.New(), xid.New(),
		entry.Columns{{Name: "status", Value: entry.StatusSuccess}})
	require.Error(t, err)
	assert.ErrorIs(t, err, rowstore.ErrUnavailable)
	_, isStoreErr := entry.CodeOf(err)
	assert.False(t, isStoreErr)
}
