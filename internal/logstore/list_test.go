package logstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logbase/internal/action"
	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/rowstore"
)

// seed creates n entries for owner, one second apart, and returns them in
// creation order.
func seed(t *testing.T, env *testEnv, owner xid.ID, n int, actionName string) []entry.Entry {
	t.Helper()
	out := make([]entry.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, env.create(t, owner, actionName))
		env.clock.Advance(time.Second)
	}
	return out
}

func ids(entries []entry.Entry) []xid.ID {
	out := make([]xid.ID, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func reversed(entries []entry.Entry) []xid.ID {
	out := ids(entries)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func TestList_WalksBackwards(t *testing.T) {
	for _, pageSize := range []int{1, 10, 1000} {
		t.Run(fmt.Sprintf("page_size_%d", pageSize), func(t *testing.T) {
			env := newTestEnv(t, Options{})
			ctx := context.Background()
			owner := xid.New()
			created := seed(t, env, owner, 25, "user.login")
			seed(t, env, xid.New(), 3, "user.login")

			var walked []xid.ID
			var cursor *xid.ID
			for pages := 0; ; pages++ {
				require.Less(t, pages, 30, "pagination must terminate")

				page, err := env.store.List(ctx, ListInput{OwnerID: owner, PageSize: pageSize, Cursor: cursor})
				require.NoError(t, err)
				assert.LessOrEqual(t, len(page.Entries), pageSize)
				walked = append(walked, ids(page.Entries)...)

				if page.NextCursor == nil {
					break
				}
				cursor = page.NextCursor
			}

			assert.Equal(t, reversed(created), walked)
		})
	}
}

func TestList_DefaultPageSize(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := xid.New()
	seed(t, env, owner, 12, "user.login")

	page, err := env.store.List(context.Background(), ListInput{OwnerID: owner})
	require.NoError(t, err)
	assert.Len(t, page.Entries, DefaultPageSize)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, page.Entries[9].ID, *page.NextCursor)
}

func TestList_CursorIsExclusive(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := xid.New()
	created := seed(t, env, owner, 5, "user.login")

	cursor := created[2].ID
	page, err := env.store.List(context.Background(), ListInput{OwnerID: owner, Cursor: &cursor})
	require.NoError(t, err)
	assert.Equal(t, []xid.ID{created[1].ID, created[0].ID}, ids(page.Entries))
	assert.Nil(t, page.NextCursor)
}

func TestList_ProjectionIncludesKey(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := xid.New()
	created := seed(t, env, owner, 1, "user.login")

	page, err := env.store.List(context.Background(), ListInput{OwnerID: owner, Fields: []string{"tokens"}})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	got := page.Entries[0]
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, created[0].ID, got.ID)
	assert.Equal(t, "user.login", got.ActionName())
	assert.True(t, got.Tokens.Valid)
	assert.False(t, got.Payload.Valid)
}

func TestList_ActionFilter(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := xid.New()
	logins := seed(t, env, owner, 3, "user.login")
	seed(t, env, owner, 3, "user.logout")

	name := "user.login"
	page, err := env.store.List(context.Background(), ListInput{OwnerID: owner, Action: &name})
	require.NoError(t, err)
	assert.Equal(t, reversed(logins), ids(page.Entries))

	bad := "user.teleport"
	_, err = env.store.List(context.Background(), ListInput{OwnerID: owner, Action: &bad})
	assert.True(t, entry.IsCode(err, entry.CodeInvalidAction))
}

func TestList_PageSizeBounds(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, size := range []int{-1, MaxPageSize + 1} {
		_, err := env.store.List(context.Background(), ListInput{OwnerID: xid.New(), PageSize: size})
		assert.True(t, entry.IsCode(err, entry.CodeValidation), "size %d", size)
	}
}

func TestList_Empty(t *testing.T) {
	env := newTestEnv(t, Options{})

	page, err := env.store.List(context.Background(), ListInput{OwnerID: xid.New()})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Nil(t, page.NextCursor)
}

func TestListRecent_WindowExcludesOldEntries(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	owner := xid.New()

	old := env.create(t, owner, "user.login")
	env.clock.Advance(DefaultRecentWindow + time.Hour)
	fresh := seed(t, env, owner, 2, "user.login")

	got, err := env.store.ListRecent(ctx, owner, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, reversed(fresh), ids(got))
	assert.NotContains(t, ids(got), old.ID)
}

func TestListRecent_WindowEdge(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := xid.New()

	edge := env.create(t, owner, "user.login")
	env.clock.Advance(DefaultRecentWindow)

	got, err := env.store.ListRecent(context.Background(), owner, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []xid.ID{edge.ID}, ids(got), "entries created in the bound's second are included")

	env.clock.Advance(time.Second)
	got, err = env.store.ListRecent(context.Background(), owner, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListRecent_ActionFilter(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := xid.New()
	logins := seed(t, env, owner, 2, "user.login")
	seed(t, env, owner, 2, "user.follow")
	creates := seed(t, env, owner, 2, "group.create")

	got, err := env.store.ListRecent(context.Background(), owner, []string{"error"},
		[]string{"group.create", "user.login", "user.login"})
	require.NoError(t, err)

	want := append(reversed(creates), reversed(logins)...)
	assert.Equal(t, want, ids(got))
	for _, e := range got {
		assert.True(t, e.Error.Valid)
		assert.False(t, e.Tokens.Valid)
	}
}

func TestListRecent_FilterSetCap(t *testing.T) {
	env := newTestEnv(t, Options{})
	names := action.Names()[:MaxRecentActions+1]

	_, err := env.store.ListRecent(context.Background(), xid.New(), nil, names)
	assert.True(t, entry.IsCode(err, entry.CodeValidation))

	_, err = env.store.ListRecent(context.Background(), xid.New(), nil, names[:MaxRecentActions])
	assert.NoError(t, err)
}

func TestListRecent_UnknownAction(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.store.ListRecent(context.Background(), xid.New(), nil, []string{"user.login", "user.nap"})
	assert.True(t, entry.IsCode(err, entry.CodeValidation))
}

func TestListRecent_Limit(t *testing.T) {
	env := newTestEnv(t, Options{RecentLimit: 3})
	owner := xid.New()
	created := seed(t, env, owner, 5, "user.login")

	got, err := env.store.ListRecent(context.Background(), owner, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, reversed(created)[:3], ids(got))
}

func TestListRecent_StorageFailure(t *testing.T) {
	store := New(rowstore.Instrument(brokenRows{err: errConnRefused}, rowstore.Options{}), Options{})

	_, err := store.ListRecent(context.Background(), xid.New(), nil, []string{"user.login"})
	assert.ErrorIs(t, err, rowstore.ErrUnavailable)
}

func TestResolveActions_Dedupes(t *testing.T) {
	codes, err := resolveActions([]string{"user.logout", "user.login", "user.logout"})
	require.NoError(t, err)
	assert.Equal(t, []int8{12, 8}, codes)

	codes, err = resolveActions(nil)
	require.NoError(t, err)
	assert.Empty(t, codes)
}
