package logstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/querysql"
	"github.com/roach88/logbase/internal/rowstore"
	"github.com/roach88/logbase/internal/rowstore/sqlite"
	"github.com/roach88/logbase/internal/testutil"
)

var epoch = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store *Store
	clock *testutil.FakeClock
	rows  *sqlite.Store
}

// newTestEnv opens a fresh SQLite store with a fake clock and deterministic
// ids.
func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	rows, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rows.Close() })

	clock := testutil.NewFakeClock(epoch)
	opts.Now = clock.Now
	opts.IDs = testutil.NewSequentialIDGenerator(clock)

	return &testEnv{
		store: New(rowstore.Instrument(rows, rowstore.Options{}), opts),
		clock: clock,
		rows:  rows,
	}
}

func (env *testEnv) create(t *testing.T, owner xid.ID, actionName string) entry.Entry {
	t.Helper()
	e, err := env.store.Create(context.Background(), CreateInput{
		OwnerID:  owner,
		GroupID:  xid.New(),
		Action:   actionName,
		SourceIP: "10.0.0.1",
		Payload:  []byte(`{"k":"v"}`),
		Tokens:   1,
	})
	require.NoError(t, err)
	return e
}

// fakeCache is an in-memory FrozenCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[[2]xid.ID]entry.Entry
	err     error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[[2]xid.ID]entry.Entry)}
}

func (c *fakeCache) Get(_ context.Context, ownerID, id xid.ID) (entry.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return entry.Entry{}, false, c.err
	}
	e, ok := c.entries[[2]xid.ID{ownerID, id}]
	return e, ok, nil
}

func (c *fakeCache) Put(_ context.Context, e entry.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.puts++
	c.entries[[2]xid.ID{e.OwnerID, e.ID}] = e
	return nil
}

// brokenRows fails every call.
type brokenRows struct{ err error }

func (b brokenRows) Dialect() querysql.Dialect { return querysql.SQLite }
func (b brokenRows) Exec(context.Context, string, []any) error {
	return b.err
}
func (b brokenRows) QueryRow(context.Context, string, []any) (rowstore.Row, error) {
	return nil, b.err
}
func (b brokenRows) Query(context.Context, string, []any) ([]rowstore.Row, error) {
	return nil, b.err
}
func (b brokenRows) Close() error { return nil }

var errConnRefused = errors.New("connection refused")
