package cache

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logbase/internal/entry"
)

func frozenEntry() entry.Entry {
	return entry.Entry{
		OwnerID:  xid.New(),
		ID:       xid.New(),
		Action:   40,
		Status:   entry.StatusFailure,
		GroupID:  entry.Some(xid.New()),
		SourceIP: entry.Some("10.1.1.1"),
		Payload:  entry.Some([]byte{0, 1, 2}),
		Tokens:   entry.Some(int32(17)),
		Error:    entry.Some("quota exceeded"),
	}
}

func TestEncodeDecode(t *testing.T) {
	e := frozenEntry()

	data, err := encode(e)
	require.NoError(t, err)

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestDecode_EmptyPayload(t *testing.T) {
	e := frozenEntry()
	e.Payload = entry.Some([]byte{})

	data, err := encode(e)
	require.NoError(t, err)

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, got.Payload.Value)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := decode([]byte("not json"))
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), Options{})
	defer c.Close()

	assert.Equal(t, DefaultTTL, c.ttl)
	owner, id := xid.New(), xid.New()
	assert.Equal(t, "logbase:frozen:"+owner.String()+":"+id.String(), c.key(owner, id))
}

// TestIntegration runs against a live Redis when LOGBASE_TEST_REDIS_ADDR is set.
func TestIntegration(t *testing.T) {
	addr := os.Getenv("LOGBASE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LOGBASE_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := Dial(ctx, addr, "", 0, Options{KeyPrefix: "logbase:test:"})
	require.NoError(t, err)
	defer c.Close()

	e := frozenEntry()
	_, ok, err := c.Get(ctx, e.OwnerID, e.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, e))
	got, ok, err := c.Get(ctx, e.OwnerID, e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, got)

	pending := frozenEntry()
	pending.Status = entry.StatusPending
	require.NoError(t, c.Put(ctx, pending))
	_, ok, err = c.Get(ctx, pending.OwnerID, pending.ID)
	require.NoError(t, err)
	assert.False(t, ok, "pending entries are never cached")
}
