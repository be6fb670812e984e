// Package cache keeps frozen log entries in Redis.
//
// A frozen entry never changes again, so a cached row is always current and
// needs no invalidation; the TTL only bounds memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/roach88/logbase/internal/entry"
)

// DefaultTTL applies when Options.TTL is zero.
const DefaultTTL = 24 * time.Hour

// Options configures a FrozenCache.
type Options struct {
	KeyPrefix string
	TTL       time.Duration
}

// FrozenCache stores full rows of frozen entries as JSON.
type FrozenCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// New creates a FrozenCache over client.
func New(client redis.UniversalClient, opts Options) *FrozenCache {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "logbase:frozen:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FrozenCache{client: client, keyPrefix: prefix, ttl: ttl}
}

// Dial connects to a single Redis server and verifies it answers.
func Dial(ctx context.Context, addr, password string, db int, opts Options) (*FrozenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("dial redis: %w", err)
	}
	return New(client, opts), nil
}

func (c *FrozenCache) key(ownerID, id xid.ID) string {
	return c.keyPrefix + ownerID.String() + ":" + id.String()
}

// Get returns the cached entry, if any.
func (c *FrozenCache) Get(ctx context.Context, ownerID, id xid.ID) (entry.Entry, bool, error) {
	data, err := c.client.Get(ctx, c.key(ownerID, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry.Entry{}, false, nil
	}
	if err != nil {
		return entry.Entry{}, false, fmt.Errorf("cache get: %w", err)
	}

	e, err := decode(data)
	if err != nil {
		return entry.Entry{}, false, fmt.Errorf("cache get: %w", err)
	}
	return e, true, nil
}

// Put stores e. Entries that are not frozen are ignored.
func (c *FrozenCache) Put(ctx context.Context, e entry.Entry) error {
	if !e.Frozen() {
		return nil
	}
	data, err := encode(e)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if err := c.client.Set(ctx, c.key(e.OwnerID, e.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *FrozenCache) Close() error {
	return c.client.Close()
}

// record is the cached JSON form. Every field of a frozen row is cached.
type record struct {
	OwnerID  xid.ID `json:"owner_id"`
	ID       xid.ID `json:"entry_id"`
	Action   int8   `json:"action"`
	Status   int8   `json:"status"`
	GroupID  xid.ID `json:"group_id"`
	SourceIP string `json:"source_ip"`
	Payload  []byte `json:"payload"`
	Tokens   int32  `json:"tokens"`
	Error    string `json:"error"`
}

func encode(e entry.Entry) ([]byte, error) {
	return json.Marshal(record{
		OwnerID:  e.OwnerID,
		ID:       e.ID,
		Action:   e.Action,
		Status:   int8(e.Status),
		GroupID:  e.GroupID.Value,
		SourceIP: e.SourceIP.Value,
		Payload:  e.Payload.Value,
		Tokens:   e.Tokens.Value,
		Error:    e.Error.Value,
	})
}

func decode(data []byte) (entry.Entry, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return entry.Entry{}, err
	}
	payload := r.Payload
	if payload == nil {
		payload = []byte{}
	}
	return entry.Entry{
		OwnerID:  r.OwnerID,
		ID:       r.ID,
		Action:   r.Action,
		Status:   entry.Status(r.Status),
		GroupID:  entry.Some(r.GroupID),
		SourceIP: entry.Some(r.SourceIP),
		Payload:  entry.Some(payload),
		Tokens:   entry.Some(r.Tokens),
		Error:    entry.Some(r.Error),
	}, nil
}
