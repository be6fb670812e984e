package logid

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Size is the byte length of an identifier.
const Size = 12

// Max is the largest possible identifier. Listing without a cursor starts
// strictly below it.
var Max = func() xid.ID {
	var id xid.ID
	for i := range id {
		id[i] = 0xff
	}
	return id
}()

// Floor returns the smallest identifier whose embedded creation time is t
// (truncated to the second). Every id generated at or after t compares
// greater than or equal to it.
func Floor(t time.Time) xid.ID {
	var id xid.ID
	binary.BigEndian.PutUint32(id[0:4], uint32(t.Unix()))
	return id
}

// FromBytes decodes a stored identifier.
func FromBytes(b []byte) (xid.ID, error) {
	if len(b) != Size {
		return xid.NilID(), fmt.Errorf("invalid id length %d", len(b))
	}
	return xid.FromBytes(b)
}

// Parse decodes the string form of an identifier.
func Parse(s string) (xid.ID, error) {
	id, err := xid.FromString(s)
	if err != nil {
		return xid.NilID(), fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// Generator allocates entry identifiers.
type Generator interface {
	Generate() xid.ID
}

// XIDGenerator generates ids from the clock it is given.
//
// Thread-safety: safe for concurrent use; xid keeps its own atomic counter.
type XIDGenerator struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

// Generate returns a new globally unique id stamped with Now.
func (g XIDGenerator) Generate() xid.ID {
	if g.Now == nil {
		return xid.New()
	}
	return xid.NewWithTime(g.Now())
}

// FixedGenerator returns predetermined ids, for tests that need stable keys.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []xid.ID
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...xid.ID) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next id. Panics once all ids are consumed.
func (g *FixedGenerator) Generate() xid.ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
