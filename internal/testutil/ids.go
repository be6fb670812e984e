package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/rs/xid"
)

// SequentialIDGenerator produces identifiers stamped with the fake clock's
// second and a strictly increasing counter, so ids generated within one
// second still sort in generation order.
//
// The layout matches xid: bytes 0-3 are big-endian unix seconds, the
// counter occupies the last three bytes, and the machine/pid bytes are zero.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	clock *FakeClock

	mu      sync.Mutex
	counter uint32
}

// NewSequentialIDGenerator creates a generator reading clock.
func NewSequentialIDGenerator(clock *FakeClock) *SequentialIDGenerator {
	return &SequentialIDGenerator{clock: clock}
}

// Generate returns the next identifier.
//
// Implements logid.Generator.
func (g *SequentialIDGenerator) Generate() xid.ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++

	var id xid.ID
	binary.BigEndian.PutUint32(id[0:4], uint32(g.clock.Now().Unix()))
	id[9] = byte(g.counter >> 16)
	id[10] = byte(g.counter >> 8)
	id[11] = byte(g.counter)
	return id
}
