// Package id issues ingestion run IDs. A run ID is a ULID stamped with the
// run's start time, so IDs sort in start order and the start can be read
// back from the ID alone.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues run IDs from its clock. IDs issued within the same
// millisecond still sort in issue order.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// NewGenerator returns a Generator reading time from now, or from
// time.Now when now is nil.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		now:     now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// Next returns a new run ID and the start time stamped into it, truncated
// to the millisecond.
func (g *Generator) Next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	at := g.now().UTC().Truncate(time.Millisecond)
	id, err := ulid.New(ulid.Timestamp(at), g.entropy)
	if err != nil {
		panic(err)
	}
	return id.String(), at
}

// Time returns the start time encoded in a run ID. Anything that is not a
// well-formed ULID is rejected.
func Time(s string) (time.Time, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("run id %q: %w", s, err)
	}
	return ulid.Time(id.Time()).UTC(), nil
}
