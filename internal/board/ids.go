package board

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator assigns locally unique identifiers to new entities before
// the server confirms one.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator produces ids of the form "<prefix>-<uuid>".
type UUIDGenerator struct {
	Prefix string
}

// NewID implements IDGenerator.
func (g UUIDGenerator) NewID() string {
	return fmt.Sprintf("%s-%s", g.Prefix, uuid.NewString())
}

// CounterGenerator produces ids of the form "<prefix>-<n>" from a
// monotonic counter. It is safe for concurrent use.
type CounterGenerator struct {
	Prefix string
	n      atomic.Int64
}

// NewCounterGenerator returns a generator whose first id is start+1.
func NewCounterGenerator(prefix string, start int64) *CounterGenerator {
	g := &CounterGenerator{Prefix: prefix}
	g.n.Store(start)
	return g
}

// NewID implements IDGenerator.
func (g *CounterGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}
