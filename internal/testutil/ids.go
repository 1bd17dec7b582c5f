package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates predictable event ids: prefix-1, prefix-2, ...
//
// Unlike state.FixedGenerator, which panics once its list is exhausted,
// SequenceGenerator never runs out. Scenarios that add an unknown number of
// events use it so golden snapshots stay byte-identical.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix becomes "evt".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "evt"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
