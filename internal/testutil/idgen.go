package testutil

import (
	"fmt"
	"sync"
)

// IDGenerator returns sequential flow ids ("flow-1", "flow-2", ...) for
// deterministic test execution and golden transcript comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDGenerator creates a sequential generator. An empty prefix
// defaults to "flow".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &IDGenerator{prefix: prefix}
}

// Generate returns the next id in sequence.
func (g *IDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// FixedIDGenerator returns predetermined ids in order and panics when
// exhausted, failing fast on test misconfiguration.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator returning ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
