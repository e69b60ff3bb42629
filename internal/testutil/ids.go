package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator returns "<prefix>-1", "<prefix>-2", ... and
// satisfies bus.IDGenerator.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix means "sub".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "sub"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
