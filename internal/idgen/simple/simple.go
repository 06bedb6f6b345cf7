package simple

import (
	"context"
	"sync"
)

// Generator hands out sequential identifiers starting at 1.
type Generator struct {
	mu      sync.Mutex
	counter uint
}

func New() *Generator {
	//nolint:exhaustruct
	return &Generator{}
}

func (g *Generator) GetID(_ context.Context) (uint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++

	return g.counter, nil
}
