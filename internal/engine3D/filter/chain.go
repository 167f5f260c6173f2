package filter

import "scenefx/internal/gpu"

// Chain runs filters back to back, each consuming the previous result.
type Chain struct {
	pool    *TargetPool
	filters []Filter
}

func NewChain(pool *TargetPool, filters ...Filter) *Chain {
	return &Chain{pool: pool, filters: filters}
}

// Apply returns the last filter's output. Intermediate results go back to
// the pool; input is left alone.
func (c *Chain) Apply(frame *Frame, input *gpu.RenderTarget) *gpu.RenderTarget {
	current := input
	for _, f := range c.filters {
		next := f.Apply(frame, current)
		if current != input {
			c.pool.Put(current)
		}
		current = next
	}
	return current
}

func (c *Chain) Close() {
	for _, f := range c.filters {
		f.Close()
	}
	c.filters = nil
}
