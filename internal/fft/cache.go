package fft

import "sync"

// Cache memoizes transform plans by size. Plans are built lazily on first
// use; the cached plans themselves are immutable, so concurrent lookups
// only contend on the map.
type Cache struct {
	mu    sync.Mutex
	plans map[int]*Plan
}

// NewCache creates an empty plan cache.
func NewCache() *Cache {
	return &Cache{plans: make(map[int]*Plan)}
}

// Get returns the plan for the given size, building it on first use.
func (c *Cache) Get(size int) (*Plan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.plans[size]; ok {
		return p, nil
	}
	p, err := NewPlan(size)
	if err != nil {
		return nil, err
	}
	c.plans[size] = p
	return p, nil
}

// Clear drops all cached plans.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans = make(map[int]*Plan)
}
