// Package window generates the raised-cosine analysis windows used by the
// stretch engine. Windows are immutable after construction and cached by
// size, so a single window slice is shared read-only by all workers.
package window

import (
	"math"
	"sync"
)

// Hann returns a raised-cosine window of the given size:
//
//	w[i] = 0.5 * (1 - cos(2*pi*i/(N-1)))
//
// The window is symmetric with zero endpoints, which keeps overlap-added
// frames free of edge discontinuities.
func Hann(size int) []float32 {
	w := make([]float32, size)
	if size == 1 {
		w[0] = 1
		return w
	}

	denom := float64(size - 1)
	for i := range size {
		w[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/denom)))
	}
	return w
}

// Cache memoizes windows by size. The cached slices are never mutated
// after construction and may be shared across goroutines.
type Cache struct {
	mu      sync.Mutex
	windows map[int][]float32
}

// NewCache creates an empty window cache.
func NewCache() *Cache {
	return &Cache{windows: make(map[int][]float32)}
}

// Get returns the Hann window for the given size, building it on first use.
func (c *Cache) Get(size int) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.windows[size]; ok {
		return w
	}
	w := Hann(size)
	c.windows[size] = w
	return w
}

// Clear drops all cached windows.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows = make(map[int][]float32)
}
