package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockPoolReusesBlocks(t *testing.T) {
	p := NewBlockPool(256)
	assert.Equal(t, 256, p.BlockSize())

	a := p.Get()
	assert.Len(t, a, 256)

	p.Put(a)
	b := p.Get()
	if &a[0] != &b[0] {
		t.Error("Get should reuse the returned block")
	}
}

func TestBlockPoolDropsWrongSize(t *testing.T) {
	p := NewBlockPool(256)
	p.Put(make([]float32, 100))

	b := p.Get()
	assert.Len(t, b, 256)
}

func TestBlockPoolClear(t *testing.T) {
	p := NewBlockPool(64)
	a := p.Get()
	p.Put(a)
	p.Clear()

	b := p.Get()
	if &a[0] == &b[0] {
		t.Error("Clear should drop pooled blocks")
	}
}

func TestBlockPoolBoundsFreeList(t *testing.T) {
	p := NewBlockPool(16)
	for range maxPooledBlocks + 10 {
		p.Put(make([]float32, 16))
	}
	assert.LessOrEqual(t, len(p.free), maxPooledBlocks)
}
