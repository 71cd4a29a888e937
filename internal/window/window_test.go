package window

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/go-paulstretch/internal/testutil"
)

func TestHannMatchesFormula(t *testing.T) {
	const n = 16
	w := Hann(n)

	for i := range n {
		want := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		assert.InDelta(t, want, w[i], testutil.WindowTolerance, "w[%d]", i)
	}
}

func TestHannSymmetry(t *testing.T) {
	for _, n := range []int{8, 64, 1024, 16384} {
		w := Hann(n)
		testutil.AssertSymmetric(t, w, testutil.WindowTolerance)
	}
}

func TestHannEndpointsAndCenter(t *testing.T) {
	w := Hann(1025)

	assert.Zero(t, w[0])
	assert.Zero(t, w[1024])
	assert.InDelta(t, 1.0, w[512], testutil.WindowTolerance, "odd-length window peaks at the center")
	testutil.AssertAllInRange(t, w, 0, 1)
}

func TestHannDegenerateSize(t *testing.T) {
	assert.Equal(t, []float32{1}, Hann(1))
}

func TestCacheReturnsSameWindow(t *testing.T) {
	c := NewCache()

	w1 := c.Get(512)
	w2 := c.Get(512)
	assert.Equal(t, 512, len(w1))
	if &w1[0] != &w2[0] {
		t.Error("cache should return the same backing array for a size")
	}

	c.Clear()
	w3 := c.Get(512)
	if &w1[0] == &w3[0] {
		t.Error("Clear should drop cached windows")
	}
}
