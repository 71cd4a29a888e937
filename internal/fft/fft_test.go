package fft

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-paulstretch/internal/testutil"
)

// randomSignal returns a reproducible random signal in [-1, 1).
func randomSignal(n int, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, 0))
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(rng.Float64()*2 - 1)
	}
	return s
}

func TestNewPlanRejectsInvalidSizes(t *testing.T) {
	for _, size := range []int{-4, 0, 1, 3, 6, 100, 1000} {
		_, err := NewPlan(size)
		assert.Error(t, err, "size %d should be rejected", size)
	}
	for _, size := range []int{2, 4, 256, 65536} {
		p, err := NewPlan(size)
		require.NoError(t, err, "size %d should be accepted", size)
		assert.Equal(t, size, p.Size())
	}
}

func TestForwardImpulse(t *testing.T) {
	const n = 64
	p, err := NewPlan(n)
	require.NoError(t, err)

	re := make([]float32, n)
	im := make([]float32, n)
	re[0] = 1

	p.Forward(re, im)

	// The DFT of a unit impulse is flat: every bin is 1+0i.
	for k := range n {
		assert.InDelta(t, 1.0, re[k], 1e-6, "re[%d]", k)
		assert.InDelta(t, 0.0, im[k], 1e-6, "im[%d]", k)
	}
}

func TestForwardMatchesReference(t *testing.T) {
	for _, n := range []int{8, 64, 512, 4096} {
		p, err := NewPlan(n)
		require.NoError(t, err)

		signal := randomSignal(n, uint64(n))
		re := make([]float32, n)
		im := make([]float32, n)
		signal64 := make([]float64, n)
		for i, v := range signal {
			re[i] = v
			signal64[i] = float64(v)
		}

		p.Forward(re, im)

		// gonum's real FFT returns the unique bins [0, n/2]; the rest
		// follow from Hermitian symmetry of a real input.
		ref := fourier.NewFFT(n).Coefficients(nil, signal64)
		tol := 1e-3 * math.Sqrt(float64(n))
		for k := range ref {
			assert.InDelta(t, real(ref[k]), float64(re[k]), tol, "n=%d re[%d]", n, k)
			assert.InDelta(t, imag(ref[k]), float64(im[k]), tol, "n=%d im[%d]", n, k)
		}
	}
}

func TestRoundTripRecoversInput(t *testing.T) {
	for _, n := range []int{2, 16, 256, 4096, 65536} {
		p, err := NewPlan(n)
		require.NoError(t, err)

		signal := randomSignal(n, uint64(n)+1)
		re := make([]float32, n)
		im := make([]float32, n)
		copy(re, signal)

		p.Forward(re, im)
		p.Inverse(re, im)

		assert.Less(t, testutil.RMSDiff(re, signal), testutil.RoundTripTolerance,
			"round trip RMS error too large for n=%d", n)
		assert.Less(t, testutil.RMS(im), testutil.RoundTripTolerance,
			"imaginary residue too large for n=%d", n)
	}
}

func TestInverseOfFlatSpectrumIsImpulse(t *testing.T) {
	const n = 128
	p, err := NewPlan(n)
	require.NoError(t, err)

	re := make([]float32, n)
	im := make([]float32, n)
	for k := range n {
		re[k] = 1
	}

	p.Inverse(re, im)

	assert.InDelta(t, 1.0, re[0], 1e-6)
	for i := 1; i < n; i++ {
		assert.InDelta(t, 0.0, re[i], 1e-6, "re[%d]", i)
	}
}

func TestTransformsDoNotAllocate(t *testing.T) {
	const n = 1024
	p, err := NewPlan(n)
	require.NoError(t, err)

	re := randomSignal(n, 7)
	im := make([]float32, n)

	assert.Zero(t, testing.AllocsPerRun(10, func() {
		p.Forward(re, im)
		p.Inverse(re, im)
	}))
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{
		0:     2,
		1:     2,
		2:     2,
		3:     4,
		5:     8,
		1024:  1024,
		11025: 16384,
		65537: 131072,
	}
	for in, want := range cases {
		assert.Equal(t, want, NextPowerOfTwo(in), "NextPowerOfTwo(%d)", in)
	}
}

func TestCacheReturnsSamePlan(t *testing.T) {
	c := NewCache()

	p1, err := c.Get(256)
	require.NoError(t, err)
	p2, err := c.Get(256)
	require.NoError(t, err)
	assert.Same(t, p1, p2, "cache should memoize plans by size")

	_, err = c.Get(300)
	assert.Error(t, err, "non-power-of-two size should propagate the plan error")

	c.Clear()
	p3, err := c.Get(256)
	require.NoError(t, err)
	assert.NotSame(t, p1, p3, "Clear should drop cached plans")
}
