package engine

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-paulstretch/internal/fft"
	"github.com/tphakala/go-paulstretch/internal/testutil"
	"github.com/tphakala/go-paulstretch/internal/window"
)

// binSine returns a sine landing exactly on FFT bin k0, so its windowed
// spectrum is confined to three bins and has no leakage at DC or Nyquist.
func binSine(n, k0 int) []float32 {
	s := make([]float32, n)
	for i := range n {
		s[i] = float32(math.Sin(2 * math.Pi * float64(k0) * float64(i) / float64(n)))
	}
	return s
}

func windowedSpectrum(t *testing.T, signal, win []float32, plan *fft.Plan) (re, im []float32) {
	t.Helper()
	n := plan.Size()
	re = make([]float32, n)
	im = make([]float32, n)
	for i := range n {
		re[i] = signal[i] * win[i]
	}
	plan.Forward(re, im)
	return re, im
}

func TestRandomizePhasesPreservesMagnitudes(t *testing.T) {
	const n = 1024
	plan, err := fft.NewPlan(n)
	require.NoError(t, err)
	win := window.Hann(n)

	re, im := windowedSpectrum(t, binSine(n, 32), win, plan)

	mags := make([]float64, n/2+1)
	for k := range mags {
		mags[k] = math.Hypot(float64(re[k]), float64(im[k]))
	}

	randomizePhases(re, im, n/2, rand.New(rand.NewPCG(1, 2)))

	for k := range mags {
		got := math.Hypot(float64(re[k]), float64(im[k]))
		assert.InDelta(t, mags[k], got, testutil.MagnitudeTolerance, "bin %d magnitude changed", k)
	}
}

func TestHermitianMirrorSymmetry(t *testing.T) {
	const n = 256
	plan, err := fft.NewPlan(n)
	require.NoError(t, err)
	win := window.Hann(n)

	re, im := windowedSpectrum(t, binSine(n, 17), win, plan)
	randomizePhases(re, im, n/2, rand.New(rand.NewPCG(3, 4)))
	hermitianMirror(re, im)

	for k := 1; k < n/2; k++ {
		assert.Equal(t, re[k], re[n-k], "re mirror at bin %d", k)
		assert.Equal(t, -im[k], im[n-k], "im mirror at bin %d", k)
	}
}

func TestMirroredSpectrumInvertsToRealSignal(t *testing.T) {
	const n = 4096
	plan, err := fft.NewPlan(n)
	require.NoError(t, err)
	win := window.Hann(n)

	re, im := windowedSpectrum(t, binSine(n, 64), win, plan)
	randomizePhases(re, im, n/2, rand.New(rand.NewPCG(5, 6)))
	hermitianMirror(re, im)
	plan.Inverse(re, im)

	maxRe := testutil.PeakAbs(re)
	maxIm := testutil.PeakAbs(im)
	require.Positive(t, maxRe)
	assert.Less(t, float64(maxIm), 1e-5*float64(maxRe),
		"inverse of a Hermitian spectrum must be real to rounding")
}

func TestRephaserSilenceStaysSilent(t *testing.T) {
	const n = 512
	plan, err := fft.NewPlan(n)
	require.NoError(t, err)

	r := NewRephaser(plan, window.Hann(n))
	block := make([]float32, n)
	r.Process(block, rand.New(rand.NewPCG(7, 8)))

	testutil.AssertAllZero(t, block)
}

func TestRephaserDeterministicForSameGenerator(t *testing.T) {
	const n = 512
	plan, err := fft.NewPlan(n)
	require.NoError(t, err)
	win := window.Hann(n)

	signal := binSine(n, 20)
	a := make([]float32, n)
	b := make([]float32, n)
	copy(a, signal)
	copy(b, signal)

	NewRephaser(plan, win).Process(a, rand.New(rand.NewPCG(9, 10)))
	NewRephaser(plan, win).Process(b, rand.New(rand.NewPCG(9, 10)))

	assert.Equal(t, a, b)
}

func TestRephaserAltersWaveform(t *testing.T) {
	const n = 512
	plan, err := fft.NewPlan(n)
	require.NoError(t, err)

	signal := binSine(n, 20)
	block := make([]float32, n)
	copy(block, signal)

	NewRephaser(plan, window.Hann(n)).Process(block, rand.New(rand.NewPCG(11, 12)))

	testutil.AssertNoNaNOrInf(t, block)
	assert.Greater(t, testutil.RMSDiff(block, signal), 1e-3,
		"random phases should rearrange the waveform")
}

func TestPhaseSourceSeededIsSchedulingIndependent(t *testing.T) {
	src := PhaseSource{Seed: 42}

	a := src.ForFrame(1, 7, nil).Float64()
	b := src.ForFrame(1, 7, nil).Float64()
	c := src.ForFrame(1, 8, nil).Float64()
	d := src.ForFrame(2, 7, nil).Float64()

	assert.Equal(t, a, b, "same (channel, frame) must give the same stream")
	assert.NotEqual(t, a, c, "frame must vary the stream")
	assert.NotEqual(t, a, d, "channel must vary the stream")
}

func TestPhaseSourceUnseededUsesFallback(t *testing.T) {
	src := PhaseSource{}
	fallback := rand.New(rand.NewPCG(13, 14))

	assert.Same(t, fallback, src.ForFrame(0, 0, fallback))
}
