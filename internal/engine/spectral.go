package engine

import (
	"math"
	"math/rand/v2"

	"github.com/tphakala/go-paulstretch/internal/fft"
)

// Rephaser applies the per-frame spectral transform that gives the
// stretched output its smeared character: window, forward FFT, magnitude
// extraction with uniform random phase, Hermitian mirroring, inverse FFT,
// and a second windowing to taper the frame edges.
//
// A Rephaser owns its complex scratch buffers and is not safe for
// concurrent use; each worker creates its own against the shared plan
// and window.
type Rephaser struct {
	plan   *fft.Plan
	window []float32

	re []float32
	im []float32
}

// NewRephaser creates a rephaser against a shared transform plan and
// window. The window must have the plan's transform size.
func NewRephaser(plan *fft.Plan, window []float32) *Rephaser {
	n := plan.Size()
	return &Rephaser{
		plan:   plan,
		window: window,
		re:     make([]float32, n),
		im:     make([]float32, n),
	}
}

// Process overwrites block, which must hold fftSize raw input samples,
// with the rephased and re-windowed frame. The generator is drawn exactly
// size/2+1 times, once per non-negative frequency bin.
func (r *Rephaser) Process(block []float32, rng *rand.Rand) {
	n := r.plan.Size()
	w := r.window

	for i := range n {
		r.re[i] = block[i] * w[i]
		r.im[i] = 0
	}

	r.plan.Forward(r.re, r.im)
	randomizePhases(r.re, r.im, n/2, rng)
	hermitianMirror(r.re, r.im)
	r.plan.Inverse(r.re, r.im)

	for i := range n {
		block[i] = r.re[i] * w[i]
	}
}

// randomizePhases replaces the phase of bins [0, half] with uniform random
// values while preserving each bin's magnitude.
func randomizePhases(re, im []float32, half int, rng *rand.Rand) {
	for k := 0; k <= half; k++ {
		m := math.Sqrt(float64(re[k])*float64(re[k]) + float64(im[k])*float64(im[k]))
		phi := rng.Float64() * twoPi
		sin, cos := math.Sincos(phi)
		re[k] = float32(m * cos)
		im[k] = float32(m * sin)
	}
}

// hermitianMirror enforces X[N-k] = conj(X[k]) for k in [1, N/2), which
// keeps the inverse transform real-valued to rounding. Bins 0 and N/2 are
// their own mirror images and are left as assigned.
func hermitianMirror(re, im []float32) {
	n := len(re)
	for k := 1; k < n/2; k++ {
		re[n-k] = re[k]
		im[n-k] = -im[k]
	}
}

// PhaseSource derives the random generators that drive phase
// randomization. With a zero seed every caller keeps a private
// generator, so output varies run to run and between the serial and
// parallel paths. With a nonzero seed a generator is derived per
// (channel, frame), making output identical regardless of how frames are
// scheduled across workers.
type PhaseSource struct {
	Seed uint64
}

// ForFrame returns the generator for one analysis frame. fallback is the
// caller's private generator, used when the source is unseeded.
func (p PhaseSource) ForFrame(channel, frame int, fallback *rand.Rand) *rand.Rand {
	if p.Seed == 0 {
		return fallback
	}
	stream := uint64(channel)<<channelSeedShift ^ uint64(uint32(frame))
	return rand.New(rand.NewPCG(p.Seed, stream))
}

// NewFallback returns a fresh private generator for an unseeded caller.
func (p PhaseSource) NewFallback() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
