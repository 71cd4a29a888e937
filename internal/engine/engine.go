// Package engine implements the PaulStretch analysis/resynthesis core:
// per-frame spectral rephasing, overlap-add at a fixed output hop, and
// peak normalization. The package is single-threaded by design; the
// dispatch package layers frame-level parallelism on top of it.
package engine

import (
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/tphakala/simd/f32"

	"github.com/tphakala/go-paulstretch/internal/fft"
)

const (
	twoPi = 2 * math.Pi

	// Peak normalization target. The headroom below unity avoids
	// clipping when the output is later quantized to integer PCM.
	peakTarget = 0.95

	// The serial loop yields to the scheduler after this many frames so
	// long stretches don't monopolize a thread.
	yieldInterval = 100

	// Seed stream layout for per-frame generators: channel in the high
	// half, frame index in the low half.
	channelSeedShift = 32

	// Smallest usable analysis window in samples. Degenerate configs
	// (sub-sample windows) are clamped up to this.
	minWindowSamples = 2
)

// Params holds the derived geometry of one stretch call. Stretching is
// achieved by compressing the analysis hop while the output hop stays
// fixed at half the transform size.
type Params struct {
	// WinSamples is the requested window length in input samples.
	WinSamples int

	// FFTSize is WinSamples rounded up to the next power of two.
	FFTSize int

	// HalfSize is FFTSize/2, the fixed output hop.
	HalfSize int

	// Displace is the analysis hop in input samples, HalfSize divided by
	// the stretch factor. It is fractional; positions are floored at
	// array access.
	Displace float64

	// OutputLen is the stretched channel length in samples.
	OutputLen int
}

// DeriveParams computes the stretch geometry for one call.
func DeriveParams(sampleRate, frameCount int, factor, windowSeconds float64) Params {
	win := int(windowSeconds * float64(sampleRate))
	if win < minWindowSamples {
		win = minWindowSamples
	}
	size := fft.NextPowerOfTwo(win)
	half := size / 2

	return Params{
		WinSamples: win,
		FFTSize:    size,
		HalfSize:   half,
		Displace:   float64(half) / factor,
		OutputLen:  int(float64(frameCount) * factor),
	}
}

// FrameCount returns the number of full analysis windows that fit in a
// channel of inputLen samples: frame k starts at floor(k*displace) and
// must end within the input. Frames past the last full window are not
// emitted.
func FrameCount(inputLen, fftSize int, displace float64) int {
	if inputLen < fftSize || displace <= 0 {
		return 0
	}

	n := int(float64(inputLen-fftSize)/displace) + 1
	// The estimate can be off by one either way because positions are
	// floored after a fractional multiply; settle it against the loop
	// predicate.
	for int(float64(n)*displace)+fftSize <= inputLen {
		n++
	}
	for n > 0 && int(float64(n-1)*displace)+fftSize > inputLen {
		n--
	}
	return n
}

// FrameStart returns the input sample position of analysis frame k.
func FrameStart(frame int, displace float64) int {
	return int(float64(frame) * displace)
}

// OverlapAdder accumulates rephased frames into an output channel at the
// fixed half-window hop. Each Add sums the new frame's first half with
// the previous frame's second half, which is the constant-overlap-add
// identity for the double-windowed frames the rephaser produces.
type OverlapAdder struct {
	output []float32
	prev   []float32
	pos    int
	half   int
}

// NewOverlapAdder creates an adder for an output channel of outputLen
// samples built from frames of fftSize samples.
func NewOverlapAdder(outputLen, fftSize int) *OverlapAdder {
	return &OverlapAdder{
		output: make([]float32, outputLen),
		prev:   make([]float32, fftSize),
		half:   fftSize / 2,
	}
}

// Add places the next frame at the current output position and advances
// by the output hop. Frames must arrive in input-position order. Writes
// past the end of the output are dropped.
func (o *OverlapAdder) Add(block []float32) {
	for i := range o.half {
		idx := o.pos + i
		if idx >= len(o.output) {
			break
		}
		o.output[idx] += block[i] + o.prev[o.half+i]
	}
	copy(o.prev, block)
	o.pos += o.half
}

// Output returns the accumulated channel.
func (o *OverlapAdder) Output() []float32 {
	return o.output
}

// NormalizePeak scales samples in place so the loudest sample sits at the
// headroom target. Silent channels are left untouched.
func NormalizePeak(samples []float32) {
	var peak float32
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak > 0 {
		f32.Scale(samples, samples, peakTarget/peak)
	}
}

// PhaseRNG yields the generator used for a given analysis frame.
type PhaseRNG = func(frame int) *rand.Rand

// StretchChannel runs the serial analysis/resynthesis loop over one
// channel and returns the normalized stretched channel. Inputs shorter
// than one window produce a silent channel of the stretched length.
func StretchChannel(input []float32, p Params, reph *Rephaser, phase PhaseRNG) []float32 {
	frames := FrameCount(len(input), p.FFTSize, p.Displace)
	if frames == 0 {
		return make([]float32, p.OutputLen)
	}

	ola := NewOverlapAdder(p.OutputLen, p.FFTSize)
	block := make([]float32, p.FFTSize)

	for k := range frames {
		start := FrameStart(k, p.Displace)
		copy(block, input[start:start+p.FFTSize])
		reph.Process(block, phase(k))
		ola.Add(block)

		if (k+1)%yieldInterval == 0 {
			runtime.Gosched()
		}
	}

	out := ola.Output()
	NormalizePeak(out)
	return out
}
