// Package fft implements an in-place radix-2 Cooley-Tukey FFT over split
// real/imaginary float32 arrays.
//
// The transform operates on two parallel slices rather than []complex64
// because the spectral pipeline reads and writes real and imaginary parts
// independently. Twiddle factors are precomputed once per size in a Plan
// and shared read-only between goroutines.
package fft

import (
	"fmt"
	"math"

	"github.com/tphakala/simd/f32"
)

const (
	// Minimum supported transform size (one butterfly pass).
	minTransformSize = 2

	twoPi = 2 * math.Pi
)

// Plan holds the precomputed twiddle tables for one transform size.
// A Plan is immutable after construction and safe for concurrent use,
// provided each caller supplies its own data buffers.
type Plan struct {
	size int

	// Twiddle tables for angles -2*pi*k/size, 0 <= k < size/2.
	cos []float32
	sin []float32
}

// NewPlan creates a transform plan for the given size.
// The size must be a power of two and at least 2.
func NewPlan(size int) (*Plan, error) {
	if size < minTransformSize || size&(size-1) != 0 {
		return nil, fmt.Errorf("fft: size must be a power of two >= %d, got %d", minTransformSize, size)
	}

	half := size / 2
	p := &Plan{
		size: size,
		cos:  make([]float32, half),
		sin:  make([]float32, half),
	}
	for k := range half {
		angle := -twoPi * float64(k) / float64(size)
		p.cos[k] = float32(math.Cos(angle))
		p.sin[k] = float32(math.Sin(angle))
	}
	return p, nil
}

// Size returns the transform size.
func (p *Plan) Size() int {
	return p.size
}

// Forward computes the in-place DFT X[k] = sum x[n]*e^(-2*pi*i*k*n/N).
// Both slices must have length Size. No allocation occurs.
func (p *Plan) Forward(re, im []float32) {
	n := p.size

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	// log2(N) butterfly passes. The twiddle table covers size/2 angles;
	// a pass over sub-transforms of length L steps through it by N/L.
	for length := 2; length <= n; length <<= 1 {
		half := length >> 1
		step := n / length
		for start := 0; start < n; start += length {
			k := 0
			for off := range half {
				i := start + off
				j := i + half
				c, s := p.cos[k], p.sin[k]
				tr := re[j]*c - im[j]*s
				ti := re[j]*s + im[j]*c
				re[j] = re[i] - tr
				im[j] = im[i] - ti
				re[i] += tr
				im[i] += ti
				k += step
			}
		}
	}
}

// Inverse computes the in-place inverse DFT with 1/N scaling.
// It conjugates the input, runs Forward, then conjugates and scales the
// result. Both slices must have length Size. No allocation occurs.
func (p *Plan) Inverse(re, im []float32) {
	for i := range im {
		im[i] = -im[i]
	}

	p.Forward(re, im)

	inv := 1.0 / float32(p.size)
	f32.Scale(re, re, inv)
	f32.Scale(im, im, -inv)
}

// NextPowerOfTwo returns the smallest power of two >= n, but never less
// than the minimum transform size of 2.
func NextPowerOfTwo(n int) int {
	size := minTransformSize
	for size < n {
		size <<= 1
	}
	return size
}
