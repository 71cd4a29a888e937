// Package paulstretch provides extreme audio time stretching in pure Go.
//
// This library implements the PaulStretch algorithm by Paul Nasca: audio
// is lengthened by an arbitrary factor (typically 2x-50x) without
// shifting pitch, producing the characteristic smeared, ambient texture
// of the original program. It is built for extreme stretches; it makes no
// attempt to preserve transients at small factors.
//
// # Features
//
//   - Arbitrary stretch factors, including fractional and sub-unity
//   - Radix-2 FFT core with cached per-size transform plans
//   - Parallel frame processing over a fixed worker pool
//   - Deterministic output with an optional seed
//   - Multi-channel support; channels are processed independently
//   - Pure Go implementation with no CGO dependencies
//
// # Quick Start
//
// For simple one-shot stretching:
//
//	output, err := paulstretch.StretchMono(input, 44100, 8.0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For a reusable stretcher with explicit configuration:
//
//	s, err := paulstretch.New(&paulstretch.Config{
//	    StretchFactor: 8.0,
//	    WindowSeconds: 0.25,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	stretched, err := s.Stretch(&paulstretch.AudioBlock{
//	    SampleRate: 44100,
//	    Channels:   [][]float32{left, right},
//	}, nil)
//
// # Algorithm
//
// The input is cut into overlapping windows of WindowSeconds length,
// rounded up to a power-of-two number of samples.
// Each window is multiplied by a raised-cosine window, transformed to the
// frequency domain, and every bin's phase is replaced by a uniform random
// value while its magnitude is kept. The spectrum is mirrored to stay
// Hermitian, transformed back, windowed a second time, and overlap-added
// into the output at a fixed half-window hop. Time stretch comes from
// compressing the analysis hop by the stretch factor rather than
// expanding the synthesis hop. Each output channel is peak-normalized to
// 0.95 at the end.
//
// Because phases are randomized, output differs between runs unless a
// Seed is set in the Config. With a seed, phases derive from
// (seed, channel, frame) and the serial and parallel paths produce
// identical output.
//
// # Thread Safety
//
// A Stretcher's caches and worker pool are internally synchronized, but
// calls to Stretch on the same instance should be serialized. Distinct
// Stretcher instances are fully independent.
package paulstretch
