package paulstretch

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/tphakala/go-paulstretch/internal/dispatch"
	"github.com/tphakala/go-paulstretch/internal/engine"
	"github.com/tphakala/go-paulstretch/internal/fft"
	"github.com/tphakala/go-paulstretch/internal/pipeline"
	"github.com/tphakala/go-paulstretch/internal/window"
)

// Common errors returned by the stretcher.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid stretch configuration")

	// ErrInvalidAudio indicates missing or malformed input audio.
	ErrInvalidAudio = errors.New("invalid input audio")

	// ErrWorkerFailure indicates a parallel worker failed; the stretch
	// produced no output.
	ErrWorkerFailure = errors.New("worker failure")

	// ErrClosed indicates the stretcher has been closed.
	ErrClosed = errors.New("stretcher is closed")
)

// Config holds stretching configuration.
type Config struct {
	// StretchFactor is the output/input duration ratio. The algorithm is
	// designed for extreme factors (2x-50x); values below 1 are allowed
	// but uncommon.
	StretchFactor float64

	// WindowSeconds is the analysis window length in seconds. Larger
	// windows smear the sound further into a texture. Zero selects
	// DefaultWindowSeconds.
	WindowSeconds float64

	// Workers is the number of parallel workers. Zero selects the
	// hardware concurrency; one disables parallelism entirely.
	Workers int

	// Seed, when nonzero, derives all phase randomization
	// deterministically from (seed, channel, frame), so repeated runs
	// and the serial and parallel paths produce identical output. Zero
	// leaves phases nondeterministic, which is the normal mode.
	Seed uint64
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.StretchFactor <= 0 || math.IsInf(c.StretchFactor, 0) || math.IsNaN(c.StretchFactor) {
		return fmt.Errorf("%w: stretch factor must be a finite positive number, got %v", ErrInvalidConfig, c.StretchFactor)
	}
	if c.WindowSeconds < 0 || math.IsInf(c.WindowSeconds, 0) || math.IsNaN(c.WindowSeconds) {
		return fmt.Errorf("%w: window duration must be a finite positive number, got %v", ErrInvalidConfig, c.WindowSeconds)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// AudioBlock is a finite multi-channel sample sequence. All channels
// share the same length and samples are nominally in [-1, 1]; the core
// never clips internally.
type AudioBlock struct {
	// SampleRate is the sample rate in Hz.
	SampleRate int

	// Channels holds one dense sample slice per channel.
	Channels [][]float32
}

// FrameCount returns the per-channel sample count.
func (b *AudioBlock) FrameCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

func (b *AudioBlock) validate() error {
	if b == nil {
		return fmt.Errorf("%w: audio is nil", ErrInvalidAudio)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidAudio, b.SampleRate)
	}
	if len(b.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidAudio)
	}
	frames := len(b.Channels[0])
	if frames == 0 {
		return fmt.Errorf("%w: zero-length channel", ErrInvalidAudio)
	}
	for ch, samples := range b.Channels {
		if len(samples) != frames {
			return fmt.Errorf("%w: channel %d has %d samples, want %d", ErrInvalidAudio, ch, len(samples), frames)
		}
	}
	return nil
}

// Stretcher performs extreme time stretching of audio without shifting
// pitch, after Paul Nasca's PaulStretch algorithm. A Stretcher may be
// reused across inputs; its window and transform-plan caches persist
// until Close. Stretch calls on one Stretcher should be serialized.
type Stretcher struct {
	config  Config
	windows *window.Cache
	plans   *fft.Cache
	pool    *dispatch.Pool

	mu     sync.Mutex
	blocks map[int]*pipeline.BlockPool
	closed bool
}

// New creates a stretcher with the specified configuration. The worker
// pool is created here and lives until Close.
func New(config *Config) (*Stretcher, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = DefaultWindowSeconds
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	s := &Stretcher{
		config:  cfg,
		windows: window.NewCache(),
		plans:   fft.NewCache(),
		blocks:  make(map[int]*pipeline.BlockPool),
	}
	// A single worker gains nothing from dispatch overhead; the serial
	// engine handles that case directly.
	if cfg.Workers > 1 {
		s.pool = dispatch.NewPool(cfg.Workers)
	}
	return s, nil
}

// Config returns the effective configuration after defaults were applied.
func (s *Stretcher) Config() Config {
	return s.config
}

// Stretch lengthens audio by the configured factor and returns a new
// block with floor(frames*factor) frames per channel at the input sample
// rate. onProgress, when non-nil, receives a monotonically non-decreasing
// completion fraction in [0, 1]; it is always called from the current
// goroutine. No partial output is returned on failure.
func (s *Stretcher) Stretch(audio *AudioBlock, onProgress func(float64)) (*AudioBlock, error) {
	if err := audio.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	params := engine.DeriveParams(audio.SampleRate, audio.FrameCount(), s.config.StretchFactor, s.config.WindowSeconds)
	plan, err := s.plans.Get(params.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	win := s.windows.Get(params.FFTSize)
	progress := newProgressSink(onProgress)
	source := engine.PhaseSource{Seed: s.config.Seed}

	var out [][]float32
	if s.pool == nil {
		out = s.stretchSerial(audio.Channels, params, plan, win, source, progress)
	} else {
		out, err = dispatch.Stretch(s.pool, audio.Channels, dispatch.Config{
			Params:   params,
			Plan:     plan,
			Window:   win,
			Blocks:   s.blockPool(params.FFTSize),
			Phase:    source,
			Progress: progress.frames,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWorkerFailure, err)
		}
	}

	progress.finish()
	return &AudioBlock{SampleRate: audio.SampleRate, Channels: out}, nil
}

// stretchSerial is the single-threaded reference path, used when the
// stretcher was configured with one worker.
func (s *Stretcher) stretchSerial(input [][]float32, params engine.Params, plan *fft.Plan, win []float32, source engine.PhaseSource, progress *progressSink) [][]float32 {
	output := make([][]float32, len(input))
	reph := engine.NewRephaser(plan, win)

	for ch, samples := range input {
		fallback := source.NewFallback()
		phase := func(frame int) *rand.Rand {
			return source.ForFrame(ch, frame, fallback)
		}
		output[ch] = engine.StretchChannel(samples, params, reph, phase)
		progress.frames(ch+1, len(input))
	}
	return output
}

// blockPool returns the frame-buffer pool for one transform size.
func (s *Stretcher) blockPool(size int) *pipeline.BlockPool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.blocks[size]
	if !ok {
		p = pipeline.NewBlockPool(size)
		s.blocks[size] = p
	}
	return p
}

// Close terminates the worker pool and drops all caches. The stretcher
// cannot be used afterwards. Close is idempotent.
func (s *Stretcher) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, p := range s.blocks {
		p.Clear()
	}
	s.blocks = nil
	s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
	}
	s.windows.Clear()
	s.plans.Clear()
}

// progressSink wraps the caller's progress callback, clamping fractions
// to at most 1 and dropping any update that would decrease them. All calls happen on the stretching
// goroutine, so no synchronization is needed.
type progressSink struct {
	fn   func(float64)
	last float64
}

func newProgressSink(fn func(float64)) *progressSink {
	return &progressSink{fn: fn}
}

// frames reports done of total work items complete.
func (p *progressSink) frames(done, total int) {
	if p.fn == nil || total == 0 {
		return
	}
	frac := float64(done) / float64(total)
	if frac > 1 {
		frac = 1
	}
	if frac < p.last {
		return
	}
	p.last = frac
	p.fn(frac)
}

// finish reports completion.
func (p *progressSink) finish() {
	if p.fn == nil {
		return
	}
	if p.last < 1 {
		p.last = 1
		p.fn(1)
	}
}
