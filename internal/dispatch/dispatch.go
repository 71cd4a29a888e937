// Package dispatch distributes per-frame spectral work across a worker
// pool and reassembles the results in input-position order.
//
// The work plan splits each channel's analysis frames into contiguous
// chunks, submits them round-robin to the pool, and collects processed
// frames tagged with the input position they were cut from. Because
// chunks complete out of order, each channel's frames are sorted by
// position before the overlap-add pass, which runs in the calling
// goroutine. Workers only read shared immutable state (input samples,
// window, transform plan) and never touch the output.
package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tphakala/go-paulstretch/internal/engine"
	"github.com/tphakala/go-paulstretch/internal/fft"
	"github.com/tphakala/go-paulstretch/internal/pipeline"
)

const (
	// Target chunks per worker per channel. A small multiple keeps all
	// workers busy while frame costs vary, without drowning the queue
	// in tiny units.
	unitsPerWorker = 3

	// Queue slots per worker. Submissions beyond this block until a
	// worker frees a slot.
	queueDepthPerWorker = 2
)

// Pool is a fixed set of worker goroutines consuming a task queue. It is
// created once per stretcher and reused across stretch calls.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	size  int
}

// NewPool starts a pool of the given number of workers.
func NewPool(workers int) *Pool {
	p := &Pool{
		tasks: make(chan func(), workers*queueDepthPerWorker),
		size:  workers,
	}
	for range workers {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues a task, blocking while the queue is full.
func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Close stops accepting tasks and waits for the workers to drain.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

// Unit describes a contiguous run of analysis frames for one channel.
// Units carry indices against shared input data rather than sliced
// copies, so dispatch itself moves no samples.
type Unit struct {
	Channel    int
	StartFrame int
	FrameCount int
}

// SplitFrames partitions each channel's frames into units sized for
// roughly unitsPerWorker chunks per worker per channel.
func SplitFrames(channels, frames, workers int) []Unit {
	chunk := frames / (workers * unitsPerWorker)
	if chunk < 1 {
		chunk = 1
	}

	var units []Unit
	for ch := range channels {
		for start := 0; start < frames; start += chunk {
			count := chunk
			if start+count > frames {
				count = frames - start
			}
			units = append(units, Unit{Channel: ch, StartFrame: start, FrameCount: count})
		}
	}
	return units
}

// Processed is one rephased frame tagged with the input position its
// window was cut from, the sort key for reassembly.
type Processed struct {
	Frame    int
	InputPos int
	Block    []float32
}

type unitResult struct {
	unit   Unit
	blocks []Processed
	err    error
}

// Config carries the shared read-only plan for one parallel stretch call.
type Config struct {
	Params engine.Params
	Plan   *fft.Plan
	Window []float32
	Blocks *pipeline.BlockPool
	Phase  engine.PhaseSource

	// Progress, when non-nil, is called from the dispatching goroutine
	// after each unit completes with the number of frames finished so
	// far and the total.
	Progress func(done, total int)
}

// Stretch processes all channels of input through the pool and returns
// the stretched, normalized channels. On any worker failure the whole
// call fails and no partial output is returned.
func Stretch(pool *Pool, input [][]float32, cfg Config) ([][]float32, error) {
	channels := len(input)
	output := make([][]float32, channels)

	frames := engine.FrameCount(len(input[0]), cfg.Params.FFTSize, cfg.Params.Displace)
	if frames == 0 {
		for ch := range output {
			output[ch] = make([]float32, cfg.Params.OutputLen)
		}
		return output, nil
	}

	units := SplitFrames(channels, frames, pool.Size())
	results := make(chan unitResult, len(units))
	for _, u := range units {
		pool.Submit(func() {
			results <- processUnit(u, input[u.Channel], cfg)
		})
	}

	// Collect every unit before failing so no worker is left blocked on
	// the results channel.
	perChannel := make([][]Processed, channels)
	for ch := range perChannel {
		perChannel[ch] = make([]Processed, 0, frames)
	}
	totalFrames := frames * channels
	var failure error
	done := 0

	for range units {
		res := <-results
		if res.err != nil {
			if failure == nil {
				failure = res.err
			}
			recycleBlocks(cfg.Blocks, res.blocks)
			continue
		}
		if failure != nil {
			recycleBlocks(cfg.Blocks, res.blocks)
			continue
		}

		perChannel[res.unit.Channel] = append(perChannel[res.unit.Channel], res.blocks...)
		done += res.unit.FrameCount
		if cfg.Progress != nil {
			cfg.Progress(done, totalFrames)
		}
	}

	if failure != nil {
		for _, blocks := range perChannel {
			recycleBlocks(cfg.Blocks, blocks)
		}
		return nil, failure
	}

	// Round-robin dispatch completes out of order; restore input order
	// per channel before overlap-add.
	for ch := range perChannel {
		blocks := perChannel[ch]
		sort.Slice(blocks, func(i, j int) bool {
			if blocks[i].InputPos != blocks[j].InputPos {
				return blocks[i].InputPos < blocks[j].InputPos
			}
			// Sub-sample hops can floor two frames to one position;
			// frame index breaks the tie.
			return blocks[i].Frame < blocks[j].Frame
		})

		ola := engine.NewOverlapAdder(cfg.Params.OutputLen, cfg.Params.FFTSize)
		for _, pb := range blocks {
			ola.Add(pb.Block)
			cfg.Blocks.Put(pb.Block)
		}
		out := ola.Output()
		engine.NormalizePeak(out)
		output[ch] = out
	}

	return output, nil
}

// processUnit rephases one unit's frames. A panic in the spectral path is
// converted to an error so a bad frame aborts the stretch instead of
// killing the worker.
func processUnit(u Unit, channel []float32, cfg Config) (res unitResult) {
	defer func() {
		if r := recover(); r != nil {
			res = unitResult{unit: u, err: fmt.Errorf("worker: channel %d frames %d..%d: %v",
				u.Channel, u.StartFrame, u.StartFrame+u.FrameCount-1, r)}
		}
	}()

	reph := engine.NewRephaser(cfg.Plan, cfg.Window)
	fallback := cfg.Phase.NewFallback()

	blocks := make([]Processed, 0, u.FrameCount)
	for i := range u.FrameCount {
		frame := u.StartFrame + i
		start := engine.FrameStart(frame, cfg.Params.Displace)

		block := cfg.Blocks.Get()
		copy(block, channel[start:start+cfg.Params.FFTSize])
		reph.Process(block, cfg.Phase.ForFrame(u.Channel, frame, fallback))

		blocks = append(blocks, Processed{Frame: frame, InputPos: start, Block: block})
	}
	return unitResult{unit: u, blocks: blocks}
}

func recycleBlocks(pool *pipeline.BlockPool, blocks []Processed) {
	for _, pb := range blocks {
		pool.Put(pb.Block)
	}
}
