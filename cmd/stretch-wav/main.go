// Command stretch-wav applies extreme PaulStretch time stretching to WAV
// audio files.
//
// Usage:
//
//	stretch-wav -stretch 8 input.wav output.wav
//	stretch-wav -stretch 30 -window 0.25 pad.wav texture.wav
//	stretch-wav -stretch 8 -seed 1 -workers 1 input.wav output.wav  # Reproducible
//
// The output is always 16-bit PCM at the input sample rate. Parallel
// frame processing is enabled by default.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/go-paulstretch"
)

const (
	// CLI defaults
	defaultStretch = 8.0
	defaultWindow  = 0.25

	minRequiredArgs = 2

	progressScale    = 100
	progressInterval = 10 // Print progress every N%
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stretch := flag.Float64("stretch", defaultStretch, "Stretch factor (output duration / input duration)")
	windowSec := flag.Float64("window", defaultWindow, "Analysis window in seconds (larger smears more)")
	workers := flag.Int("workers", 0, "Worker count (0 = number of CPUs, 1 = serial)")
	seed := flag.Uint64("seed", 0, "Phase randomization seed (0 = nondeterministic)")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -stretch 8 song.wav song_8x.wav        # Classic 8x stretch\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -stretch 50 hit.wav drone.wav          # Extreme texture\n", os.Args[0])
		return fmt.Errorf("insufficient arguments")
	}
	inputPath := args[0]
	outputPath := args[1]

	if *verbose {
		log.Printf("Input: %s", inputPath)
		log.Printf("Output: %s", outputPath)
		log.Printf("Stretch factor: %.2fx, window %.3fs", *stretch, *windowSec)
		if *seed != 0 {
			log.Printf("Seed: %d (deterministic phases)", *seed)
		}
	}

	start := time.Now()
	stats, err := stretchWAV(inputPath, outputPath, &paulstretch.Config{
		StretchFactor: *stretch,
		WindowSeconds: *windowSec,
		Workers:       *workers,
		Seed:          *seed,
	}, *verbose)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Stretched %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  %d Hz, %d channels, %d-bit source\n", stats.rate, stats.channels, stats.bitDepth)
	fmt.Printf("  %d samples -> %d samples (%.2fx)\n", stats.inputSamples, stats.outputSamples, *stretch)
	fmt.Printf("  Duration: %.2fs\n", elapsed.Seconds())

	return nil
}

type stretchStats struct {
	rate          int
	channels      int
	bitDepth      int
	inputSamples  int
	outputSamples int
}

// stretchWAV decodes the input file, stretches all channels, and writes
// the result as 16-bit PCM.
func stretchWAV(inputPath, outputPath string, config *paulstretch.Config, verbose bool) (*stretchStats, error) {
	input, err := readWAVChannels(inputPath, verbose)
	if err != nil {
		return nil, err
	}

	stretcher, err := paulstretch.New(config)
	if err != nil {
		return nil, err
	}
	defer stretcher.Close()

	progress := newProgressLogger(verbose)
	out, err := stretcher.Stretch(&paulstretch.AudioBlock{
		SampleRate: input.rate,
		Channels:   input.channels,
	}, progress.report)
	if err != nil {
		return nil, fmt.Errorf("stretch failed: %w", err)
	}

	if err := writeWAV16(outputPath, out); err != nil {
		return nil, err
	}

	return &stretchStats{
		rate:          input.rate,
		channels:      len(input.channels),
		bitDepth:      input.bitDepth,
		inputSamples:  len(input.channels[0]),
		outputSamples: len(out.Channels[0]),
	}, nil
}

// progressLogger prints coarse progress in verbose mode.
type progressLogger struct {
	verbose bool
	last    int
}

func newProgressLogger(verbose bool) *progressLogger {
	return &progressLogger{verbose: verbose}
}

func (p *progressLogger) report(fraction float64) {
	if !p.verbose {
		return
	}
	pct := int(fraction * progressScale)
	if pct >= p.last+progressInterval {
		log.Printf("Progress: %d%%", pct)
		p.last = pct
	}
}
