package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-paulstretch"
)

const (
	// Samples per channel read from the decoder per chunk.
	readChunkSize = 65536

	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// 16-bit PCM scaling per sign, so -1.0 maps onto the full negative
	// range and +1.0 onto the full positive range.
	negScale16 = 32768.0
	posScale16 = 32767.0

	// WAV format constants
	wavHeaderSize      = 44 // Total WAV header size in bytes
	wavRiffHeaderSize  = 36 // RIFF header size (file size - 8 = riffHeaderSize + dataSize)
	wavPCMSubchunkSize = 16 // fmt subchunk size for PCM format
	wavFileSizeOffset  = 4  // Byte offset for file size field in header
	wavDataSizeOffset  = 40 // Byte offset for data size field in header

	bytesPerSample16 = 2
	bitsPerByte      = 8
	uint32Size       = 4

	// I/O buffer size
	wavWriterBufferSize = 256 * 1024 // 256KB write buffer
)

// wavChannels holds a fully decoded input file as planar float32.
type wavChannels struct {
	rate     int
	bitDepth int
	channels [][]float32
}

// readWAVChannels decodes an entire WAV file into normalized per-channel
// float32 slices.
func readWAVChannels(path string, verbose bool) (*wavChannels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	numChannels := format.NumChannels
	bitDepth := int(decoder.BitDepth)
	if verbose {
		log.Printf("Input format: %d Hz, %d channels, %d-bit", format.SampleRate, numChannels, bitDepth)
	}

	invMaxVal := 1.0 / maxValueForBitDepth(bitDepth)
	intBuffer := &audio.IntBuffer{
		Data:   make([]int, readChunkSize*numChannels),
		Format: format,
	}

	channels := make([][]float32, numChannels)
	for {
		n, err := decoder.PCMBuffer(intBuffer)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}

		// The decoder reports interleaved samples, not frames.
		frames := n / numChannels
		for i := range frames {
			base := i * numChannels
			for ch := range numChannels {
				channels[ch] = append(channels[ch], float32(float64(intBuffer.Data[base+ch])*invMaxVal))
			}
		}
	}

	if len(channels[0]) == 0 {
		return nil, fmt.Errorf("no audio data in %s", path)
	}

	return &wavChannels{
		rate:     format.SampleRate,
		bitDepth: bitDepth,
		channels: channels,
	}, nil
}

// maxValueForBitDepth returns the maximum sample value for the given bit depth.
func maxValueForBitDepth(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// writeWAV16 writes the stretched block as 16-bit little-endian PCM.
func writeWAV16(path string, block *paulstretch.AudioBlock) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	w, err := newFastWAVWriter(f, block.SampleRate, len(block.Channels))
	if err != nil {
		return fmt.Errorf("failed to create WAV writer: %w", err)
	}

	if err := w.WriteChannels(block.Channels); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return w.Close()
}

// fastWAVWriter writes 16-bit PCM data directly without per-sample
// allocations.
type fastWAVWriter struct {
	w          *bufio.Writer
	f          *os.File
	sampleRate int
	channels   int
	dataSize   uint32
	byteBuf    []byte // Preallocated buffer for encoding
}

// newFastWAVWriter creates a writer and emits a header with placeholder
// sizes; Close patches in the real ones.
func newFastWAVWriter(f *os.File, sampleRate, channels int) (*fastWAVWriter, error) {
	w := &fastWAVWriter{
		w:          bufio.NewWriterSize(f, wavWriterBufferSize),
		f:          f,
		sampleRate: sampleRate,
		channels:   channels,
		byteBuf:    make([]byte, readChunkSize*channels*bytesPerSample16),
	}

	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *fastWAVWriter) writeHeader() error {
	byteRate := w.sampleRate * w.channels * bytesPerSample16
	blockAlign := w.channels * bytesPerSample16

	header := make([]byte, wavHeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 0) // Placeholder for file size - 8
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)
	binary.LittleEndian.PutUint16(header[20:22], 1) // AudioFormat (1 = PCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample16)

	// data subchunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // Placeholder for data size

	_, err := w.w.Write(header)
	return err
}

// WriteChannels interleaves planar channels and writes them as 16-bit
// samples, clipping to [-1, 1].
func (w *fastWAVWriter) WriteChannels(channels [][]float32) error {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return nil
	}

	numChannels := len(channels)
	total := len(channels[0])

	for start := 0; start < total; start += readChunkSize {
		frames := min(readChunkSize, total-start)
		buf := w.byteBuf[:frames*numChannels*bytesPerSample16]

		for i := range frames {
			base := (start + i)
			for ch := range numChannels {
				off := (i*numChannels + ch) * bytesPerSample16
				binary.LittleEndian.PutUint16(buf[off:], uint16(quantize16(channels[ch][base])))
			}
		}

		written, err := w.w.Write(buf)
		w.dataSize += uint32(written)
		if err != nil {
			return err
		}
	}
	return nil
}

// quantize16 clips a sample to [-1, 1] and scales it to int16 range.
func quantize16(sample float32) int16 {
	s := float64(sample)
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	if s < 0 {
		return int16(s * negScale16)
	}
	return int16(s * posScale16)
}

// Close flushes the buffer and updates the WAV header with final sizes.
func (w *fastWAVWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}

	fileSize := wavRiffHeaderSize + w.dataSize

	if _, err := w.f.Seek(wavFileSizeOffset, io.SeekStart); err != nil {
		return err
	}
	sizeBytes := make([]byte, uint32Size)
	binary.LittleEndian.PutUint32(sizeBytes, fileSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}

	if _, err := w.f.Seek(wavDataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBytes, w.dataSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}

	return nil
}
