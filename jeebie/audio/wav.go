package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/sync/errgroup"
)

const (
	wavBitDepth  = 16
	wavChannels  = 2
	wavPCMFormat = 1

	// DefaultChunkSamples is the number of stereo samples collected before
	// a chunk is handed to the encoder.
	DefaultChunkSamples = 4096
)

// WavExporter streams 16 bit stereo samples to a RIFF/WAVE file. Samples
// are collected in one of two chunks, a full chunk is encoded in the
// background while the other one fills. The header sizes are patched by
// Close.
type WavExporter struct {
	closer io.Closer
	enc    *wav.Encoder
	format *audio.Format

	chunk  int // in interleaved values
	active []int
	spare  []int
	flush  errgroup.Group
	err    error
}

// CreateWavExporter creates (or truncates) the file at path.
func CreateWavExporter(path string, sampleRate int) (*WavExporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating WAV file: %w", err)
	}
	e := NewWavExporter(f, sampleRate, DefaultChunkSamples)
	e.closer = f
	return e, nil
}

// NewWavExporter writes to w, flushing every chunkSamples stereo samples.
// Closing the exporter does not close w.
func NewWavExporter(w io.WriteSeeker, sampleRate, chunkSamples int) *WavExporter {
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	chunk := chunkSamples * wavChannels
	return &WavExporter{
		enc:    wav.NewEncoder(w, sampleRate, wavBitDepth, wavChannels, wavPCMFormat),
		format: &audio.Format{NumChannels: wavChannels, SampleRate: sampleRate},
		chunk:  chunk,
		active: make([]int, 0, chunk),
		spare:  make([]int, 0, chunk),
	}
}

// Write appends interleaved left/right samples.
func (e *WavExporter) Write(samples []int16) error {
	if e.err != nil {
		return e.err
	}
	for _, s := range samples {
		e.active = append(e.active, int(s))
		if len(e.active) < e.chunk {
			continue
		}
		if err := e.swap(); err != nil {
			return err
		}
	}
	return nil
}

// swap waits for the previous chunk to be encoded, then hands the full
// chunk to the encoder and keeps filling the other one.
func (e *WavExporter) swap() error {
	if err := e.flush.Wait(); err != nil {
		e.err = err
		return err
	}
	full := e.active
	e.active, e.spare = e.spare[:0], full
	e.flush.Go(func() error {
		return e.encode(full)
	})
	return nil
}

// encode also writes the header on first use, so an empty final chunk
// still yields a valid file.
func (e *WavExporter) encode(data []int) error {
	buf := &audio.IntBuffer{Format: e.format, Data: data, SourceBitDepth: wavBitDepth}
	if err := e.enc.Write(buf); err != nil {
		return fmt.Errorf("writing WAV samples: %w", err)
	}
	return nil
}

// Close flushes what is left, patches the header and closes the file if
// the exporter created it.
func (e *WavExporter) Close() error {
	err := e.flush.Wait()
	if err == nil && e.err == nil {
		err = e.encode(e.active)
		e.active = e.active[:0]
	}
	if err == nil {
		err = e.err
	}
	if cerr := e.enc.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing WAV encoder: %w", cerr)
	}
	if e.closer != nil {
		if cerr := e.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
