// Package diag collects optional per-frame timing counters.
package diag

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

// Frame holds the counters accumulated over one emulated frame.
type Frame struct {
	Frame    uint64
	CPUTicks uint64
	DMATicks uint64
	Samples  int
}

// Sink receives one record per completed frame.
type Sink interface {
	RecordFrame(f Frame)
	Close() error
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) RecordFrame(Frame) {}
func (NoOp) Close() error      { return nil }

var csvHeader = []string{"frame", "cpu_ticks", "dma_ticks", "samples"}

// CSVSink writes frame records as CSV rows. The first write error is kept
// and returned by Close, later records are dropped.
type CSVSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	err    error
}

// NewCSVSink writes the header line and returns a sink appending to w.
func NewCSVSink(w io.Writer) *CSVSink {
	s := &CSVSink{w: csv.NewWriter(w)}
	s.err = s.w.Write(csvHeader)
	return s
}

// CreateCSVSink truncates or creates path.
func CreateCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating diagnostics file: %w", err)
	}
	s := NewCSVSink(f)
	s.closer = f
	return s, nil
}

func (s *CSVSink) RecordFrame(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = s.w.Write([]string{
		strconv.FormatUint(f.Frame, 10),
		strconv.FormatUint(f.CPUTicks, 10),
		strconv.FormatUint(f.DMATicks, 10),
		strconv.Itoa(f.Samples),
	})
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	if s.err == nil {
		s.err = s.w.Error()
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil && s.err == nil {
			s.err = err
		}
		s.closer = nil
	}
	return s.err
}
