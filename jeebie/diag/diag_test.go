package diag

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSink(t *testing.T) {
	var sb strings.Builder
	s := NewCSVSink(&sb)
	s.RecordFrame(Frame{Frame: 1, CPUTicks: 70224, DMATicks: 640, Samples: 738})
	s.RecordFrame(Frame{Frame: 2, CPUTicks: 70228, Samples: 739})
	require.NoError(t, s.Close())

	want := "frame,cpu_ticks,dma_ticks,samples\n" +
		"1,70224,640,738\n" +
		"2,70228,0,739\n"
	assert.Equal(t, want, sb.String())
}

func TestCreateCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.csv")
	s, err := CreateCSVSink(path)
	require.NoError(t, err)
	s.RecordFrame(Frame{Frame: 7})
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "frame,cpu_ticks,dma_ticks,samples\n7,0,0,0\n", string(data))

	_, err = CreateCSVSink(filepath.Join(t.TempDir(), "missing", "x.csv"))
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVSinkError(t *testing.T) {
	s := NewCSVSink(failingWriter{})
	s.RecordFrame(Frame{Frame: 1})
	assert.EqualError(t, s.Close(), "disk full")
}

func TestNoOp(t *testing.T) {
	var s Sink = NoOp{}
	s.RecordFrame(Frame{})
	assert.NoError(t, s.Close())
}
