package render

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/jeebie/jeebie/video"
)

func TestLogBuffer(t *testing.T) {
	lb := NewLogBuffer(3)
	assert.Nil(t, lb.Recent(10, slog.LevelDebug))

	levels := []slog.Level{slog.LevelInfo, slog.LevelDebug, slog.LevelWarn, slog.LevelInfo}
	for i, msg := range []string{"a", "b", "c", "d"} {
		lb.Add(LogEntry{Message: msg, Level: levels[i], Time: time.Unix(int64(i), 0)})
	}
	assert.Equal(t, 3, lb.Len())
	assert.Equal(t, uint64(1), lb.Dropped())

	recent := lb.Recent(0, slog.LevelDebug)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Message, "newest first")
	assert.Equal(t, "b", recent[2].Message, "oldest entry was overwritten")

	assert.Len(t, lb.Recent(2, slog.LevelDebug), 2)

	filtered := lb.Recent(0, slog.LevelInfo)
	require.Len(t, filtered, 2)
	assert.Equal(t, "d", filtered[0].Message)
	assert.Equal(t, "c", filtered[1].Message)

	lb.Clear()
	assert.Nil(t, lb.Recent(0, slog.LevelDebug))
	assert.Zero(t, lb.Dropped())
}

func TestLogBufferHandler(t *testing.T) {
	lb := NewLogBuffer(10)
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	logger := slog.New(NewLogBufferHandler(lb, level)).With("component", "apu")
	logger.Debug("hidden")
	logger.Info("Channel muted", "channel", 2)

	recent := lb.Recent(0, slog.LevelDebug)
	require.Len(t, recent, 1)
	assert.Equal(t, "Channel muted component=apu channel=2", recent[0].Message)
	assert.Equal(t, slog.LevelInfo, recent[0].Level)

	level.Set(slog.LevelDebug)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))

	nested := logger.With("ch", 3)
	nested.Warn("Overflow")
	assert.Equal(t, "Overflow component=apu ch=3", lb.Recent(1, slog.LevelDebug)[0].Message)
}

func TestLogEntryString(t *testing.T) {
	ts := time.Date(2024, 1, 1, 13, 4, 5, 0, time.Local)
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "13:04:05 [DBG] msg"},
		{slog.LevelInfo, "13:04:05 [INF] msg"},
		{slog.LevelWarn, "13:04:05 [WRN] msg"},
		{slog.LevelError, "13:04:05 [ERR] msg"},
		{slog.Level(2), "13:04:05 [???] msg"},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LogEntry{Time: ts, Level: tt.level, Message: "msg"}.String())
		})
	}
}

func TestHalfBlock(t *testing.T) {
	r, style := HalfBlock(video.BlackColor, video.BlackColor)
	assert.Equal(t, ' ', r)
	_, bg, _ := style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(0, 0, 0), bg)

	r, style = HalfBlock(video.WhiteColor, video.DarkGreyColor)
	assert.Equal(t, UpperHalfBlock, r)
	fg, bg, _ := style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(0xFF, 0xFF, 0xFF), fg)
	assert.Equal(t, tcell.NewRGBColor(0x4C, 0x4C, 0x4C), bg)
}
