package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry is a captured log record, attributes already flattened into Message.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

var levelTags = map[slog.Level]string{
	slog.LevelDebug: "DBG",
	slog.LevelInfo:  "INF",
	slog.LevelWarn:  "WRN",
	slog.LevelError: "ERR",
}

// String renders the entry as a single panel line.
func (e LogEntry) String() string {
	tag, ok := levelTags[e.Level]
	if !ok {
		tag = "???"
	}
	return fmt.Sprintf("%s [%s] %s", e.Time.Format("15:04:05"), tag, e.Message)
}

// LogBuffer keeps the last N log entries. Safe for concurrent use: the
// emulation goroutine logs while the presentation loop reads.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []LogEntry
	next    int
	written uint64
}

func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{ring: make([]LogEntry, capacity)}
}

func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.ring[lb.next] = entry
	lb.next = (lb.next + 1) % len(lb.ring)
	lb.written++
}

// Len is the number of entries currently held.
func (lb *LogBuffer) Len() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.held()
}

// Dropped is the number of entries overwritten since the last Clear.
func (lb *LogBuffer) Dropped() uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.written - uint64(lb.held())
}

func (lb *LogBuffer) held() int {
	return int(min(lb.written, uint64(len(lb.ring))))
}

// Recent returns up to limit entries at or above minLevel, newest first.
// A limit of 0 means no limit.
func (lb *LogBuffer) Recent(limit int, minLevel slog.Level) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	var out []LogEntry
	for i := 1; i <= lb.held(); i++ {
		e := lb.ring[(lb.next-i+len(lb.ring))%len(lb.ring)]
		if e.Level < minLevel {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.next, lb.written = 0, 0
}

// LogBufferHandler is a slog.Handler feeding a LogBuffer. Level is
// consulted on every record, so a *slog.LevelVar can be changed live.
type LogBufferHandler struct {
	buffer *LogBuffer
	level  slog.Leveler
	prefix string
}

func NewLogBufferHandler(buffer *LogBuffer, level slog.Leveler) *LogBufferHandler {
	return &LogBufferHandler{buffer: buffer, level: level}
}

func (h *LogBufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogBufferHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Message)
	b.WriteString(h.prefix)
	record.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})

	h.buffer.Add(LogEntry{Time: record.Time, Level: record.Level, Message: b.String()})
	return nil
}

// WithAttrs pre-renders attrs, they are written after the message of
// every later record.
func (h *LogBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&b, a)
	}
	return &LogBufferHandler{buffer: h.buffer, level: h.level, prefix: b.String()}
}

// WithGroup flattens: group names are dropped.
func (h *LogBufferHandler) WithGroup(string) slog.Handler {
	return h
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	fmt.Fprintf(b, " %s=%v", a.Key, a.Value)
}
