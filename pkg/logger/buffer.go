package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultBufferSize = 1000

type entry struct {
	level slog.Level
	line  string
}

// RingBuffer keeps the newest log records, rendered one per line. It backs
// the docking://logs resources.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []entry
	next    int
	full    bool
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &RingBuffer{entries: make([]entry, capacity)}
}

// Append stores line at info level.
func (b *RingBuffer) Append(line string) {
	b.append(slog.LevelInfo, line)
}

func (b *RingBuffer) append(level slog.Level, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = entry{level: level, line: line}
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// GetLast returns up to n of the newest lines, oldest first. n <= 0 returns everything.
func (b *RingBuffer) GetLast(n int) []string {
	return b.collect(n, slog.LevelDebug)
}

// GetLastAtLevel is GetLast restricted to records at or above floor.
func (b *RingBuffer) GetLastAtLevel(n int, floor slog.Level) []string {
	return b.collect(n, floor)
}

func (b *RingBuffer) collect(n int, floor slog.Level) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := b.next
	if b.full {
		size = len(b.entries)
	}
	if n <= 0 || n > size {
		n = size
	}

	// Walk backwards from the newest entry, then reverse.
	out := make([]string, 0, n)
	for i := 1; i <= size && len(out) < n; i++ {
		e := b.entries[(b.next-i+len(b.entries))%len(b.entries)]
		if e.level >= floor {
			out = append(out, e.line)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (b *RingBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}

func (b *RingBuffer) Capacity() int { return len(b.entries) }

// bufferingHandler tees records to the next handler and to the ring buffer.
type bufferingHandler struct {
	next   slog.Handler
	buffer *RingBuffer
	prefix string // pre-rendered attrs from WithAttrs
	group  string
}

func newBufferingHandler(next slog.Handler, buffer *RingBuffer) slog.Handler {
	return &bufferingHandler{next: next, buffer: buffer}
}

func (h *bufferingHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h *bufferingHandler) Handle(ctx context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var sb strings.Builder
	sb.WriteString(ts.Format(time.RFC3339))
	sb.WriteByte(' ')
	sb.WriteString(r.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	sb.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.group, a)
		return true
	})
	h.buffer.append(r.Level, sb.String())
	return h.next.Handle(ctx, r)
}

func writeAttr(sb *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			group = joinGroup(group, a.Key)
		}
		for _, ga := range a.Value.Group() {
			writeAttr(sb, group, ga)
		}
		return
	}
	sb.WriteByte(' ')
	if group != "" {
		sb.WriteString(group)
		sb.WriteByte('.')
	}
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(a.Value.String())
}

func joinGroup(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func (h *bufferingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&sb, h.group, a)
	}
	return &bufferingHandler{next: h.next.WithAttrs(attrs), buffer: h.buffer, prefix: sb.String(), group: h.group}
}

func (h *bufferingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &bufferingHandler{next: h.next.WithGroup(name), buffer: h.buffer, prefix: h.prefix, group: joinGroup(h.group, name)}
}
