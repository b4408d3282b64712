package output

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Sink receives sidecar output lines.
//
// Emit is called from two reader goroutines at once (one per stream), so
// implementations must be safe for concurrent use and must treat each call
// as one atomic unit. There is no backpressure: a slow sink stalls the reader
// that called it, which in turn stalls the sidecar once its pipe fills.
type Sink interface {
	Emit(line Line)
}

// Compile-time verification that the provided sinks implement Sink.
var (
	_ Sink = Func(nil)
	_ Sink = (*Writer)(nil)
	_ Sink = (*Log)(nil)
	_ Sink = (*Ring)(nil)
	_ Sink = Multi(nil)
	_ Sink = Discard
)

// Func adapts a function to a Sink. The function must be safe for
// concurrent use.
type Func func(line Line)

// Emit implements Sink.
func (f Func) Emit(line Line) {
	f(line)
}

type discard struct{}

func (discard) Emit(Line) {}

// Discard drops every line.
var Discard Sink = discard{}

// Multi fans a line out to every sink in order.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(line Line) {
	for _, s := range m {
		s.Emit(line)
	}
}

// Writer writes each line to an io.Writer with a single Write call under a
// mutex, so concurrent lines never interleave mid-line.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	prefix bool
}

// NewWriter creates a Writer sink. When prefix is true, each line is
// written as "[stream] text".
func NewWriter(w io.Writer, prefix bool) *Writer {
	return &Writer{w: w, prefix: prefix}
}

// Emit implements Sink.
func (s *Writer) Emit(line Line) {
	buf := make([]byte, 0, len(line.Text)+10)

	if s.prefix {
		buf = append(buf, '[')
		buf = append(buf, line.Stream.String()...)
		buf = append(buf, "] "...)
	}

	buf = append(buf, line.Text...)
	buf = append(buf, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.w.Write(buf)
}

// Write writes p under the same mutex as Emit, letting other output share
// the destination without tearing sidecar lines.
func (s *Writer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}

// Log records each line through a slog.Logger.
type Log struct {
	log   *slog.Logger
	level slog.Level
}

// NewLog creates a sink logging at the given level.
func NewLog(log *slog.Logger, level slog.Level) *Log {
	return &Log{log: log.With("component", "sidecar_output"), level: level}
}

// Emit implements Sink.
func (s *Log) Emit(line Line) {
	s.log.LogAttrs(context.Background(), s.level, line.Text,
		slog.String("stream", line.Stream.String()),
		slog.String("instance", line.Instance),
	)
}

// Ring keeps the most recent lines in a bounded buffer.
type Ring struct {
	mu    sync.Mutex
	lines []Line
	next  int
	full  bool
}

// NewRing creates a Ring holding up to size lines. A size below one is
// treated as one.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}

	return &Ring{lines: make([]Line, size)}
}

// Emit implements Sink.
func (r *Ring) Emit(line Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)

	if r.next == 0 {
		r.full = true
	}
}

// Tail returns up to n of the most recent lines, oldest first.
// A non-positive n returns everything buffered.
func (r *Ring) Tail(n int) []Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	if r.full {
		count = len(r.lines)
	}

	if n <= 0 || n > count {
		n = count
	}

	out := make([]Line, 0, n)
	start := (r.next - n + len(r.lines)) % len(r.lines)

	for i := range n {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}

	return out
}
