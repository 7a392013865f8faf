package ledger

import (
	"io"
	"reflect"
	"strings"
	"sync"
)

// StreamSink writes each line followed by a newline to an io.Writer.
// The writer is never closed by the sink.
type StreamSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamSink returns a sink writing to w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Write(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := linePool.Get().(*strings.Builder)
	buf.Reset()
	defer linePool.Put(buf)

	buf.Grow(len(line) + 1)
	buf.WriteString(line)
	buf.WriteByte('\n')
	_, err := io.WriteString(s.w, buf.String())
	return err
}

// Flush calls Sync or Flush on the underlying writer when it provides one.
func (s *StreamSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch w := s.w.(type) {
	case interface{ Flush() error }:
		return w.Flush()
	case interface{ Sync() error }:
		// Sync on a terminal or pipe fails with EINVAL; nothing is buffered there anyway.
		_ = w.Sync()
	}
	return nil
}

// linePool reuses builders for the line+newline concatenation.
var linePool = sync.Pool{
	New: func() interface{} {
		return new(strings.Builder)
	},
}

// MemorySink keeps every line in memory. It is meant for tests and for
// capturing output of short-lived tools.
type MemorySink struct {
	mu      sync.Mutex
	lines   []string
	flushes int
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Write(line string) error {
	m.mu.Lock()
	m.lines = append(m.lines, line)
	m.mu.Unlock()
	return nil
}

func (m *MemorySink) Flush() error {
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
	return nil
}

// Lines returns a copy of the captured lines in delivery order.
func (m *MemorySink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

// String returns all captured lines joined by newlines.
func (m *MemorySink) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.lines) == 0 {
		return emptyString
	}
	return strings.Join(m.lines, "\n") + "\n"
}

// Flushes reports how many times Flush was called.
func (m *MemorySink) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

// Reset discards the captured lines.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.lines = nil
	m.mu.Unlock()
}

// RangeSink forwards only lines whose level lies in [Min, Max]. Plain Write
// calls, which carry no level, are always forwarded. An AsyncSink in front of
// a RangeSink queues the level with each line, so routing is preserved.
type RangeSink struct {
	Sink
	Min Level
	Max Level
}

// NewRangeSink restricts s to levels min through max inclusive.
func NewRangeSink(s Sink, min, max Level) *RangeSink {
	return &RangeSink{Sink: s, Min: min, Max: max}
}

func (r *RangeSink) WriteLevel(level Level, line string) error {
	if level < r.Min || level > r.Max {
		return nil
	}
	if lw, ok := r.Sink.(LevelWriter); ok {
		return lw.WriteLevel(level, line)
	}
	return r.Sink.Write(line)
}

// Close closes the wrapped sink when it is an io.Closer.
func (r *RangeSink) Close() error {
	if c, ok := r.Sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SinkFunc adapts a function to the Sink interface. Flush is a no-op.
type SinkFunc func(line string) error

func (f SinkFunc) Write(line string) error { return f(line) }

func (f SinkFunc) Flush() error { return nil }

// outputSinks builds the stream pair used by SetOutputStreams: out receives
// Trace through Warning and errOut receives Error and Fatal. When both are the
// same writer a single StreamSink serialises all writes to it.
func outputSinks(out, errOut io.Writer) []Sink {
	if out != nil && errOut != nil && sameWriter(out, errOut) {
		return []Sink{NewStreamSink(out)}
	}
	var sinks []Sink
	if out != nil {
		sinks = append(sinks, NewRangeSink(NewStreamSink(out), LevelTrace, LevelWarning))
	}
	if errOut != nil {
		sinks = append(sinks, NewRangeSink(NewStreamSink(errOut), LevelError, LevelFatal))
	}
	return sinks
}

func sameWriter(a, b io.Writer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta.Comparable() && a == b
}
