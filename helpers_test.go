package ledger

import (
	stderrs "errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, time.March, 9, 14, 30, 5, 0, time.UTC)

// newTestLogger returns a Logger writing bare "[LEVEL] message" lines to an
// in-memory sink, with diagnostics discarded and a fixed clock.
func newTestLogger(t testing.TB, opts ...Option) (*Logger, *MemorySink) {
	t.Helper()
	mem := NewMemorySink()
	base := []Option{
		WithSinks(mem),
		WithDiagnosticOutput(io.Discard),
		WithClock(func() time.Time { return fixedTime }),
		WithFormatter(NewTextFormatter(TimestampNone, "")),
	}
	l := New(append(base, opts...)...)
	t.Cleanup(func() { _ = l.Close() })
	return l, mem
}

var errBoom = stderrs.New("boom")

// failingSink fails every write and counts the attempts.
type failingSink struct {
	mu     sync.Mutex
	writes int
	closed bool
}

func (f *failingSink) Write(string) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return errBoom
}

func (f *failingSink) Flush() error { return nil }

func (f *failingSink) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *failingSink) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// closeTrackingSink is a MemorySink that records Close.
type closeTrackingSink struct {
	*MemorySink
	mu     sync.Mutex
	closes int
}

func newCloseTrackingSink() *closeTrackingSink {
	return &closeTrackingSink{MemorySink: NewMemorySink()}
}

func (c *closeTrackingSink) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return nil
}

func (c *closeTrackingSink) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// gateSink blocks every Write until release is closed. entered receives a
// value each time a Write starts, which lets a test know the AsyncSink worker
// is parked inside the inner sink.
type gateSink struct {
	MemorySink
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateSink() *gateSink {
	return &gateSink{
		entered: make(chan struct{}, 1024),
		release: make(chan struct{}),
	}
}

func (g *gateSink) Write(line string) error {
	g.entered <- struct{}{}
	<-g.release
	return g.MemorySink.Write(line)
}

func (g *gateSink) open() {
	g.once.Do(func() { close(g.release) })
}

func waitEntered(t testing.TB, g *gateSink) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "worker never reached the inner sink")
	}
}
