package ledger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/Station-Manager/errors"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"
)

// state is one immutable configuration snapshot. Emitters read it under the
// Logger's read lock; configuration calls replace the pointer under the
// write lock, so a reader never mixes fields of two configurations.
type state struct {
	level        Level
	sinks        []Sink
	formatter    Formatter
	reportCaller bool
	// file is the sink installed by SetFileLogging, delivered after sinks.
	file Sink
}

func (s *state) clone() *state {
	next := *s
	next.sinks = append([]Sink(nil), s.sinks...)
	return &next
}

// Logger routes messages through a formatter to an ordered list of sinks.
// All methods are safe for concurrent use.
//
// Fields held in a ContextStore reach a line only through a context.Context:
// use Log, the ...Context methods, or Event.Ctx. Info, Warn and the other
// context-less methods never consult a store.
//
// The Logger owns the sinks of its global configuration and its file sink:
// when a configuration call replaces them, outgoing sinks that are no longer
// referenced are flushed and closed, and Close flushes and closes everything.
type Logger struct {
	mu       sync.RWMutex
	state    *state
	registry *Registry
	diag     *diagnostics
	now      func() time.Time
	closed   atomic.Bool
}

// Option customises a Logger at construction.
type Option func(*Logger)

// WithDiagnosticOutput redirects the Logger's own failure reports (default:
// a zerolog ConsoleWriter on stderr).
func WithDiagnosticOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.diag.setOutput(w)
	}
}

// WithClock replaces time.Now as the source of record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSinks replaces the default stdout/stderr sinks.
func WithSinks(sinks ...Sink) Option {
	return func(l *Logger) {
		l.state.sinks = append([]Sink(nil), sinks...)
	}
}

// WithLevel sets the initial threshold.
func WithLevel(level Level) Option {
	return func(l *Logger) {
		l.state.level = level
	}
}

// WithFormatter sets the initial formatter; nil keeps the default.
func WithFormatter(f Formatter) Option {
	return func(l *Logger) {
		if f != nil {
			l.state.formatter = f
		}
	}
}

// New returns a Logger at level Info using the text formatter, writing Trace
// through Warning to stdout and Error and Fatal to stderr.
func New(opts ...Option) *Logger {
	l := &Logger{
		state: &state{
			level:     LevelInfo,
			sinks:     outputSinks(os.Stdout, os.Stderr),
			formatter: defaultFormatter(),
		},
		registry: NewRegistry(),
		diag:     newDiagnostics(nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// callSite locates the code that emitted a record. When file is empty and
// skip is positive, emit resolves it with runtime.Caller(skip).
type callSite struct {
	skip int
	file string
	line int
}

// callerDepth is the runtime.Caller depth of user code for an exported
// method that calls emit directly.
const callerDepth = 2

func callerAt(skip int) callSite {
	return callSite{skip: skip}
}

func (l *Logger) emit(ctx context.Context, category string, level Level, site callSite, msg string, kv []interface{}) {
	if l == nil || l.closed.Load() {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	sinks, file, formatter, threshold, withCaller := l.resolve(category)
	if level < threshold {
		return
	}

	if withCaller && site.file == emptyString && site.skip > 0 {
		if _, f, ln, ok := runtime.Caller(site.skip); ok {
			site.file, site.line = filepath.Base(f), ln
		}
	}

	text := renderMessage(msg, mergeFields(ctx, pairsToFields(kv)))
	if !withCaller {
		site.file, site.line = emptyString, 0
	}
	line := formatter.Format(level, text, l.now(), site.file, site.line)

	for _, s := range sinks {
		l.write(s, level, line)
	}
	if file != nil {
		l.write(file, level, line)
	}
}

// resolve picks the category configuration when one is registered, else the
// global one. Must hold l.mu for reading.
func (l *Logger) resolve(category string) (sinks []Sink, file Sink, f Formatter, level Level, caller bool) {
	if cfg := l.registry.lookup(category); cfg != nil {
		return cfg.Sinks, nil, cfg.Formatter, cfg.Level, cfg.ReportCaller
	}
	st := l.state
	return st.sinks, st.file, st.formatter, st.level, st.reportCaller
}

// write delivers one line to s. A failing or panicking sink is reported on
// the diagnostic channel and never stops delivery to the remaining sinks.
func (l *Logger) write(s Sink, level Level, line string) {
	defer func() {
		if r := recover(); r != nil {
			l.diag.sinkFailed(s, fmt.Errorf("sink panicked: %v", r))
		}
	}()

	var err error
	if lw, ok := s.(LevelWriter); ok {
		err = lw.WriteLevel(level, line)
	} else {
		err = s.Write(line)
	}
	if err != nil {
		l.diag.sinkFailed(s, err)
	}
}

// Enabled reports whether a message at level would be emitted for category
// ("" for the global configuration).
func (l *Logger) Enabled(category string, level Level) bool {
	if l == nil || l.closed.Load() {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, _, _, threshold, _ := l.resolve(category)
	return level >= threshold
}

// update applies mutate to a copy of the current state and installs it as a
// unit. Sinks dropped by the change are flushed and closed after the swap.
func (l *Logger) update(mutate func(next *state) error) error {
	l.mu.Lock()
	if l.closed.Load() {
		l.mu.Unlock()
		return ErrLoggerClosed
	}
	next := l.state.clone()
	if err := mutate(next); err != nil {
		l.mu.Unlock()
		return err
	}
	prev := l.state
	l.state = next

	keep := append(next.sinksWithFile(), l.registry.sinks()...)
	retired := subtractSinks(prev.sinksWithFile(), keep)
	l.mu.Unlock()

	for _, s := range retired {
		if err := closeSink(s); err != nil {
			l.diag.warn("Failed to close replaced log sink", err)
		}
	}
	return nil
}

func (s *state) sinksWithFile() []Sink {
	out := append([]Sink(nil), s.sinks...)
	if s.file != nil {
		out = append(out, s.file)
	}
	return out
}

// Configure replaces level, sinks, formatter and caller reporting in one step.
// The file sink installed by SetFileLogging is kept.
func (l *Logger) Configure(cfg Config) error {
	const op errors.Op = "ledger.Logger.Configure"
	if l == nil {
		return errors.New(op).Msg(errMsgNilLogger)
	}
	if err := cfg.validate(op); err != nil {
		return err
	}
	snapshot := cfg.clone()
	return l.update(func(next *state) error {
		next.level = snapshot.Level
		next.sinks = snapshot.Sinks
		next.formatter = snapshot.Formatter
		next.reportCaller = snapshot.ReportCaller
		return nil
	})
}

// SetLevel changes the global threshold.
func (l *Logger) SetLevel(level Level) {
	_ = l.update(func(next *state) error {
		next.level = level
		return nil
	})
}

// Level returns the global threshold.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.level
}

// SetFormatter replaces the global formatter; nil restores the default.
func (l *Logger) SetFormatter(f Formatter) {
	if f == nil {
		f = defaultFormatter()
	}
	_ = l.update(func(next *state) error {
		next.formatter = f
		return nil
	})
}

// SetReportCaller toggles file:line reporting for the global configuration.
func (l *Logger) SetReportCaller(on bool) {
	_ = l.update(func(next *state) error {
		next.reportCaller = on
		return nil
	})
}

// SetOutputStreams replaces the global sinks with out for Trace through
// Warning and errOut for Error and Fatal. A nil writer disables its range.
func (l *Logger) SetOutputStreams(out, errOut io.Writer) {
	sinks := outputSinks(out, errOut)
	_ = l.update(func(next *state) error {
		next.sinks = sinks
		return nil
	})
}

// SetFileLogging installs a RotatingFileSink on path in addition to the
// global sinks, replacing any previous one. An empty path disables file
// logging. The file is opened before anything changes, so a bad path leaves
// the current configuration untouched.
func (l *Logger) SetFileLogging(path string, maxBytes int64, maxFiles int, opts ...RotatingOption) error {
	var file Sink
	if path != emptyString {
		fs, err := NewRotatingFileSink(path, maxBytes, maxFiles, opts...)
		if err != nil {
			return err
		}
		file = fs
	}
	err := l.update(func(next *state) error {
		next.file = file
		return nil
	})
	if err != nil && file != nil {
		_ = closeSink(file)
	}
	return err
}

// Registry returns the category registry consulted by CategoryLogger.
func (l *Logger) Registry() *Registry {
	return l.registry
}

// Failures returns how many sink writes have failed since construction.
func (l *Logger) Failures() uint64 {
	return l.diag.failureCount()
}

// Flush flushes every sink of the global configuration, the file sink and all
// registered categories, returning the combined errors.
func (l *Logger) Flush() error {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	sinks := uniqueSinks(append(l.state.sinksWithFile(), l.registry.sinks()...))
	l.mu.RUnlock()

	var result *multierror.Error
	for _, s := range sinks {
		if err := s.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close waits for in-flight emits, then flushes and closes every owned sink
// and every sink of a registered category. Later emits are ignored and
// configuration calls return ErrLoggerClosed. Close is idempotent.
func (l *Logger) Close() error {
	if l == nil || !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	l.mu.Lock()
	sinks := uniqueSinks(append(l.state.sinksWithFile(), l.registry.sinks()...))
	l.state = &state{level: l.state.level, formatter: l.state.formatter}
	l.mu.Unlock()

	var result *multierror.Error
	for _, s := range sinks {
		if err := closeSink(s); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// closeSink flushes s and closes it when it is an io.Closer.
func closeSink(s Sink) error {
	var result *multierror.Error
	if err := s.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if c, ok := s.(io.Closer); ok {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// sameSink compares sinks by identity without panicking on uncomparable
// dynamic types, which are never considered equal.
func sameSink(a, b Sink) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func containsSink(list []Sink, s Sink) bool {
	for _, x := range list {
		if sameSink(x, s) {
			return true
		}
	}
	return false
}

// subtractSinks returns the sinks of from that do not appear in keep.
func subtractSinks(from, keep []Sink) []Sink {
	var out []Sink
	for _, s := range uniqueSinks(from) {
		if !containsSink(keep, s) {
			out = append(out, s)
		}
	}
	return out
}

func uniqueSinks(list []Sink) []Sink {
	out := make([]Sink, 0, len(list))
	for _, s := range list {
		if s != nil && !containsSink(out, s) {
			out = append(out, s)
		}
	}
	return out
}
