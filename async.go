package ledger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Station-Manager/errors"
	"go.uber.org/atomic"
)

// DropPolicy selects what an AsyncSink discards when its queue is full.
type DropPolicy int

const (
	// DropOldest evicts the item at the head of the queue to make room.
	DropOldest DropPolicy = iota
	// DropNewest discards the incoming item and leaves the queue untouched.
	DropNewest
)

func (p DropPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	default:
		return fmt.Sprintf("DropPolicy(%d)", int(p))
	}
}

// ParseDropPolicy accepts "drop_oldest"/"oldest" and "drop_newest"/"newest".
func ParseDropPolicy(s string) (DropPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop_oldest", "oldest", "":
		return DropOldest, nil
	case "drop_newest", "newest":
		return DropNewest, nil
	default:
		return DropOldest, fmt.Errorf("ledger: unknown drop policy %q", s)
	}
}

type asyncOptions struct {
	Capacity int        `validate:"gt=0"`
	Policy   DropPolicy `validate:"gte=0,lte=1"`
	OnError  func(error)
}

// AsyncOption customises an AsyncSink.
type AsyncOption func(*asyncOptions)

// WithErrorHandler receives errors returned by the inner sink's Write and
// Flush while they run on the worker goroutine.
func WithErrorHandler(fn func(error)) AsyncOption {
	return func(o *asyncOptions) {
		o.OnError = fn
	}
}

// AsyncSink decouples producers from a slow inner sink. Write places the line
// in a bounded FIFO queue and returns at once; a single worker goroutine drains
// the queue into the inner sink. When the queue is full the DropPolicy decides
// which line is discarded, and every discard is counted.
//
// The worker is the only goroutine that ever calls the inner sink, so the
// inner sink needs no locking of its own.
type AsyncSink struct {
	inner   Sink
	policy  DropPolicy
	onError func(error)

	mu   sync.Mutex
	cond *sync.Cond

	// ring buffer
	buf   []asyncItem
	head  int
	count int

	enqueued uint64 // items accepted into the queue since construction
	removed  uint64 // items that left the queue, delivered or evicted

	flushTarget  uint64 // highest enqueued mark a Flush caller is waiting on
	flushedUpTo  uint64 // enqueued mark covered by the last completed inner Flush
	lastFlushErr error

	closing bool
	done    chan struct{}

	dropped atomic.Uint64
}

// NewAsyncSink starts the worker goroutine. The AsyncSink takes ownership of
// inner: Close drains into it, flushes it and closes it if it is an io.Closer.
func NewAsyncSink(inner Sink, capacity int, policy DropPolicy, opts ...AsyncOption) (*AsyncSink, error) {
	const op errors.Op = "ledger.NewAsyncSink"

	if inner == nil {
		return nil, errors.New(op).Msg(errMsgNilSink)
	}
	o := asyncOptions{Capacity: capacity, Policy: policy}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateStruct(op, &o, errMsgOptionsInvalid); err != nil {
		return nil, err
	}

	s := &AsyncSink{
		inner:   inner,
		policy:  policy,
		onError: o.OnError,
		buf:     make([]asyncItem, capacity),
		done:    make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.run()
	return s, nil
}

// asyncItem is one queued line. leveled items came through WriteLevel and are
// delivered with WriteLevel when the inner sink is a LevelWriter.
type asyncItem struct {
	line    string
	level   Level
	leveled bool
}

// Write enqueues line without waiting for the worker. It returns ErrSinkClosed
// once Close has begun; a line dropped by the policy is not an error.
func (s *AsyncSink) Write(line string) error {
	return s.enqueue(asyncItem{line: line})
}

// WriteLevel enqueues line together with its level, so an inner LevelWriter
// such as a RangeSink keeps routing on it.
func (s *AsyncSink) WriteLevel(level Level, line string) error {
	return s.enqueue(asyncItem{line: line, level: level, leveled: true})
}

func (s *AsyncSink) enqueue(item asyncItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return ErrSinkClosed
	}

	if s.count == len(s.buf) {
		if s.policy == DropNewest {
			s.dropped.Inc()
			return nil
		}
		s.buf[s.head] = asyncItem{}
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.removed++
		s.dropped.Inc()
	}

	s.buf[(s.head+s.count)%len(s.buf)] = item
	s.count++
	s.enqueued++
	s.cond.Broadcast()
	return nil
}

// Flush blocks until every line enqueued before the call has been delivered
// or dropped and the inner sink has been flushed. It returns the inner sink's
// Flush error. With nothing written since the last Flush it returns at once.
func (s *AsyncSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.enqueued
	if s.flushedUpTo >= target {
		return nil
	}
	if target > s.flushTarget {
		s.flushTarget = target
	}
	s.cond.Broadcast()

	for s.flushedUpTo < target {
		s.cond.Wait()
	}
	return s.lastFlushErr
}

// flushDue reports whether the worker owes a pending Flush. Must hold s.mu.
func (s *AsyncSink) flushDue() bool {
	return s.flushTarget > s.flushedUpTo && s.removed >= s.flushTarget
}

func (s *AsyncSink) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for s.count == 0 && !s.closing && !s.flushDue() {
			s.cond.Wait()
		}

		if s.flushDue() {
			target := s.flushTarget
			s.mu.Unlock()
			err := s.flushInner()
			s.mu.Lock()
			s.flushedUpTo = target
			s.lastFlushErr = err
			s.cond.Broadcast()
			s.mu.Unlock()
			continue
		}

		if s.count == 0 && s.closing {
			s.mu.Unlock()
			s.finish()
			return
		}

		item := s.buf[s.head]
		s.buf[s.head] = asyncItem{}
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.removed++
		s.mu.Unlock()

		s.deliver(item)
	}
}

// deliver writes one item to the inner sink. A panic in the inner sink is
// turned into an error for the handler; the worker keeps running.
func (s *AsyncSink) deliver(item asyncItem) {
	defer s.recoverInner()

	var err error
	if lw, ok := s.inner.(LevelWriter); ok && item.leveled {
		err = lw.WriteLevel(item.level, item.line)
	} else {
		err = s.inner.Write(item.line)
	}
	s.report(err)
}

func (s *AsyncSink) flushInner() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
			s.report(err)
		}
	}()
	err = s.inner.Flush()
	s.report(err)
	return err
}

func (s *AsyncSink) recoverInner() {
	if r := recover(); r != nil {
		s.report(fmt.Errorf("sink panicked: %v", r))
	}
}

// finish runs on the worker after the final drain.
func (s *AsyncSink) finish() {
	err := s.flushInner()

	s.mu.Lock()
	s.flushedUpTo = s.enqueued
	s.lastFlushErr = err
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *AsyncSink) report(err error) {
	if err != nil && s.onError != nil {
		s.onError(err)
	}
}

// Close stops accepting lines, drains everything still queued into the inner
// sink, flushes it, waits for the worker to exit and finally closes the inner
// sink when it implements io.Closer. Calling Close again is a no-op.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closing = true
	s.cond.Broadcast()
	s.mu.Unlock()

	<-s.done

	s.mu.Lock()
	err := s.lastFlushErr
	s.mu.Unlock()

	if c, ok := s.inner.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// DroppedCount returns how many lines the drop policy has discarded since
// construction. It is safe to call at any time.
func (s *AsyncSink) DroppedCount() uint64 {
	return s.dropped.Load()
}

// Len returns the number of lines waiting in the queue.
func (s *AsyncSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Capacity returns the queue bound.
func (s *AsyncSink) Capacity() int {
	return len(s.buf)
}

// Inner returns the wrapped sink.
func (s *AsyncSink) Inner() Sink {
	return s.inner
}
