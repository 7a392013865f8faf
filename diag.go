package ledger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// diagnostics is the Logger's own channel for problems it cannot return to
// the caller, such as a sink failing in the middle of an emit. Reports are
// rate limited; every failure is counted regardless.
type diagnostics struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	limiter  *rate.Limiter
	failures atomic.Uint64
	muted    atomic.Uint64
}

func newDiagnostics(w io.Writer) *diagnostics {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return &diagnostics{
		logger:  zerolog.New(w).With().Timestamp().Str("component", "ledger").Logger(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

func (d *diagnostics) setOutput(w io.Writer) {
	d.mu.Lock()
	d.logger = d.logger.Output(w)
	d.mu.Unlock()
}

// sinkFailed records err from sink and reports it unless the limiter is exhausted.
func (d *diagnostics) sinkFailed(sink Sink, err error) {
	d.failures.Inc()
	if !d.limiter.Allow() {
		d.muted.Inc()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ev := d.logger.Error().
		Str("sink", fmt.Sprintf("%T", sink)).
		Err(err)
	addErrorChain(ev, "error", err)
	if muted := d.muted.Swap(0); muted > 0 {
		ev = ev.Uint64("suppressed", muted)
	}
	ev.Msg("Log sink write failed")
}

// warn reports a non-sink problem, for example a failed settings reload.
func (d *diagnostics) warn(msg string, err error) {
	if !d.limiter.Allow() {
		d.muted.Inc()
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ev := d.logger.Warn().Err(err)
	addErrorChain(ev, "error", err)
	ev.Msg(msg)
}

// addErrorChain adds key_chain, key_root, key_history, key_ops and
// key_root_op fields describing err's cause chain.
func addErrorChain(ev *zerolog.Event, key string, err error) {
	if ev == nil || err == nil {
		return
	}
	chain, ops, root, rootOp := buildErrorChain(err)
	if len(chain) == 0 {
		return
	}
	ev.Strs(key+"_chain", chain)
	ev.Str(key+"_root", root)
	ev.Str(key+"_history", joinChain(chain))
	ev.Strs(key+"_ops", ops)
	if rootOp != emptyString {
		ev.Str(key+"_root_op", rootOp)
	}
}

func (d *diagnostics) failureCount() uint64 {
	return d.failures.Load()
}
