package ledger

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Event builds one record with typed fields and emits it on Msg, Msgf or
// Send. Events for a disabled level are nil; every method is a no-op on a
// nil Event, so chains cost almost nothing when the level is filtered out.
//
//	logger.InfoWith().Str("station", call).Int("qso", n).Msg("logged")
type Event struct {
	logger   *Logger
	category string
	level    Level
	ctx      context.Context
	kv       []interface{}
}

func (l *Logger) newEvent(category string, level Level) *Event {
	if !l.Enabled(category, level) {
		return nil
	}
	return &Event{logger: l, category: category, level: level, ctx: context.Background(), kv: make([]interface{}, 0, 8)}
}

func (l *Logger) TraceWith() *Event { return l.newEvent(emptyString, LevelTrace) }
func (l *Logger) DebugWith() *Event { return l.newEvent(emptyString, LevelDebug) }
func (l *Logger) InfoWith() *Event  { return l.newEvent(emptyString, LevelInfo) }
func (l *Logger) WarnWith() *Event  { return l.newEvent(emptyString, LevelWarning) }
func (l *Logger) ErrorWith() *Event { return l.newEvent(emptyString, LevelError) }
func (l *Logger) FatalWith() *Event { return l.newEvent(emptyString, LevelFatal) }

// At returns an event at an arbitrary level.
func (l *Logger) At(level Level) *Event { return l.newEvent(emptyString, level) }

// At returns an event at level for this category.
func (c *CategoryLogger) At(level Level) *Event { return c.logger.newEvent(c.name, level) }

func (c *CategoryLogger) DebugWith() *Event { return c.logger.newEvent(c.name, LevelDebug) }
func (c *CategoryLogger) InfoWith() *Event  { return c.logger.newEvent(c.name, LevelInfo) }
func (c *CategoryLogger) WarnWith() *Event  { return c.logger.newEvent(c.name, LevelWarning) }
func (c *CategoryLogger) ErrorWith() *Event { return c.logger.newEvent(c.name, LevelError) }

// Ctx attaches ctx so its ContextStore and span are merged into the record.
func (e *Event) Ctx(ctx context.Context) *Event {
	if e != nil && ctx != nil {
		e.ctx = ctx
	}
	return e
}

func (e *Event) add(key string, val interface{}) *Event {
	if e != nil {
		e.kv = append(e.kv, key, val)
	}
	return e
}

func (e *Event) Str(key, val string) *Event { return e.add(key, val) }

// Strs renders vals as a comma-separated list.
func (e *Event) Strs(key string, vals []string) *Event {
	if e == nil {
		return nil
	}
	return e.add(key, strings.Join(vals, ","))
}

func (e *Event) Stringer(key string, val fmt.Stringer) *Event { return e.add(key, val) }
func (e *Event) Int(key string, val int) *Event               { return e.add(key, val) }
func (e *Event) Int64(key string, val int64) *Event           { return e.add(key, val) }
func (e *Event) Uint(key string, val uint) *Event             { return e.add(key, val) }
func (e *Event) Uint64(key string, val uint64) *Event         { return e.add(key, val) }
func (e *Event) Float64(key string, val float64) *Event       { return e.add(key, val) }
func (e *Event) Bool(key string, val bool) *Event             { return e.add(key, val) }
func (e *Event) Time(key string, val time.Time) *Event        { return e.add(key, val) }
func (e *Event) Dur(key string, val time.Duration) *Event     { return e.add(key, val) }
func (e *Event) IPAddr(key string, val net.IP) *Event         { return e.add(key, val) }
func (e *Event) Interface(key string, val interface{}) *Event { return e.add(key, val) }

// Hex renders val as lower-case hexadecimal.
func (e *Event) Hex(key string, val []byte) *Event {
	if e == nil {
		return nil
	}
	return e.add(key, fmt.Sprintf("%x", val))
}

// Quote adds val in Go quoted form, useful for values containing spaces.
func (e *Event) Quote(key, val string) *Event {
	if e == nil {
		return nil
	}
	return e.add(key, strconv.Quote(val))
}

// Err adds err under "error", along with the root cause and the cause
// history when err wraps other errors.
func (e *Event) Err(err error) *Event {
	return e.AnErr("error", err)
}

// AnErr adds err under key. A nil err adds nothing.
func (e *Event) AnErr(key string, err error) *Event {
	if e == nil || err == nil {
		return e
	}
	e.add(key, err.Error())
	chain, _, root, rootOp := buildErrorChain(err)
	if len(chain) > 1 {
		e.add(key+"_root", root)
		e.add(key+"_history", joinChain(chain))
	}
	if rootOp != emptyString {
		e.add(key+"_root_op", rootOp)
	}
	return e
}

func (e *Event) Msg(msg string) {
	if e == nil {
		return
	}
	e.logger.emit(e.ctx, e.category, e.level, callerAt(callerDepth), msg, e.kv)
}

func (e *Event) Msgf(format string, v ...interface{}) {
	if e == nil {
		return
	}
	e.logger.emit(e.ctx, e.category, e.level, callerAt(callerDepth), fmt.Sprintf(format, v...), e.kv)
}

// Send emits the event with an empty message.
func (e *Event) Send() {
	if e == nil {
		return
	}
	e.logger.emit(e.ctx, e.category, e.level, callerAt(callerDepth), emptyString, e.kv)
}
