package ledger

import (
	"context"

	"go.uber.org/atomic"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New())
}

// Default returns the process-wide Logger used by the package-level helpers.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide Logger and returns the previous one.
// The previous Logger is not closed.
func SetDefault(l *Logger) *Logger {
	if l == nil {
		return Default()
	}
	return defaultLogger.Swap(l)
}

func Log(ctx context.Context, level Level, msg string, kv ...interface{}) {
	Default().emit(ctx, emptyString, level, callerAt(callerDepth), msg, kv)
}

func Trace(msg string, kv ...interface{}) {
	Default().emit(context.Background(), emptyString, LevelTrace, callerAt(callerDepth), msg, kv)
}

func Debug(msg string, kv ...interface{}) {
	Default().emit(context.Background(), emptyString, LevelDebug, callerAt(callerDepth), msg, kv)
}

func Info(msg string, kv ...interface{}) {
	Default().emit(context.Background(), emptyString, LevelInfo, callerAt(callerDepth), msg, kv)
}

func Warn(msg string, kv ...interface{}) {
	Default().emit(context.Background(), emptyString, LevelWarning, callerAt(callerDepth), msg, kv)
}

func Error(msg string, kv ...interface{}) {
	Default().emit(context.Background(), emptyString, LevelError, callerAt(callerDepth), msg, kv)
}

// Fatal logs at LevelFatal on the default Logger. It does not exit.
func Fatal(msg string, kv ...interface{}) {
	Default().emit(context.Background(), emptyString, LevelFatal, callerAt(callerDepth), msg, kv)
}

// Get returns a CategoryLogger on the default Logger.
func Get(category string) *CategoryLogger {
	return Default().Category(category)
}
