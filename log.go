package ledger

import "context"

// Log emits msg at level with alternating key, value pairs. Fields from the
// ContextStore carried by ctx are merged in; call-site pairs win on conflict.
func (l *Logger) Log(ctx context.Context, level Level, msg string, kv ...interface{}) {
	l.emit(ctx, emptyString, level, callerAt(callerDepth), msg, kv)
}

func (l *Logger) Trace(msg string, kv ...interface{}) {
	l.emit(context.Background(), emptyString, LevelTrace, callerAt(callerDepth), msg, kv)
}

func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.emit(context.Background(), emptyString, LevelDebug, callerAt(callerDepth), msg, kv)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.emit(context.Background(), emptyString, LevelInfo, callerAt(callerDepth), msg, kv)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.emit(context.Background(), emptyString, LevelWarning, callerAt(callerDepth), msg, kv)
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	l.emit(context.Background(), emptyString, LevelError, callerAt(callerDepth), msg, kv)
}

// Fatal logs at LevelFatal. It does not exit the process.
func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.emit(context.Background(), emptyString, LevelFatal, callerAt(callerDepth), msg, kv)
}

func (l *Logger) TraceContext(ctx context.Context, msg string, kv ...interface{}) {
	l.emit(ctx, emptyString, LevelTrace, callerAt(callerDepth), msg, kv)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, kv ...interface{}) {
	l.emit(ctx, emptyString, LevelDebug, callerAt(callerDepth), msg, kv)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, kv ...interface{}) {
	l.emit(ctx, emptyString, LevelInfo, callerAt(callerDepth), msg, kv)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, kv ...interface{}) {
	l.emit(ctx, emptyString, LevelWarning, callerAt(callerDepth), msg, kv)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, kv ...interface{}) {
	l.emit(ctx, emptyString, LevelError, callerAt(callerDepth), msg, kv)
}

func (l *Logger) FatalContext(ctx context.Context, msg string, kv ...interface{}) {
	l.emit(ctx, emptyString, LevelFatal, callerAt(callerDepth), msg, kv)
}

// CategoryLogger emits through the Registry configuration of one category,
// falling back to the owning Logger's global configuration while the
// category has none. It is cheap to create and safe for concurrent use.
type CategoryLogger struct {
	logger *Logger
	name   string
}

// Category returns a logger bound to name. The empty name is the global
// configuration.
func (l *Logger) Category(name string) *CategoryLogger {
	return &CategoryLogger{logger: l, name: name}
}

// Name returns the category name.
func (c *CategoryLogger) Name() string {
	return c.name
}

// Enabled reports whether level would be emitted for this category.
func (c *CategoryLogger) Enabled(level Level) bool {
	return c.logger.Enabled(c.name, level)
}

func (c *CategoryLogger) Log(ctx context.Context, level Level, msg string, kv ...interface{}) {
	c.logger.emit(ctx, c.name, level, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) Trace(msg string, kv ...interface{}) {
	c.logger.emit(context.Background(), c.name, LevelTrace, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) Debug(msg string, kv ...interface{}) {
	c.logger.emit(context.Background(), c.name, LevelDebug, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) Info(msg string, kv ...interface{}) {
	c.logger.emit(context.Background(), c.name, LevelInfo, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) Warn(msg string, kv ...interface{}) {
	c.logger.emit(context.Background(), c.name, LevelWarning, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) Error(msg string, kv ...interface{}) {
	c.logger.emit(context.Background(), c.name, LevelError, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) Fatal(msg string, kv ...interface{}) {
	c.logger.emit(context.Background(), c.name, LevelFatal, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) InfoContext(ctx context.Context, msg string, kv ...interface{}) {
	c.logger.emit(ctx, c.name, LevelInfo, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) WarnContext(ctx context.Context, msg string, kv ...interface{}) {
	c.logger.emit(ctx, c.name, LevelWarning, callerAt(callerDepth), msg, kv)
}

func (c *CategoryLogger) ErrorContext(ctx context.Context, msg string, kv ...interface{}) {
	c.logger.emit(ctx, c.name, LevelError, callerAt(callerDepth), msg, kv)
}
