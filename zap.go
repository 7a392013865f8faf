package ledger

import (
	"context"
	"path/filepath"
	"sort"

	"go.uber.org/zap/zapcore"
)

// zapCore lets code written against zap log through a Logger:
//
//	z := zap.New(ledger.NewZapCore(logger, "rpc"), zap.AddCaller())
type zapCore struct {
	logger   *Logger
	category string
	fields   []interface{}
}

// NewZapCore returns a zapcore.Core that emits through l under category ("" for
// the global configuration). Entry fields are rendered as key=value pairs in
// sorted key order; zap's caller annotation becomes the record's file:line.
func NewZapCore(l *Logger, category string) zapcore.Core {
	return &zapCore{logger: l, category: category}
}

func (c *zapCore) Enabled(level zapcore.Level) bool {
	return c.logger.Enabled(c.category, fromZapLevel(level))
}

func (c *zapCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &zapCore{logger: c.logger, category: c.category}
	clone.fields = append(append(clone.fields, c.fields...), encodeZapFields(fields)...)
	return clone
}

func (c *zapCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *zapCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	kv := make([]interface{}, 0, len(c.fields)+2*len(fields)+2)
	if entry.LoggerName != emptyString {
		kv = append(kv, "logger", entry.LoggerName)
	}
	kv = append(kv, c.fields...)
	kv = append(kv, encodeZapFields(fields)...)

	var site callSite
	if entry.Caller.Defined {
		site.file, site.line = filepath.Base(entry.Caller.File), entry.Caller.Line
	}
	c.logger.emit(context.Background(), c.category, fromZapLevel(entry.Level), site, entry.Message, kv)
	return nil
}

func (c *zapCore) Sync() error {
	return c.logger.Flush()
}

func encodeZapFields(fields []zapcore.Field) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, enc.Fields[k])
	}
	return kv
}

func fromZapLevel(level zapcore.Level) Level {
	switch {
	case level < zapcore.DebugLevel:
		return LevelTrace
	case level == zapcore.DebugLevel:
		return LevelDebug
	case level == zapcore.InfoLevel:
		return LevelInfo
	case level == zapcore.WarnLevel:
		return LevelWarning
	case level == zapcore.ErrorLevel:
		return LevelError
	default:
		return LevelFatal
	}
}
