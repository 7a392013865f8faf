package ledger

import (
	"bytes"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JSONFormatter renders one JSON object per line with the fields timestamp,
// level, message and, when known, file and line. TimestampNone omits the
// timestamp field. Encoding is done by zerolog, which escapes quotes,
// backslashes and control characters.
type JSONFormatter struct {
	Timestamp TimestampMode
}

// NewJSONFormatter returns a JSONFormatter using mode for the timestamp field.
func NewJSONFormatter(mode TimestampMode) *JSONFormatter {
	return &JSONFormatter{Timestamp: mode}
}

var jsonBufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func (f *JSONFormatter) Format(level Level, message string, timestamp time.Time, file string, line int) string {
	buf := jsonBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufPool.Put(buf)

	zl := zerolog.New(buf)
	ev := zl.Log()
	if ts := f.Timestamp.format(timestamp); ts != emptyString {
		ev = ev.Str("timestamp", ts)
	}
	ev = ev.Str("level", level.String()).Str("message", message)
	if file != emptyString {
		ev = ev.Str("file", file)
	}
	if line > 0 {
		ev = ev.Int("line", line)
	}
	ev.Send()

	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
