package ledger

import (
	"strconv"
	"strings"
	"time"
)

// TimestampMode selects how formatters render the record time.
type TimestampMode int

const (
	// TimestampStandard renders local-zone "2006-01-02 15:04:05".
	TimestampStandard TimestampMode = iota
	// TimestampISO8601 renders UTC "2006-01-02T15:04:05Z".
	TimestampISO8601
	// TimestampNone omits the timestamp.
	TimestampNone
)

const (
	layoutStandard = "2006-01-02 15:04:05"
	layoutISO8601  = "2006-01-02T15:04:05Z"
)

func (m TimestampMode) String() string {
	switch m {
	case TimestampStandard:
		return "standard"
	case TimestampISO8601:
		return "iso8601"
	case TimestampNone:
		return "none"
	default:
		return "TimestampMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseTimestampMode accepts "standard", "iso8601" and "none".
func ParseTimestampMode(s string) (TimestampMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "":
		return TimestampStandard, true
	case "iso8601", "iso":
		return TimestampISO8601, true
	case "none":
		return TimestampNone, true
	default:
		return TimestampStandard, false
	}
}

func (m TimestampMode) format(t time.Time) string {
	switch m {
	case TimestampISO8601:
		return t.UTC().Format(layoutISO8601)
	case TimestampNone:
		return emptyString
	default:
		return t.Format(layoutStandard)
	}
}

// TextFormatter renders "[prefix ]TIMESTAMP [LEVEL] message [file:line]".
// The zero value uses the standard timestamp and no prefix.
type TextFormatter struct {
	Timestamp TimestampMode
	Prefix    string
}

// NewTextFormatter returns a TextFormatter with the given mode and prefix.
func NewTextFormatter(mode TimestampMode, prefix string) *TextFormatter {
	return &TextFormatter{Timestamp: mode, Prefix: prefix}
}

func (f *TextFormatter) Format(level Level, message string, timestamp time.Time, file string, line int) string {
	var b strings.Builder
	b.Grow(len(f.Prefix) + len(message) + len(file) + 48)

	if f.Prefix != emptyString {
		b.WriteString(f.Prefix)
		b.WriteByte(' ')
	}
	if ts := f.Timestamp.format(timestamp); ts != emptyString {
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(message)
	if file != emptyString {
		b.WriteString(" [")
		b.WriteString(file)
		if line > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(line))
		}
		b.WriteByte(']')
	}
	return b.String()
}

func defaultFormatter() Formatter {
	return &TextFormatter{}
}
