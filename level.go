package ledger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity of a log message. Higher values are more severe.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

var levelNames = [...]string{
	LevelTrace:   "TRACE",
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

// String returns the upper-case level name, or "UNKNOWN" for out-of-range values.
func (l Level) String() string {
	if !l.valid() {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l Level) valid() bool {
	return l >= LevelTrace && l <= LevelFatal
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("ledger: invalid level %d", int8(l))
	}
	return []byte(strings.ToLower(l.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses a level name. It accepts the names understood by zerolog
// plus "warning"; matching is case-insensitive.
func ParseLevel(level string) (Level, error) {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "warning" {
		s = "warn"
	}
	zl, err := zerolog.ParseLevel(s)
	if err != nil {
		return LevelInfo, err
	}
	switch zl {
	case zerolog.TraceLevel:
		return LevelTrace, nil
	case zerolog.DebugLevel:
		return LevelDebug, nil
	case zerolog.InfoLevel:
		return LevelInfo, nil
	case zerolog.WarnLevel:
		return LevelWarning, nil
	case zerolog.ErrorLevel:
		return LevelError, nil
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("ledger: unknown level %q", level)
	}
}
