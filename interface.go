package ledger

import "time"

// Sink is a delivery endpoint for formatted log lines. Implementations must be
// safe for concurrent use unless they are only ever driven by an AsyncSink.
type Sink interface {
	// Write delivers one formatted line. The line carries no trailing newline.
	Write(line string) error
	// Flush forces any buffered output to its destination.
	Flush() error
}

// LevelWriter is implemented by sinks that route on the severity of the line.
// The Logger prefers WriteLevel over Write when a sink implements it.
type LevelWriter interface {
	WriteLevel(level Level, line string) error
}

// Formatter renders one log record as a single line. An empty file and a zero
// line mean the source location is unknown.
type Formatter interface {
	Format(level Level, message string, timestamp time.Time, file string, line int) string
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(level Level, message string, timestamp time.Time, file string, line int) string

func (f FormatterFunc) Format(level Level, message string, timestamp time.Time, file string, line int) string {
	return f(level, message, timestamp, file, line)
}
