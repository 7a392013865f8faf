package ledger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ArchiveOptions configures an ArchiveFileSink.
type ArchiveOptions struct {
	Path       string `validate:"required"`
	MaxSizeMB  int    `validate:"gte=0"`
	MaxBackups int    `validate:"gte=0"`
	MaxAgeDays int    `validate:"gte=0"`
	Compress   bool
	LocalTime  bool
}

// ArchiveFileSink is a file sink for long-lived services that rotates by size
// and prunes backups by count and age. Backups are named with their rotation
// timestamp rather than a number, and may be gzip compressed in the
// background. Use RotatingFileSink when numbered backups are required.
type ArchiveFileSink struct {
	mu     sync.Mutex
	file   *lumberjack.Logger
	closed bool
}

// NewArchiveFileSink validates opts and prepares the sink. The file is opened
// lazily on the first write; the parent directory is created up front so a
// bad path is reported here.
func NewArchiveFileSink(opts ArchiveOptions) (*ArchiveFileSink, error) {
	const op errors.Op = "ledger.NewArchiveFileSink"
	if err := validateStruct(op, &opts, errMsgOptionsInvalid); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgOpenFile)
	}
	return &ArchiveFileSink{
		file: &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
			LocalTime:  opts.LocalTime,
		},
	}, nil
}

func (s *ArchiveFileSink) Write(line string) error {
	const op errors.Op = "ledger.ArchiveFileSink.Write"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if _, err := s.file.Write([]byte(line + "\n")); err != nil {
		return errors.New(op).Err(err).Msg(errMsgWrite)
	}
	return nil
}

// Flush is a no-op: lumberjack writes straight through to the file.
func (s *ArchiveFileSink) Flush() error {
	return nil
}

// Rotate forces a rotation regardless of the current size.
func (s *ArchiveFileSink) Rotate() error {
	const op errors.Op = "ledger.ArchiveFileSink.Rotate"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.file.Rotate(); err != nil {
		return errors.New(op).Err(err).Msg(errMsgRotate)
	}
	return nil
}

func (s *ArchiveFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Path returns the active file name.
func (s *ArchiveFileSink) Path() string {
	return s.file.Filename
}

// ConsoleSink returns a human-oriented sink on w that re-renders JSON lines
// with zerolog's ConsoleWriter and passes any other line through unchanged.
// Pair it with JSONFormatter for colourised terminal output.
func ConsoleSink(w io.Writer, noColor bool) Sink {
	cw := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: noColor,
		// JSONFormatter names the time "timestamp", which zerolog treats
		// as an ordinary part.
		PartsOrder:    []string{"timestamp", zerolog.LevelFieldName, zerolog.MessageFieldName},
		FieldsExclude: []string{"timestamp"},
	}
	return &consoleSink{cw: cw, raw: NewStreamSink(w)}
}

type consoleSink struct {
	mu  sync.Mutex
	cw  zerolog.ConsoleWriter
	raw *StreamSink
}

func (c *consoleSink) Write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !strings.HasPrefix(line, "{") {
		return c.raw.Write(line)
	}
	_, err := c.cw.Write([]byte(line))
	return err
}

func (c *consoleSink) Flush() error {
	return c.raw.Flush()
}
