package ledger

import (
	stderrs "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Station-Manager/errors"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/atomic"
)

type rotatingOptions struct {
	Path     string `validate:"required"`
	MaxBytes int64  `validate:"gt=0"`
	MaxFiles int    `validate:"gte=0"`
	Compress bool
}

// RotatingOption customises a RotatingFileSink.
type RotatingOption func(*rotatingOptions)

// WithCompression stores rotated backups gzip-compressed as path.N.gz.
func WithCompression() RotatingOption {
	return func(o *rotatingOptions) {
		o.Compress = true
	}
}

// RotatingFileSink appends lines to a file and rotates it into numbered
// backups (path.1 is the most recent) once the next write would push the file
// past maxBytes. At most maxFiles backups are kept; with maxFiles == 0 the
// active file is simply truncated on rotation.
type RotatingFileSink struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	maxFiles int
	compress bool

	file   *os.File
	offset int64
	closed bool

	rotations atomic.Uint64
}

// NewRotatingFileSink opens (or creates) path for appending. Invalid limits and
// a file that cannot be opened are reported here rather than on first write.
func NewRotatingFileSink(path string, maxBytes int64, maxFiles int, opts ...RotatingOption) (*RotatingFileSink, error) {
	const op errors.Op = "ledger.NewRotatingFileSink"

	o := rotatingOptions{Path: path, MaxBytes: maxBytes, MaxFiles: maxFiles}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateStruct(op, &o, errMsgOptionsInvalid); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(op).Err(err).Msg(errMsgOpenFile)
		}
	}

	s := &RotatingFileSink{
		path:     path,
		maxBytes: maxBytes,
		maxFiles: maxFiles,
		compress: o.Compress,
	}
	if err := s.open(os.O_APPEND); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgOpenFile)
	}
	return s, nil
}

// open opens the active file with the extra flag (O_APPEND or O_TRUNC) and
// resets the offset to the file's current size.
func (s *RotatingFileSink) open(flag int) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|flag, 0o644)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	s.file = f
	s.offset = fi.Size()
	return nil
}

func (s *RotatingFileSink) Write(line string) error {
	const op errors.Op = "ledger.RotatingFileSink.Write"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	// A previous rotation failed half way; pick up whatever is at path now.
	if s.file == nil {
		if err := s.open(os.O_APPEND); err != nil {
			return errors.New(op).Err(err).Msg(errMsgOpenFile)
		}
	}

	n := int64(len(line)) + 1
	if s.offset > 0 && s.offset+n > s.maxBytes {
		if err := s.rotate(); err != nil {
			return errors.New(op).Err(err).Msg(errMsgRotate)
		}
	}

	buf := linePool.Get().(*strings.Builder)
	buf.Reset()
	defer linePool.Put(buf)
	buf.Grow(len(line) + 1)
	buf.WriteString(line)
	buf.WriteByte('\n')

	written, err := s.file.WriteString(buf.String())
	s.offset += int64(written)
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgWrite)
	}
	return nil
}

// rotate must be called with s.mu held.
func (s *RotatingFileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		s.file = nil
		return err
	}
	s.file = nil

	if err := s.shiftBackups(); err != nil {
		return err
	}
	if err := s.open(os.O_TRUNC); err != nil {
		return err
	}
	s.rotations.Inc()
	return nil
}

func (s *RotatingFileSink) shiftBackups() error {
	if s.maxFiles == 0 {
		return nil
	}

	if err := os.Remove(s.backupName(s.maxFiles)); err != nil && !stderrs.Is(err, fs.ErrNotExist) {
		return err
	}
	for i := s.maxFiles - 1; i >= 1; i-- {
		if err := os.Rename(s.backupName(i), s.backupName(i+1)); err != nil && !stderrs.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if s.compress {
		return compressFile(s.path, s.backupName(1))
	}
	return os.Rename(s.path, s.backupName(1))
}

func (s *RotatingFileSink) backupName(i int) string {
	name := fmt.Sprintf("%s.%d", s.path, i)
	if s.compress {
		name += ".gz"
	}
	return name
}

// compressFile writes a gzip copy of src to dst and removes src.
func compressFile(src, dst string) (err error) {
	const op errors.Op = "ledger.compressFile"

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)
	if _, err = io.Copy(zw, in); err != nil {
		_ = out.Close()
		return errors.New(op).Err(err).Msg(errMsgCompress)
	}
	if err = zw.Close(); err != nil {
		_ = out.Close()
		return errors.New(op).Err(err).Msg(errMsgCompress)
	}
	if err = out.Close(); err != nil {
		return errors.New(op).Err(err).Msg(errMsgCompress)
	}
	return os.Remove(src)
}

// Flush syncs the active file to stable storage.
func (s *RotatingFileSink) Flush() error {
	const op errors.Op = "ledger.RotatingFileSink.Flush"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return errors.New(op).Err(err).Msg(errMsgSync)
	}
	return nil
}

// Close syncs and closes the active file. It is safe to call more than once.
func (s *RotatingFileSink) Close() error {
	const op errors.Op = "ledger.RotatingFileSink.Close"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}

	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file = nil
	if syncErr != nil {
		return errors.New(op).Err(syncErr).Msg(errMsgSync)
	}
	if closeErr != nil {
		return errors.New(op).Err(closeErr).Msg(errMsgSync)
	}
	return nil
}

// Path returns the active file path.
func (s *RotatingFileSink) Path() string {
	return s.path
}

// Size returns the number of bytes in the active file as tracked by the sink.
func (s *RotatingFileSink) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Rotations returns how many rotations have completed since construction.
func (s *RotatingFileSink) Rotations() uint64 {
	return s.rotations.Load()
}
