package ledger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Station-Manager/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings is the file form of a Logger configuration. Any format viper reads
// (YAML, JSON, TOML, ...) can be used; environment variables prefixed with
// LEDGER_ override top-level keys, e.g. LEDGER_LEVEL=debug.
type Settings struct {
	Level      string            `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal"`
	Format     string            `mapstructure:"format" validate:"omitempty,oneof=text json console"`
	Timestamp  string            `mapstructure:"timestamp" validate:"omitempty,oneof=standard iso8601 iso none"`
	Prefix     string            `mapstructure:"prefix"`
	Caller     bool              `mapstructure:"caller"`
	Console    string            `mapstructure:"console" validate:"omitempty,oneof=stdout stderr split none"`
	File       *FileSettings     `mapstructure:"file"`
	Archive    *ArchiveSettings  `mapstructure:"archive"`
	Async      *AsyncSettings    `mapstructure:"async"`
	Categories map[string]string `mapstructure:"categories" validate:"dive,oneof=trace debug info warn warning error fatal"`
}

// FileSettings describes a RotatingFileSink.
type FileSettings struct {
	Path     string `mapstructure:"path" validate:"required"`
	MaxBytes int64  `mapstructure:"max_bytes" validate:"gt=0"`
	MaxFiles int    `mapstructure:"max_files" validate:"gte=0"`
	Compress bool   `mapstructure:"compress"`
}

// ArchiveSettings describes an ArchiveFileSink.
type ArchiveSettings struct {
	Path       string `mapstructure:"path" validate:"required"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
	LocalTime  bool   `mapstructure:"local_time"`
}

// AsyncSettings wraps the file sinks in AsyncSinks. Console output stays
// synchronous.
type AsyncSettings struct {
	Capacity int    `mapstructure:"capacity" validate:"gte=0"`
	Policy   string `mapstructure:"policy" validate:"omitempty,oneof=drop_oldest drop_newest oldest newest"`
}

// Validate checks the settings without touching the filesystem.
func (s Settings) Validate() error {
	const op errors.Op = "ledger.Settings.Validate"
	return validateStruct(op, &s, errMsgSettingsInvalid)
}

// LoadSettings reads and validates the settings file at path.
func LoadSettings(path string) (Settings, error) {
	const op errors.Op = "ledger.LoadSettings"

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("level", "info")
	v.SetDefault("format", "text")
	v.SetDefault("timestamp", "standard")
	v.SetDefault("console", "split")
	v.SetDefault("caller", false)

	var s Settings
	if err := v.ReadInConfig(); err != nil {
		return s, errors.New(op).Err(err).Msg(errMsgReadSettings)
	}
	if err := v.Unmarshal(&s); err != nil {
		return s, errors.New(op).Err(err).Msg(errMsgReadSettings)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Apply builds the sinks and formatter described by s and installs them on l,
// registering a category configuration for every entry of Categories. The
// categories share the global sinks and formatter and differ only in level.
func (s Settings) Apply(l *Logger) error {
	return s.applyOver(l, nil)
}

// applyOver is Apply after prev: categories named by prev but not by s are
// removed from the registry.
func (s Settings) applyOver(l *Logger, prev *Settings) error {
	const op errors.Op = "ledger.Settings.Apply"
	if l == nil {
		return errors.New(op).Msg(errMsgNilLogger)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	cfg, err := s.config(l)
	if err != nil {
		return err
	}

	for name, lvl := range s.Categories {
		level, _ := ParseLevel(lvl)
		cat := cfg
		cat.Level = level
		if err = l.Registry().SetConfig(name, cat); err != nil {
			closeAll(cfg.Sinks)
			return err
		}
	}
	if prev != nil {
		for name := range prev.Categories {
			if _, keep := s.Categories[name]; !keep {
				l.Registry().Remove(name)
			}
		}
	}
	return l.Configure(cfg)
}

func (s Settings) config(l *Logger) (Config, error) {
	level, _ := ParseLevel(valueOr("info", s.Level))
	mode, _ := ParseTimestampMode(s.Timestamp)

	var formatter Formatter
	switch s.Format {
	case "json", "console":
		formatter = NewJSONFormatter(mode)
	default:
		formatter = NewTextFormatter(mode, s.Prefix)
	}

	sinks := s.consoleSinks()

	var files []Sink
	if s.File != nil {
		var opts []RotatingOption
		if s.File.Compress {
			opts = append(opts, WithCompression())
		}
		fs, err := NewRotatingFileSink(s.File.Path, s.File.MaxBytes, s.File.MaxFiles, opts...)
		if err != nil {
			return Config{}, err
		}
		files = append(files, fs)
	}
	if s.Archive != nil {
		as, err := NewArchiveFileSink(ArchiveOptions{
			Path:       s.Archive.Path,
			MaxSizeMB:  s.Archive.MaxSizeMB,
			MaxBackups: s.Archive.MaxBackups,
			MaxAgeDays: s.Archive.MaxAgeDays,
			Compress:   s.Archive.Compress,
			LocalTime:  s.Archive.LocalTime,
		})
		if err != nil {
			closeAll(files)
			return Config{}, err
		}
		files = append(files, as)
	}

	if s.Async != nil {
		policy, _ := ParseDropPolicy(s.Async.Policy)
		capacity := valueOr(DefaultAsyncCapacity, s.Async.Capacity)
		for i, inner := range files {
			as, err := NewAsyncSink(inner, capacity, policy, WithErrorHandler(func(err error) {
				l.diag.sinkFailed(inner, err)
			}))
			if err != nil {
				closeAll(files)
				return Config{}, err
			}
			files[i] = as
		}
	}

	return Config{
		Level:        level,
		Sinks:        append(sinks, files...),
		Formatter:    formatter,
		ReportCaller: s.Caller,
	}, nil
}

func (s Settings) consoleSinks() []Sink {
	wrap := func(w io.Writer) Sink {
		if s.Format == "console" {
			return ConsoleSink(w, false)
		}
		return NewStreamSink(w)
	}
	switch s.Console {
	case "none":
		return nil
	case "stdout":
		return []Sink{wrap(os.Stdout)}
	case "stderr":
		return []Sink{wrap(os.Stderr)}
	default:
		return []Sink{
			NewRangeSink(wrap(os.Stdout), LevelTrace, LevelWarning),
			NewRangeSink(wrap(os.Stderr), LevelError, LevelFatal),
		}
	}
}

func closeAll(sinks []Sink) {
	for _, s := range sinks {
		_ = closeSink(s)
	}
}

// WatchSettings loads and applies the settings file at path, then re-applies
// it whenever the file is written or replaced until ctx is cancelled. Errors
// after the initial load are reported on the Logger's diagnostic channel and
// leave the running configuration in place.
func WatchSettings(ctx context.Context, path string, l *Logger) error {
	const op errors.Op = "ledger.WatchSettings"

	current, err := LoadSettings(path)
	if err != nil {
		return err
	}
	if err = current.Apply(l); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgReadSettings)
	}
	// Watch the directory: editors often replace the file rather than write it.
	if err = w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return errors.New(op).Err(err).Msg(errMsgReadSettings)
	}

	target := filepath.Clean(path)
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next, lerr := LoadSettings(path)
				if lerr != nil {
					l.diag.warn("Failed to reload logging settings", lerr)
					continue
				}
				if aerr := next.applyOver(l, &current); aerr != nil {
					l.diag.warn("Failed to apply logging settings", aerr)
					continue
				}
				current = next
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				l.diag.warn("Settings watcher error", werr)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
