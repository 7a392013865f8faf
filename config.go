package ledger

import (
	"fmt"
	"io"

	"github.com/Station-Manager/errors"
)

// Config is one complete logging configuration: a threshold, an ordered list
// of sinks and a formatter. A nil Formatter means the default text formatter.
//
// Sinks and Formatter are skipped by tag validation so live sinks are never
// read through reflection; validate checks the sinks for nil by hand.
type Config struct {
	Level        Level     `validate:"gte=0,lte=5"`
	Sinks        []Sink    `validate:"-"`
	Formatter    Formatter `validate:"-"`
	ReportCaller bool
}

func (c Config) validate(op errors.Op) error {
	if err := validateStruct(op, &c, errMsgConfigInvalid); err != nil {
		return err
	}
	for i, s := range c.Sinks {
		if s == nil {
			return errors.New(op).Msg(fmt.Sprintf("%s Sink %d is nil.", errMsgConfigInvalid, i))
		}
	}
	return nil
}

// clone copies c so the caller's slice can be reused without affecting the
// stored configuration, and fills in the default formatter.
func (c Config) clone() Config {
	out := c
	out.Sinks = append([]Sink(nil), c.Sinks...)
	if out.Formatter == nil {
		out.Formatter = defaultFormatter()
	}
	return out
}

// ConfigBuilder assembles a Config with a fluent API:
//
//	cfg := ledger.NewConfigBuilder().
//		SetLevel(ledger.LevelDebug).
//		AddStreamSink(os.Stdout).
//		SetFormatter(ledger.NewJSONFormatter(ledger.TimestampISO8601)).
//		Build()
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder starts from level Info, no sinks and the default formatter.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: Config{Level: LevelInfo}}
}

func (b *ConfigBuilder) SetLevel(level Level) *ConfigBuilder {
	b.cfg.Level = level
	return b
}

// AddStreamSink appends a StreamSink writing to w.
func (b *ConfigBuilder) AddStreamSink(w io.Writer) *ConfigBuilder {
	b.cfg.Sinks = append(b.cfg.Sinks, NewStreamSink(w))
	return b
}

func (b *ConfigBuilder) AddSink(s Sink) *ConfigBuilder {
	b.cfg.Sinks = append(b.cfg.Sinks, s)
	return b
}

func (b *ConfigBuilder) SetFormatter(f Formatter) *ConfigBuilder {
	b.cfg.Formatter = f
	return b
}

func (b *ConfigBuilder) SetReportCaller(on bool) *ConfigBuilder {
	b.cfg.ReportCaller = on
	return b
}

// Build returns the assembled configuration with the default formatter filled in.
func (b *ConfigBuilder) Build() Config {
	return b.cfg.clone()
}
