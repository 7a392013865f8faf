// Command ledgerbench drives concurrent producers through a ledger pipeline
// and reports throughput, drops and rotations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Station-Manager/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	settings   string
	goroutines int
	messages   int
	file       string
	maxBytes   int64
	maxFiles   int
	compress   bool
	capacity   int
	policy     string
	format     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "ledgerbench",
		Short: "Load-test a ledger logging pipeline",
		Long: `Run N goroutines that each log M messages through a ledger Logger.

With --settings the pipeline is built from a settings file; otherwise an
AsyncSink wrapping a RotatingFileSink on --file is used (or a discarding sink
when --file is empty).

EXAMPLES:
  ledgerbench --goroutines 8 --messages 100000 --file /tmp/bench.log
  ledgerbench --settings ledger.yaml --goroutines 4`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.settings, "settings", "", "settings file (YAML, JSON or TOML)")
	f.IntVarP(&opts.goroutines, "goroutines", "g", 4, "concurrent producers")
	f.IntVarP(&opts.messages, "messages", "n", 10000, "messages per producer")
	f.StringVar(&opts.file, "file", "", "rotating log file path")
	f.Int64Var(&opts.maxBytes, "max-bytes", 10<<20, "rotation size in bytes")
	f.IntVar(&opts.maxFiles, "max-files", 3, "backups to keep")
	f.BoolVar(&opts.compress, "compress", false, "gzip rotated backups")
	f.IntVar(&opts.capacity, "capacity", ledger.DefaultAsyncCapacity, "async queue capacity")
	f.StringVar(&opts.policy, "policy", "drop_oldest", "async drop policy (drop_oldest|drop_newest)")
	f.StringVar(&opts.format, "format", "text", "line format (text|json)")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts *benchOptions) error {
	logger := ledger.New(ledger.WithSinks())
	collector := ledger.NewCollector(logger)

	if opts.settings != "" {
		if err := ledger.WatchSettings(ctx, opts.settings, logger); err != nil {
			return err
		}
	} else if err := configure(logger, collector, opts); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return err
	}

	start := time.Now()
	var wg sync.WaitGroup
	for g := 0; g < opts.goroutines; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			ctx, scope := ledger.NewScope(context.Background())
			defer scope.Close()
			scope.Add("worker", worker)
			for i := 0; i < opts.messages; i++ {
				logger.InfoContext(ctx, "benchmark message", "seq", i)
			}
		}(g)
	}
	wg.Wait()
	produced := time.Since(start)

	if err := logger.Flush(); err != nil {
		fmt.Fprintf(out, "flush: %v\n", err)
	}
	total := time.Since(start)

	count := opts.goroutines * opts.messages
	fmt.Fprintf(out, "messages:   %d\n", count)
	fmt.Fprintf(out, "produce:    %s (%.0f msg/s)\n", produced, float64(count)/produced.Seconds())
	fmt.Fprintf(out, "delivered:  %s (%.0f msg/s)\n", total, float64(count)/total.Seconds())

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			if c := m.GetCounter(); c != nil {
				v = c.GetValue()
			} else if g := m.GetGauge(); g != nil {
				v = g.GetValue()
			}
			fmt.Fprintf(out, "%s%s %g\n", mf.GetName(), labels(m.GetLabel()), v)
		}
	}

	return logger.Close()
}

func configure(logger *ledger.Logger, collector *ledger.Collector, opts *benchOptions) error {
	var inner ledger.Sink = ledger.SinkFunc(func(string) error { return nil })
	if opts.file != "" {
		var ropts []ledger.RotatingOption
		if opts.compress {
			ropts = append(ropts, ledger.WithCompression())
		}
		fs, err := ledger.NewRotatingFileSink(opts.file, opts.maxBytes, opts.maxFiles, ropts...)
		if err != nil {
			return err
		}
		collector.AddRotatingFileSink("file", fs)
		inner = fs
	}

	policy, err := ledger.ParseDropPolicy(opts.policy)
	if err != nil {
		return err
	}
	async, err := ledger.NewAsyncSink(inner, opts.capacity, policy)
	if err != nil {
		return err
	}
	collector.AddAsyncSink("file", async)

	var formatter ledger.Formatter = ledger.NewTextFormatter(ledger.TimestampStandard, "")
	if opts.format == "json" {
		formatter = ledger.NewJSONFormatter(ledger.TimestampISO8601)
	}

	return logger.Configure(ledger.NewConfigBuilder().
		SetLevel(ledger.LevelInfo).
		AddSink(async).
		SetFormatter(formatter).
		Build())
}

type labelPair interface {
	GetName() string
	GetValue() string
}

func labels[T labelPair](pairs []T) string {
	if len(pairs) == 0 {
		return ""
	}
	s := "{"
	for i, p := range pairs {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return s + "}"
}
