package ledger

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	smerrors "github.com/Station-Manager/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger(t *testing.T) {
	require.NotNil(t, Default())

	l, mem := newTestLogger(t, WithLevel(LevelTrace))
	prev := SetDefault(l)
	t.Cleanup(func() { SetDefault(prev) })

	assert.Same(t, l, SetDefault(nil))
	assert.Same(t, l, Default())

	Trace("t")
	Debug("d")
	Info("i", "k", "v")
	Warn("w")
	Error("e")
	Fatal("f")
	Log(context.Background(), LevelInfo, "ctx")
	Get("").Info("category")

	assert.Equal(t, []string{
		"[TRACE] t", "[DEBUG] d", "[INFO] i k=v", "[WARNING] w",
		"[ERROR] e", "[FATAL] f", "[INFO] ctx", "[INFO] category",
	}, mem.Lines())
}

func TestDefaultLogger_ReportsCallerOfHelper(t *testing.T) {
	l, mem := newTestLogger(t)
	l.SetReportCaller(true)
	prev := SetDefault(l)
	t.Cleanup(func() { SetDefault(prev) })

	Info("here")
	require.Len(t, mem.Lines(), 1)
	assert.Regexp(t, `\[logging_test\.go:\d+\]$`, mem.Lines()[0])
}

func TestEvent_Fields(t *testing.T) {
	l, mem := newTestLogger(t)

	l.InfoWith().
		Str("s", "v").
		Strs("list", []string{"a", "b"}).
		Int("i", -3).
		Int64("i64", 1<<40).
		Uint("u", 7).
		Uint64("u64", 9).
		Float64("f", 2.5).
		Bool("b", true).
		Dur("d", 1500*time.Millisecond).
		IPAddr("ip", net.IPv4(10, 0, 0, 1)).
		Hex("hex", []byte{0xca, 0xfe}).
		Quote("q", "two words").
		Interface("any", struct{ A int }{A: 1}).
		Msg("typed")

	assert.Equal(t, []string{
		`[INFO] typed s=v list=a,b i=-3 i64=1099511627776 u=7 u64=9 f=2.5 b=true d=1.5s ip=10.0.0.1 hex=cafe q="two words" any={1}`,
	}, mem.Lines())
}

func TestEvent_DisabledIsNil(t *testing.T) {
	l, mem := newTestLogger(t)

	ev := l.DebugWith()
	assert.Nil(t, ev)
	require.NotPanics(t, func() {
		ev.Str("k", "v").Int("n", 1).Err(errBoom).Ctx(context.Background()).Msg("dropped")
		ev.Msgf("%d", 1)
		ev.Send()
	})
	assert.Empty(t, mem.Lines())
}

func TestEvent_Levels(t *testing.T) {
	l, mem := newTestLogger(t, WithLevel(LevelTrace))

	l.TraceWith().Msg("t")
	l.DebugWith().Msg("d")
	l.WarnWith().Msg("w")
	l.ErrorWith().Msgf("e%d", 1)
	l.FatalWith().Send()
	l.At(LevelInfo).Msg("at")

	assert.Equal(t, []string{"[TRACE] t", "[DEBUG] d", "[WARNING] w", "[ERROR] e1", "[FATAL] ", "[INFO] at"}, mem.Lines())
}

func TestEvent_SendWithFieldsOnly(t *testing.T) {
	l, mem := newTestLogger(t)
	l.InfoWith().Str("k", "v").Send()
	assert.Equal(t, []string{"[INFO] k=v"}, mem.Lines())
}

func TestEvent_Ctx(t *testing.T) {
	l, mem := newTestLogger(t)
	ctx, scope := NewScope(context.Background())
	defer scope.Close()
	scope.Add("trace", "abc")

	l.InfoWith().Ctx(ctx).Str("k", "v").Msg("with ctx")
	assert.Equal(t, []string{"[INFO] with ctx trace=abc k=v"}, mem.Lines())
}

func TestEvent_ErrChain(t *testing.T) {
	l, mem := newTestLogger(t)

	inner := smerrors.New("db.Connect").Msg("connection refused")
	outer := smerrors.New("server.Start").Err(inner).Msg("startup failed")

	l.ErrorWith().Err(outer).Msg("boot")
	l.ErrorWith().AnErr("cause", errBoom).Msg("plain")
	l.ErrorWith().Err(nil).Msg("nil error")

	lines := mem.Lines()
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "error=startup failed")
	assert.Contains(t, lines[0], "error_root=connection refused")
	assert.Contains(t, lines[0], "error_history=startup failed -> connection refused")
	assert.Contains(t, lines[0], "error_root_op=db.Connect")
	assert.Equal(t, "[ERROR] plain cause=boom", lines[1])
	assert.Equal(t, "[ERROR] nil error", lines[2])
}

func TestCategoryEvents(t *testing.T) {
	l, _ := newTestLogger(t)
	cat := NewMemorySink()
	require.NoError(t, l.Registry().SetConfig("rig", NewConfigBuilder().
		SetLevel(LevelDebug).
		AddSink(cat).
		SetFormatter(NewTextFormatter(TimestampNone, "")).
		Build()))

	c := l.Category("rig")
	c.DebugWith().Int("freq", 14074).Msg("tuned")
	c.InfoWith().Msg("i")
	c.WarnWith().Msg("w")
	c.ErrorWith().Msg("e")
	c.At(LevelTrace).Msg("hidden")
	c.InfoContext(context.Background(), "ctx info")
	c.WarnContext(context.Background(), "ctx warn")
	c.ErrorContext(context.Background(), "ctx error")
	c.Log(context.Background(), LevelFatal, "log")

	assert.Equal(t, []string{
		"[DEBUG] tuned freq=14074", "[INFO] i", "[WARNING] w", "[ERROR] e",
		"[INFO] ctx info", "[WARNING] ctx warn", "[ERROR] ctx error", "[FATAL] log",
	}, cat.Lines())
}

type dumpInner struct {
	Name string
	Tags []string
}

type dumpOuter struct {
	ID     int
	Inner  dumpInner
	Attrs  map[string]int
	Next   *dumpOuter
	hidden string
}

func TestDump(t *testing.T) {
	l, mem := newTestLogger(t, WithLevel(LevelDebug))

	t.Run("nil", func(t *testing.T) {
		mem.Reset()
		l.Dump(nil)
		assert.Equal(t, []string{"[DEBUG] Dump: <nil>"}, mem.Lines())
	})

	t.Run("struct", func(t *testing.T) {
		mem.Reset()
		v := dumpOuter{ID: 7, Inner: dumpInner{Name: "n", Tags: []string{"x"}}, Attrs: map[string]int{"a": 1}, hidden: "h"}
		l.Dump(v)
		out := strings.Join(mem.Lines(), "\n")
		assert.Contains(t, out, "[DEBUG] Struct: dumpOuter")
		assert.Contains(t, out, "[DEBUG] ID: 7")
		assert.Contains(t, out, "[DEBUG] Inner.Name: n")
		assert.Contains(t, out, "[DEBUG] Inner.Tags[0]: x")
		assert.Contains(t, out, "[DEBUG] Attrs[a]: 1")
		assert.Contains(t, out, "[DEBUG] Next: <nil>")
		assert.NotContains(t, out, "hidden")
	})

	t.Run("circular", func(t *testing.T) {
		mem.Reset()
		v := &dumpOuter{ID: 1}
		v.Next = v
		require.NotPanics(t, func() { l.Dump(v) })
		assert.Contains(t, strings.Join(mem.Lines(), "\n"), "Next: <circular reference>")
	})

	t.Run("large slice", func(t *testing.T) {
		mem.Reset()
		l.Dump(make([]int, 15))
		assert.Contains(t, strings.Join(mem.Lines(), "\n"), "... (5 more elements)")
	})

	t.Run("disabled", func(t *testing.T) {
		mem.Reset()
		l.SetLevel(LevelInfo)
		defer l.SetLevel(LevelDebug)
		l.Dump(42)
		assert.Empty(t, mem.Lines())
	})

	t.Run("caller", func(t *testing.T) {
		mem.Reset()
		l.SetReportCaller(true)
		defer l.SetReportCaller(false)
		l.Dump(struct{ A int }{A: 1})
		for _, line := range mem.Lines() {
			assert.Regexp(t, `\[logging_test\.go:\d+\]$`, line)
		}
	})
}
