package ledger

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Close must wait for an emit that is already delivering to a sink.
func TestClose_WaitsForInFlightEmit(t *testing.T) {
	gate := newGateSink()
	l, _ := newTestLogger(t, WithSinks(gate))

	emitted := make(chan struct{})
	go func() {
		l.Info("in flight")
		close(emitted)
	}()
	waitEntered(t, gate)

	closed := make(chan error, 1)
	go func() { closed <- l.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while an emit was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	gate.open()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	<-emitted
	assert.Equal(t, []string{"[INFO] in flight"}, gate.Lines())
}

func TestClose_DrainsAsyncFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	file, err := NewRotatingFileSink(path, 1<<20, 1)
	require.NoError(t, err)
	async, err := NewAsyncSink(file, 4096, DropNewest)
	require.NoError(t, err)

	l, _ := newTestLogger(t, WithSinks(async))

	const n = 500
	for i := 0; i < n; i++ {
		l.Info(fmt.Sprintf("line %d", i))
	}
	require.NoError(t, l.Close())

	lines := strings.Split(strings.TrimSuffix(readFile(t, path), "\n"), "\n")
	require.Len(t, lines, n)
	assert.Equal(t, "[INFO] line 0", lines[0])
	assert.Equal(t, fmt.Sprintf("[INFO] line %d", n-1), lines[n-1])
	assert.ErrorIs(t, file.Write("late"), ErrSinkClosed)
}

func TestClose_ConcurrentProducers(t *testing.T) {
	mem := newCloseTrackingSink()
	l, _ := newTestLogger(t, WithSinks(mem))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					l.Info("busy")
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Close())
	before := len(mem.Lines())
	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Equal(t, before, len(mem.Lines()))
	assert.Equal(t, 1, mem.Closes())
}

func TestClose_ThenConfigure(t *testing.T) {
	l, mem := newTestLogger(t)
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Configure(NewConfigBuilder().Build()), ErrLoggerClosed)
	assert.ErrorIs(t, l.SetFileLogging(filepath.Join(t.TempDir(), "x.log"), 10, 1), ErrLoggerClosed)
	assert.False(t, l.Enabled("", LevelFatal))

	l.Fatal("ignored")
	l.InfoWith().Msg("ignored")
	assert.Empty(t, mem.Lines())
	require.NoError(t, l.Flush())
}
