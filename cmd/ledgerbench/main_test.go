package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.log")
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-g", "2", "-n", "50", "--file", path, "--capacity", "1000", "--policy", "drop_newest"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "messages:   100")
	assert.Contains(t, out.String(), `ledger_async_dropped_total{sink="file"} 0`)
	assert.Contains(t, out.String(), `ledger_file_rotations_total{sink="file"} 0`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100, bytes.Count(data, []byte("\n")))
	assert.Contains(t, string(data), "worker=")
}

func TestRootCmd_Settings(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")
	settings := filepath.Join(dir, "ledger.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("console: none\nformat: json\nfile:\n  path: "+logPath+"\n  max_bytes: 1048576\n"), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--settings", settings, "-g", "1", "-n", "10"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, 10, bytes.Count(data, []byte("\n")))
	assert.Contains(t, string(data), `"message":"benchmark message worker=0 seq=`)
}

func TestRootCmd_BadPolicy(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--policy", "random"})
	assert.Error(t, cmd.Execute())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "", labels[fakePair](nil))
	assert.Equal(t, `{a="1",b="2"}`, labels([]fakePair{{"a", "1"}, {"b", "2"}}))
}

type fakePair struct{ name, value string }

func (p fakePair) GetName() string  { return p.name }
func (p fakePair) GetValue() string { return p.value }
