package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	cases := map[Level]string{
		LevelTrace:   "TRACE",
		LevelDebug:   "DEBUG",
		LevelInfo:    "INFO",
		LevelWarning: "WARNING",
		LevelError:   "ERROR",
		LevelFatal:   "FATAL",
		Level(42):    "UNKNOWN",
		Level(-3):    "UNKNOWN",
	}
	for level, want := range cases {
		assert.Equal(t, want, level.String())
	}
}

func TestLevel_Ordering(t *testing.T) {
	assert.Less(t, LevelTrace, LevelDebug)
	assert.Less(t, LevelDebug, LevelInfo)
	assert.Less(t, LevelInfo, LevelWarning)
	assert.Less(t, LevelWarning, LevelError)
	assert.Less(t, LevelError, LevelFatal)
}

func TestParseLevel(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		cases := map[string]Level{
			"trace":   LevelTrace,
			"DEBUG":   LevelDebug,
			" info ":  LevelInfo,
			"warn":    LevelWarning,
			"Warning": LevelWarning,
			"error":   LevelError,
			"fatal":   LevelFatal,
			"panic":   LevelFatal,
		}
		for in, want := range cases {
			got, err := ParseLevel(in)
			require.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseLevel("verbose")
		assert.Error(t, err)
	})
}

func TestLevel_TextRoundTrip(t *testing.T) {
	text, err := LevelWarning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warning", string(text))

	var l Level
	require.NoError(t, l.UnmarshalText(text))
	assert.Equal(t, LevelWarning, l)

	_, err = Level(9).MarshalText()
	assert.Error(t, err)
}
