package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults to json info", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&Config{Output: &buf})

		l.Info("hello", slog.String("k", "v"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "v", entry["k"])
	})

	t.Run("debug messages suppressed at info level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&Config{Level: "info", Output: &buf})

		l.Debug("invisible")
		assert.Empty(t, buf.Bytes())
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&Config{Format: "text", Output: &buf})

		l.Info("plain")
		assert.Contains(t, buf.String(), "msg=plain")
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		l := New(nil)
		assert.NotNil(t, l)
	})
}

func TestNewZapLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		t.Run(level, func(t *testing.T) {
			l, err := NewZapLogger(&Config{Level: level})
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Output: &buf}).With("component", "quota")

	l.Info("check")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "quota", entry["component"])
}
