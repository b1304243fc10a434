package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("Level Filters", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("WARN", false, &buf)
		require.NoError(t, err)

		l.Info("hidden")
		Named(l, "hohparser.server").Warn("shown", "file", "a.py")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, "logger=hohparser.server")
		assert.Contains(t, out, "msg=shown")
		assert.Contains(t, out, "file=a.py")
	})

	t.Run("Debug Overrides Level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("ERROR", true, &buf)
		require.NoError(t, err)
		l.Debug("details")
		assert.Contains(t, buf.String(), "msg=details")
	})

	t.Run("Unknown Level", func(t *testing.T) {
		_, err := New("chatty", false, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
