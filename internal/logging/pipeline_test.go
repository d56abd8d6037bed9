package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestPipelineLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(l *PipelineLogger)
	}{
		{"debug", func(l *PipelineLogger) { l.Debug("event routed", "driver", "timing", "event", 7) }},
		{"info", func(l *PipelineLogger) { l.Info("event routed", "driver", "timing", "event", 7) }},
		{"error", func(l *PipelineLogger) { l.Error("event routed", "driver", "timing", "event", 7) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewPipelineLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
			tt.log(l)

			entry := decodeEntry(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "event routed", entry["message"])
			assert.Equal(t, "timing", entry["driver"])
			assert.Equal(t, float64(7), entry["event"])
		})
	}
}

func TestPipelineLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewPipelineLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "skipped", "b", "x", "dangling"})
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, fields)
	assert.Empty(t, toFields(nil))
}

func TestPipelineLogger_ImplementsInterface(t *testing.T) {
	var _ interface {
		Debug(msg string, keysAndValues ...any)
		Info(msg string, keysAndValues ...any)
		Error(msg string, keysAndValues ...any)
	} = NewPipelineLogger(zerolog.Nop())
}
