package logging

import "github.com/rs/zerolog"

// PipelineLogger adapts zerolog.Logger to the key/value Logger interface
// used by the event dispatcher.
type PipelineLogger struct {
	logger zerolog.Logger
}

// NewPipelineLogger wraps logger.
func NewPipelineLogger(logger zerolog.Logger) *PipelineLogger {
	return &PipelineLogger{logger: logger}
}

func (l *PipelineLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *PipelineLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *PipelineLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields pairs up keys and values; non-string keys and a trailing odd
// key are dropped.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
