package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// scopeName is the instrumentation scope reported by the OTel bridge.
const scopeName = "hitstats"

// swapped in tests
var osStdout io.Writer = os.Stdout

// SlogManager owns the process logger. Records fan out to a text sink
// (file, or stdout when no file is given), any extra JSON sinks such as
// Graylog, and the OTel log pipeline when a provider is supplied.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
	extra       []io.Writer
	dynamic     ContextProvider
}

// NewSlogManager creates an unconfigured manager. Logger returns
// slog.Default until Setup is called.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// AddSink registers a writer that receives every record as JSON. Takes
// effect on the next Setup.
func (m *SlogManager) AddSink(w io.Writer) {
	if w != nil {
		m.extra = append(m.extra, w)
	}
}

// SetContextProvider installs a callback whose attributes are appended to
// every record. Takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.dynamic = p
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup (re)builds the logger. A nil provider disables OTel export.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider

	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, opts))
	}
	for _, w := range m.extra {
		handlers = append(handlers, slog.NewJSONHandler(w, opts))
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(scopeName, otelslog.WithLoggerProvider(provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if m.dynamic != nil {
		h = NewContextHandler(h, m.dynamic)
	}

	m.logger = slog.New(h)
	m.logger.Debug("Logging initialized", "level", level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces pending OTel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
