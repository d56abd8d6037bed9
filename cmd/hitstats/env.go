package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mucoll/hitstats/internal/config"
	"github.com/mucoll/hitstats/internal/logging"
	intOtel "github.com/mucoll/hitstats/internal/otel"
	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const logPrefix = "hitstats"

// environment owns the log sinks of one run.
type environment struct {
	logPath string
	logFile *os.File
	slogs   *logging.SlogManager
	otel    *intOtel.Provider
	gelf    io.Closer

	log  *slog.Logger
	zlog zerolog.Logger

	mu    sync.Mutex
	input string
}

func newEnvironment(runStart time.Time) (*environment, error) {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}

	path := logging.LogFilePath(logsDir, logPrefix, runStart)
	if _, err := os.Stat(path); err == nil {
		os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	env := &environment{logPath: path, logFile: f, slogs: logging.NewSlogManager()}
	level := config.GetString("logLevel")

	// failures of optional sinks are logged once the file logger exists
	var warnings []slog.Attr

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, logPrefix)
		if err != nil {
			warnings = append(warnings, slog.Any("graylog", err))
		} else {
			env.slogs.AddSink(w)
			env.gelf = w
		}
	}

	var lp *sdklog.LoggerProvider
	if oc := config.GetOTelConfig(); oc.Enabled {
		p, err := intOtel.New(intOtel.FromSettings(oc, version, f))
		if err != nil {
			warnings = append(warnings, slog.Any("otel", err))
		} else {
			env.otel = p
			lp = p.LoggerProvider()
		}
	}
	if env.otel == nil {
		env.otel, _ = intOtel.New(intOtel.Config{})
	}

	env.slogs.SetContextProvider(env.contextAttrs)
	env.slogs.Setup(f, level, lp)
	env.log = env.slogs.Logger()
	env.zlog = logging.NewZerolog(f, level)

	for _, w := range warnings {
		env.log.Warn("optional log sink unavailable", w)
	}
	env.log.Info("Logging to file", "path", path)
	return env, nil
}

// setInput names the file being read; it is attached to every slog record.
func (e *environment) setInput(path string) {
	e.mu.Lock()
	e.input = path
	e.mu.Unlock()
}

func (e *environment) currentInput() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input
}

func (e *environment) contextAttrs() []slog.Attr {
	if in := e.currentInput(); in != "" {
		return []slog.Attr{slog.String("input", in)}
	}
	return nil
}

func (e *environment) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.slogs.Flush(ctx); err != nil {
		e.zlog.Warn().Err(err).Msg("flushing logs")
	}
	if err := e.otel.Shutdown(ctx); err != nil {
		e.zlog.Warn().Err(err).Msg("stopping otel")
	}
	if e.gelf != nil {
		e.gelf.Close()
	}
	e.logFile.Close()
}
