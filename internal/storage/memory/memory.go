package memory

import (
	"errors"
	"sync"

	"github.com/mucoll/hitstats/internal/config"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

var ErrNoRun = errors.New("no run started")

// Backend keeps the run in memory and exports it as JSON on EndRun.
type Backend struct {
	cfg    config.MemoryConfig
	output string

	run            *core.Run
	stats          []stats.Stat
	lastExportPath string
	mu             sync.Mutex
}

// New creates a memory backend. A non-empty output overrides the
// generated file name; a ".gz" suffix selects gzip.
func New(cfg config.MemoryConfig, output string) *Backend {
	return &Backend{cfg: cfg, output: output}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartRun resets the backend for r.
func (b *Backend) StartRun(r *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = r
	b.stats = nil
	b.lastExportPath = ""
	return nil
}

// WriteStats appends s to the run content.
func (b *Backend) WriteStats(s []stats.Stat) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.stats = append(b.stats, s...)
	return nil
}

// EndRun writes the export file.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	return b.exportJSON()
}

// ExportedFilePath is empty until EndRun succeeds.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastExportPath
}
