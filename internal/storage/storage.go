package storage

import (
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

// Backend persists the statistics of a run.
type Backend interface {
	Init() error
	Close() error

	// StartRun records the run description. The backend may assign r.ID.
	StartRun(r *core.Run) error
	// WriteStats persists a snapshot of accumulated statistics, in order.
	WriteStats(s []stats.Stat) error
	// EndRun finalizes the run using the end-of-run fields of the Run passed to StartRun.
	EndRun() error
}

// Exporter is implemented by backends that produce a single output file.
type Exporter interface {
	ExportedFilePath() string
}
