// Package sqlitestorage implements storage.Backend with an in-memory SQLite
// database that is written to disk with VACUUM INTO when the run ends.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mucoll/hitstats/internal/database"
	"github.com/mucoll/hitstats/internal/stats"
	gormstorage "github.com/mucoll/hitstats/internal/storage/gorm"
	"github.com/mucoll/hitstats/pkg/core"
	"github.com/rs/zerolog"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path      string // output database file
	BatchSize int
}

var memSeq atomic.Uint64

// memoryDSN names a private shared-cache database so concurrent backends
// in one process do not see each other's tables.
func memoryDSN() string {
	return fmt.Sprintf("file:hitstats_%d?mode=memory&cache=shared", memSeq.Add(1))
}

// Backend wraps the GORM backend and adds the disk dump.
type Backend struct {
	*gormstorage.Backend
	cfg   Config
	log   *slog.Logger
	dbLog zerolog.Logger
}

func New(cfg Config, log *slog.Logger, dbLog zerolog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{cfg: cfg, log: log, dbLog: dbLog}
}

// Init opens the in-memory database and migrates it.
func (b *Backend) Init() error {
	db, err := database.GetSqliteDB(memoryDSN(), b.dbLog)
	if err != nil {
		return fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:        db,
		Logger:    b.log,
		BatchSize: b.cfg.BatchSize,
	})
	return b.Backend.Init()
}

// StartRun requires Init.
func (b *Backend) StartRun(r *core.Run) error {
	if b.Backend == nil {
		return gormstorage.ErrNoDB
	}
	return b.Backend.StartRun(r)
}

// EndRun finalizes the run and dumps the database to cfg.Path.
func (b *Backend) EndRun() error {
	if b.Backend == nil {
		return gormstorage.ErrNoDB
	}
	if err := b.Backend.EndRun(); err != nil {
		return err
	}
	if err := database.DumpMemoryDBToDisk(b.DB(), b.cfg.Path, b.dbLog); err != nil {
		return err
	}
	b.log.Info("SQLite output written", "path", b.cfg.Path)
	return nil
}

func (b *Backend) WriteStats(ss []stats.Stat) error {
	if b.Backend == nil {
		return gormstorage.ErrNoDB
	}
	return b.Backend.WriteStats(ss)
}

func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}

// ExportedFilePath returns the dump target.
func (b *Backend) ExportedFilePath() string {
	return b.cfg.Path
}
