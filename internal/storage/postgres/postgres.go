// Package postgres implements storage.Backend on a Postgres server using
// the GORM backend.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mucoll/hitstats/internal/config"
	"github.com/mucoll/hitstats/internal/database"
	"github.com/mucoll/hitstats/internal/stats"
	gormstorage "github.com/mucoll/hitstats/internal/storage/gorm"
	"github.com/mucoll/hitstats/pkg/core"
	"github.com/rs/zerolog"
)

// Backend connects on Init and then delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	ctx       context.Context
	cfg       config.DBConfig
	batchSize int
	log       *slog.Logger
	dbLog     zerolog.Logger
}

func New(ctx context.Context, cfg config.DBConfig, batchSize int, log *slog.Logger, dbLog zerolog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{ctx: ctx, cfg: cfg, batchSize: batchSize, log: log, dbLog: dbLog}
}

// Init connects, pings and migrates.
func (b *Backend) Init() error {
	db, err := database.GetPostgresDB(b.ctx, b.cfg, b.dbLog)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:        db,
		Logger:    b.log,
		BatchSize: b.batchSize,
	})
	return b.Backend.Init()
}

func (b *Backend) StartRun(r *core.Run) error {
	if b.Backend == nil {
		return gormstorage.ErrNoDB
	}
	return b.Backend.StartRun(r)
}

func (b *Backend) EndRun() error {
	if b.Backend == nil {
		return gormstorage.ErrNoDB
	}
	return b.Backend.EndRun()
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
