package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mucoll/hitstats/internal/config"
	"github.com/mucoll/hitstats/internal/database"
	"github.com/mucoll/hitstats/internal/storage/memory"
	"github.com/mucoll/hitstats/internal/storage/postgres"
	sqlitestorage "github.com/mucoll/hitstats/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// Types lists the supported storage.type values.
var Types = []string{"memory", "sqlite", "postgres"}

// NewBackend creates the backend selected by cfg.Type. cfg.Output, when
// set, is the output file for the memory and sqlite backends.
func NewBackend(ctx context.Context, cfg config.StorageConfig, db config.DBConfig, log *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(cfg.Memory, cfg.Output), nil
	case "sqlite":
		if cfg.Output == "" {
			return nil, fmt.Errorf("sqlite backend: %w", database.ErrNoPath)
		}
		return sqlitestorage.New(sqlitestorage.Config{
			Path:      cfg.Output,
			BatchSize: cfg.BatchSize,
		}, log, dbLog), nil
	case "postgres":
		return postgres.New(ctx, db, cfg.BatchSize, log, dbLog), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
