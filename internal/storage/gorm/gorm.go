// Package gormstorage implements storage.Backend on top of GORM. Bins and
// n-tuple rows are queued and inserted in batches.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mucoll/hitstats/internal/database"
	"github.com/mucoll/hitstats/internal/model"
	"github.com/mucoll/hitstats/internal/model/convert"
	"github.com/mucoll/hitstats/internal/queue"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
	"gorm.io/gorm"
)

// DefaultBatchSize is used when Dependencies.BatchSize is not positive.
const DefaultBatchSize = 2000

var (
	ErrNoDB  = errors.New("no database connection")
	ErrNoRun = errors.New("no run started")
)

// Dependencies holds everything the backend needs.
type Dependencies struct {
	DB        *gorm.DB
	Logger    *slog.Logger
	BatchSize int
}

type queues struct {
	Bins *queue.Queue[model.BinRecord]
	Rows *queue.Queue[model.TupleRow]
}

func newQueues() *queues {
	return &queues{
		Bins: queue.New[model.BinRecord](),
		Rows: queue.New[model.TupleRow](),
	}
}

// Backend writes runs and statistics through GORM. It owns the database
// connection and closes it on Close.
type Backend struct {
	deps   Dependencies
	queues *queues
	run    *core.Run
	runID  uint
	order  int
}

func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps, queues: newQueues()}
}

// DB exposes the connection for wrappers that post-process the database.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	b.deps.Logger.Debug("Migrating schema")
	return database.Migrate(b.deps.DB)
}

// Close flushes pending rows and closes the connection.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	flushErr := b.flush()
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return errors.Join(flushErr, err)
	}
	return errors.Join(flushErr, sqlDB.Close())
}

// StartRun inserts the run record and sets r.ID.
func (b *Backend) StartRun(r *core.Run) error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	rec := convert.RunToRecord(r)
	if err := b.deps.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	r.ID = rec.ID
	b.run = r
	b.runID = rec.ID
	b.order = 0
	b.deps.Logger.Info("Run started", "runId", rec.ID)
	return nil
}

// WriteStats inserts one record per statistic and queues its bins or rows.
func (b *Backend) WriteStats(ss []stats.Stat) error {
	if b.run == nil {
		return ErrNoRun
	}
	for _, s := range ss {
		rec := convert.StatToRecord(b.runID, b.order, s)
		if err := b.deps.DB.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to insert stat %s: %w", s.Def.Name, err)
		}
		b.order++

		if s.Def.Kind == stats.NTuple {
			b.queues.Rows.Push(convert.StatRows(rec.ID, s)...)
		} else {
			b.queues.Bins.Push(convert.StatBins(rec.ID, s)...)
		}
	}
	return b.flush()
}

// EndRun flushes the queues and stores the end-of-run counters.
func (b *Backend) EndRun() error {
	if b.run == nil {
		return ErrNoRun
	}
	if err := b.flush(); err != nil {
		return err
	}

	end := b.run.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	err := b.deps.DB.Model(&model.RunRecord{ID: b.runID}).Updates(map[string]any{
		"end_time": end,
		"events":   b.run.Events,
		"skipped":  b.run.Skipped,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	b.deps.Logger.Info("Run stored", "runId", b.runID, "stats", b.order)
	return nil
}

// Pending returns the number of queued rows not yet inserted.
func (b *Backend) Pending() int {
	return b.queues.Bins.Len() + b.queues.Rows.Len()
}

func (b *Backend) flush() error {
	start := time.Now()
	bins, err := writeQueue(b.deps.DB, b.queues.Bins, b.deps.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to insert bins: %w", err)
	}
	rows, err := writeQueue(b.deps.DB, b.queues.Rows, b.deps.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to insert tuple rows: %w", err)
	}
	if bins+rows > 0 {
		b.deps.Logger.Debug("Flushed queues", "bins", bins, "rows", rows, "duration", time.Since(start))
	}
	return nil
}

func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], batchSize int) (int, error) {
	written := 0
	for !q.Empty() {
		batch := q.Drain(batchSize)
		if err := db.CreateInBatches(batch, batchSize).Error; err != nil {
			return written, err
		}
		written += len(batch)
	}
	return written, nil
}
