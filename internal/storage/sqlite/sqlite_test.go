package sqlitestorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mucoll/hitstats/internal/database"
	"github.com/mucoll/hitstats/internal/model"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/internal/storage"
	gormstorage "github.com/mucoll/hitstats/internal/storage/gorm"
	"github.com/mucoll/hitstats/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

func TestBeforeInit(t *testing.T) {
	b := New(Config{Path: "x.db"}, nil, zerolog.Nop())
	assert.ErrorIs(t, b.StartRun(&core.Run{}), gormstorage.ErrNoDB)
	assert.ErrorIs(t, b.WriteStats(nil), gormstorage.ErrNoDB)
	assert.ErrorIs(t, b.EndRun(), gormstorage.ErrNoDB)
	assert.NoError(t, b.Close())
}

func TestRunDumpsToDisk(t *testing.T) {
	out := filepath.Join(t.TempDir(), "hitstats.db")
	b := New(Config{Path: out, BatchSize: 3}, nil, zerolog.Nop())
	require.NoError(t, b.Init())

	reg := stats.NewRegistry()
	require.NoError(t, reg.Register(stats.H1("hit_e", stats.NewAxis("e", 4, 0, 4))))
	acc := stats.NewAccumulator(reg)
	for _, x := range []float64{0.5, 1.5, 2.5, 3.5, 9} {
		require.NoError(t, acc.Fill("hit_e", x))
	}

	run := &core.Run{Drivers: []string{"timing"}, StartTime: time.Now()}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.WriteStats(acc.Snapshot()))
	run.Events = 2
	require.NoError(t, b.EndRun())
	require.NoError(t, b.Close())
	assert.Equal(t, out, b.ExportedFilePath())

	db, err := database.GetSqliteDB(out, zerolog.Nop())
	require.NoError(t, err)

	var runs []model.RunRecord
	require.NoError(t, db.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Events)

	var bins []model.BinRecord
	require.NoError(t, db.Order("\"index\"").Find(&bins).Error)
	require.Len(t, bins, 5)
	assert.Equal(t, 5, bins[4].Index, "overflow")
}

func TestMemoryDSNUnique(t *testing.T) {
	assert.NotEqual(t, memoryDSN(), memoryDSN())
}
