package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/mucoll/hitstats/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: false})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestWritePoint_NotInitialized(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	err := m.WritePoint(influxdb2_write.NewPointWithMeasurement(Measurement))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestEventPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	p := EventPoint([]string{"timing", "mcp"}, EventMetrics{
		Run:           7,
		Event:         12,
		Collections:   3,
		Hits:          10,
		Contributions: 25,
		Particles:     40,
		Duration:      1500 * time.Microsecond,
	}, ts)

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, Measurement+",")
	assert.Contains(t, line, "run=7")
	assert.Contains(t, line, "drivers=timing+mcp")
	assert.Contains(t, line, "hits=10i")
	assert.Contains(t, line, "contributions=25i")
	assert.Contains(t, line, "duration_ms=1.5")
	assert.Contains(t, line, "1700000000000000000")
}

func TestConnect_FallsBackToBackupFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "metrics.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "hitstats",
		Bucket:     "hitstats_performance",
		BackupPath: backup,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	for i := int32(1); i <= 2; i++ {
		p := EventPoint([]string{"timing"}, EventMetrics{Run: 1, Event: i, Hits: int(i)}, time.Unix(0, 0))
		require.NoError(t, m.WritePoint(p))
	}
	assert.Equal(t, 2, m.Written())
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "event=1i")
	assert.Contains(t, lines[1], "event=2i")
}
