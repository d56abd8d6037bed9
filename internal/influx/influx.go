package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/mucoll/hitstats/internal/config"
	"github.com/rs/zerolog"
)

// Measurement is the per-event point name.
const Measurement = "event_processing"

// retention for created buckets
const retentionSeconds = 60 * 60 * 24 * 90

var (
	ErrDisabled       = errors.New("influx metrics disabled")
	ErrNotInitialized = errors.New("influx client not initialized and backup writer not available")
)

// EventMetrics describes the work done for one event.
type EventMetrics struct {
	Run           int32
	Event         int32
	Collections   int
	Hits          int
	Contributions int
	Particles     int
	Duration      time.Duration
}

// Manager writes run metrics to InfluxDB, or to a gzip line-protocol file
// when the server cannot be reached.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
	written    int
}

// NewManager creates an unconnected manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{Logger: log, cfg: cfg}
}

// Connect pings the server and falls back to the backup file when it is
// down. Returns ErrDisabled when metrics are switched off.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing metrics to backup file")
		return nil
	}

	m.IsValid = true
	if err := m.ensureBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", m.cfg.Org).Msg("Error creating organization")
			return err
		}
	}

	if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retentionSeconds,
	})
	if err != nil {
		m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
		return err
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())
}

// EventPoint builds the per-event point. Drivers are tagged in run order.
func EventPoint(drivers []string, em EventMetrics, ts time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(Measurement)
	p.AddTag("run", strconv.Itoa(int(em.Run)))
	p.AddTag("drivers", strings.Join(drivers, "+"))
	p.AddField("event", int64(em.Event))
	p.AddField("collections", int64(em.Collections))
	p.AddField("hits", int64(em.Hits))
	p.AddField("contributions", int64(em.Contributions))
	p.AddField("particles", int64(em.Particles))
	p.AddField("duration_ms", float64(em.Duration.Microseconds())/1000)
	p.SetTime(ts)
	return p
}

// WritePoint queues a point on the live writer or appends its line
// protocol form to the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		m.Writer.WritePoint(point)
		m.written++
		return nil
	}
	if m.BackupWriter == nil {
		return ErrNotInitialized
	}

	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	m.written++
	return nil
}

// Written returns the number of points accepted so far.
func (m *Manager) Written() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}
