package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultInterval is used when Dependencies.Interval is not positive.
const DefaultInterval = 10 * time.Second

// Progress is a point-in-time view of a running run.
type Progress struct {
	Time         time.Time `json:"time"`
	Input        string    `json:"input,omitempty"`
	Events       int64     `json:"events"`
	EventsPerSec float64   `json:"eventsPerSec"`
	Elapsed      string    `json:"elapsed"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger *slog.Logger
	// Events returns the number of events processed so far.
	Events func() int64
	// Input returns the file currently being read, if known.
	Input      func() string
	StatusPath string
	Interval   time.Duration
}

// Service periodically logs run progress and rewrites a status file.
type Service struct {
	deps      Dependencies
	started   time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current progress.
func (s *Service) Status() Progress {
	now := time.Now()
	p := Progress{Time: now}
	if s.deps.Events != nil {
		p.Events = s.deps.Events()
	}
	if s.deps.Input != nil {
		p.Input = s.deps.Input()
	}
	s.mu.RLock()
	elapsed := now.Sub(s.started)
	s.mu.RUnlock()
	if elapsed > 0 {
		p.EventsPerSec = float64(p.Events) / elapsed.Seconds()
	}
	p.Elapsed = elapsed.Round(time.Second).String()
	return p
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.started = time.Now()
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			s.deps.Logger.Error("Error creating status file", "error", err)
		} else {
			statusFile = f
		}
	}

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.report(statusFile)
				return
			case <-ticker.C:
				s.report(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) report(statusFile *os.File) {
	p := s.Status()
	s.deps.Logger.Info("Progress", "events", p.Events, "eventsPerSec", p.EventsPerSec, "elapsed", p.Elapsed)

	if statusFile == nil {
		return
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		s.deps.Logger.Error("Error encoding status", "error", err)
		return
	}
	statusFile.Truncate(0)
	statusFile.Seek(0, 0)
	statusFile.Write(append(data, '\n'))
}

// Stop stops the status monitor and waits for its final report.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
