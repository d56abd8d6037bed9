package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mucoll/hitstats/internal/stats"
)

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON document.
type Export struct {
	Version int        `json:"version"`
	Run     RunJSON    `json:"run"`
	Stats   []StatJSON `json:"stats"`
}

// RunJSON describes the run that produced the statistics.
type RunJSON struct {
	Inputs     []string  `json:"inputs"`
	Drivers    []string  `json:"drivers"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Events     int       `json:"events"`
	Skipped    int       `json:"skipped"`
	MaxEvents  int       `json:"maxEvents"`
	TMin       float64   `json:"tMin"`
	TMax       float64   `json:"tMax"`
	Cutoffs    []float64 `json:"cutoffs"`
	AppVersion string    `json:"appVersion,omitempty"`
}

// StatJSON is one statistic. Non-finite numbers are written as null.
type StatJSON struct {
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Kind        stats.Kind   `json:"kind"`
	X           *stats.Axis  `json:"x,omitempty"`
	Y           *stats.Axis  `json:"y,omitempty"`
	Columns     []string     `json:"columns,omitempty"`
	TextColumns []string     `json:"textColumns,omitempty"`
	Entries     int64        `json:"entries"`
	SumW        float64      `json:"sumW"`
	Bins        []*float64   `json:"bins,omitempty"`
	Outflow     float64      `json:"outflow,omitempty"`
	SumWY       []*float64   `json:"sumWY,omitempty"`
	SumWY2      []*float64   `json:"sumWY2,omitempty"`
	Rows        [][]*float64 `json:"rows,omitempty"`
	Text        [][]string   `json:"text,omitempty"`
}

func (b *Backend) outputPath() (path string, compress bool) {
	if b.output != "" {
		return b.output, strings.HasSuffix(b.output, ".gz")
	}
	name := fmt.Sprintf("hitstats_%s.json", b.run.StartTime.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return filepath.Join(b.cfg.OutputDir, name), b.cfg.CompressOutput
}

func (b *Backend) exportJSON() error {
	export := b.buildExport()
	path, compress := b.outputPath()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var err error
	if compress {
		err = writeGzipJSON(path, export)
	} else {
		err = writeJSON(path, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = path
	return nil
}

func (b *Backend) buildExport() Export {
	r := b.run
	export := Export{
		Version: FormatVersion,
		Run: RunJSON{
			Inputs:     r.Inputs,
			Drivers:    r.Drivers,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			Events:     r.Events,
			Skipped:    r.Skipped,
			MaxEvents:  r.MaxEvents,
			TMin:       r.TMin,
			TMax:       r.TMax,
			Cutoffs:    r.Cutoffs,
			AppVersion: r.AppVersion,
		},
		Stats: make([]StatJSON, 0, len(b.stats)),
	}

	for _, s := range b.stats {
		export.Stats = append(export.Stats, statJSON(s))
	}
	return export
}

func statJSON(s stats.Stat) StatJSON {
	d := s.Def
	out := StatJSON{
		Name:        d.Name,
		Title:       d.Title,
		Kind:        d.Kind,
		Columns:     d.Columns,
		TextColumns: d.TextColumns,
		Entries:     s.Entries,
		SumW:        s.SumW,
		Outflow:     s.Outflow,
		Text:        s.Text,
	}

	switch d.Kind {
	case stats.Hist1D:
		out.X = &d.X
	case stats.Hist2D, stats.Profile:
		out.X, out.Y = &d.X, &d.Y
	}

	if s.Bins != nil {
		out.Bins = stats.Nullable(s.Bins)
	}
	if s.SumWY != nil {
		out.SumWY = stats.Nullable(s.SumWY)
		out.SumWY2 = stats.Nullable(s.SumWY2)
	}
	if len(s.Rows) > 0 {
		out.Rows = make([][]*float64, len(s.Rows))
		for i, row := range s.Rows {
			out.Rows[i] = stats.Nullable(row)
		}
	}
	return out
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Load reads an export written by the memory backend. Gzip input is
// detected by the ".gz" suffix.
func Load(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &export, nil
}
