// Package aggregate combines the energy and time contributions of a hit
// under a time-of-flight corrected window and a list of time cutoffs.
package aggregate

import (
	"errors"
	"fmt"
	"math"

	"github.com/mucoll/hitstats/pkg/core"
)

// SpeedOfLight is c in mm/ns.
const SpeedOfLight = 299792458.0 / 1e6

var (
	// ErrNoContributions is returned for a hit without contributions.
	ErrNoContributions = errors.New("hit has no contributions")
	// ErrInvalidConfig is wrapped by configuration validation errors.
	ErrInvalidConfig = errors.New("invalid aggregation config")
)

// Config is the time window and the cutoffs, all in ns relative to T0.
type Config struct {
	TMin    float64
	TMax    float64
	Cutoffs []float64
}

// DefaultConfig matches the calorimeter timing studies.
func DefaultConfig() Config {
	return Config{
		TMin:    -1.0,
		TMax:    0.3,
		Cutoffs: []float64{100, 10, 5, 2},
	}
}

// Validate checks that the window is ordered and that cutoffs are usable.
func (c Config) Validate() error {
	if math.IsNaN(c.TMin) || math.IsNaN(c.TMax) {
		return fmt.Errorf("%w: window bound is NaN", ErrInvalidConfig)
	}
	if c.TMin > c.TMax {
		return fmt.Errorf("%w: tMin %g greater than tMax %g", ErrInvalidConfig, c.TMin, c.TMax)
	}
	if len(c.Cutoffs) == 0 {
		return fmt.Errorf("%w: no cutoffs", ErrInvalidConfig)
	}
	for _, cut := range c.Cutoffs {
		if math.IsNaN(cut) {
			return fmt.Errorf("%w: cutoff is NaN", ErrInvalidConfig)
		}
	}
	return nil
}

// Result summarises one hit.
type Result struct {
	T0                 float64
	RepresentativeTime float64
	// EnergyByCutoff is parallel to Config.Cutoffs.
	EnergyByCutoff []float64
	AcceptedCount  int
	AcceptedEnergy float64
	TotalEnergy    float64
	Contributions  int
	// MaxSpread is max(time)-min(time), set only when HasSpread.
	MaxSpread float64
	HasSpread bool
}

// Aggregator evaluates hits against one Config.
type Aggregator struct {
	cfg Config
}

// New validates cfg and returns an aggregator. The cutoff slice is copied.
func New(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cuts := make([]float64, len(cfg.Cutoffs))
	copy(cuts, cfg.Cutoffs)
	cfg.Cutoffs = cuts
	return &Aggregator{cfg: cfg}, nil
}

// Config returns the configuration of the aggregator.
func (a *Aggregator) Config() Config {
	cfg := a.cfg
	cfg.Cutoffs = make([]float64, len(a.cfg.Cutoffs))
	copy(cfg.Cutoffs, a.cfg.Cutoffs)
	return cfg
}

// T0 is the straight-line flight time from the interaction point to pos.
func T0(pos core.Vector3) float64 {
	return pos.Mag() / SpeedOfLight
}

// InWindow reports whether a T0-relative time lies in [TMin, TMax].
func (a *Aggregator) InWindow(rel float64) bool {
	return rel >= a.cfg.TMin && rel <= a.cfg.TMax
}

// Hit aggregates a hit of either kind.
func (a *Aggregator) Hit(h *core.Hit) (Result, error) {
	return a.Aggregate(h.Contribs(), T0(h.Position))
}

// Aggregate evaluates contributions against t0.
//
// The representative time is the contribution time closest to t0; on a tie
// the first contribution wins. A contribution adds its energy to every
// cutoff c with time-t0 <= c.
func (a *Aggregator) Aggregate(contribs []core.Contribution, t0 float64) (Result, error) {
	if len(contribs) == 0 {
		return Result{}, ErrNoContributions
	}

	res := Result{
		T0:             t0,
		EnergyByCutoff: make([]float64, len(a.cfg.Cutoffs)),
		Contributions:  len(contribs),
	}

	best := math.Inf(1)
	tmin, tmax := math.Inf(1), math.Inf(-1)
	for i, c := range contribs {
		rel := c.Time - t0
		if d := math.Abs(rel); i == 0 || d < best {
			best = d
			res.RepresentativeTime = c.Time
		}

		for j, cut := range a.cfg.Cutoffs {
			if rel <= cut {
				res.EnergyByCutoff[j] += c.Energy
			}
		}

		if a.InWindow(rel) {
			res.AcceptedCount++
			res.AcceptedEnergy += c.Energy
		}
		res.TotalEnergy += c.Energy

		tmin = math.Min(tmin, c.Time)
		tmax = math.Max(tmax, c.Time)
	}

	if len(contribs) > 1 {
		res.MaxSpread = tmax - tmin
		res.HasSpread = true
	}
	return res, nil
}

// EnergyAt returns the energy summed for the given cutoff value.
func (a *Aggregator) EnergyAt(r Result, cutoff float64) (float64, bool) {
	for i, c := range a.cfg.Cutoffs {
		if c == cutoff {
			return r.EnergyByCutoff[i], true
		}
	}
	return 0, false
}
