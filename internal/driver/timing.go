package driver

import (
	"fmt"

	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

// referenceCutoff is the cutoff whose energy is plotted against time for
// hits with several contributions.
const referenceCutoff = 10

type category struct {
	prefix      string
	collections []string
}

// timingStats are the handles of one category. energy and zy are parallel
// to the window cutoffs.
type timingStats struct {
	time, timeMT0, timeMT0E stats.Handle
	energy, zy              []stats.Handle
}

// Timing histograms hit time and windowed energy per detector group.
type Timing struct {
	setup      Setup
	categories []category
	handles    []timingStats
}

func NewTiming(setup Setup) Driver {
	return &Timing{
		setup: setup,
		categories: []category{
			{"trk", setup.Collections.Tracker},
			{"cal", setup.Collections.Calorimeter},
			{"muo", setup.Collections.Muon},
		},
	}
}

func (d *Timing) Name() string { return "timing" }

func (d *Timing) Requires() []string {
	c := d.setup.Collections
	return concat(c.Tracker, c.Calorimeter, c.Muon)
}

func (d *Timing) StartOfData(reg *stats.Registry) error {
	d.handles = make([]timingStats, len(d.categories))
	for i, cat := range d.categories {
		t := stats.NewAxis("time [ns]", 1100, -50, 500)
		rel := stats.NewAxis("time - T0 [ns]", 1100, -50, 500)
		hs, err := reg.Add(
			stats.H1(cat.prefix+"_hit_time", t),
			stats.H1(cat.prefix+"_hit_time_mt0", rel),
			stats.H2(cat.prefix+"_hit_time_mt0_e", rel, stats.NewAxis("energy [MeV]", 250, 0, 2)),
		)
		if err != nil {
			return err
		}
		ts := timingStats{time: hs[0], timeMT0: hs[1], timeMT0E: hs[2]}
		for _, c := range d.setup.Window.Cutoffs {
			l := cutoffLabel(c)
			hs, err := reg.Add(
				stats.H1(cat.prefix+"_hit_e_tlt"+l, stats.NewAxis("energy [MeV]", 10000, 0, 20)),
				stats.H2(cat.prefix+"_hit_zy_tlt"+l,
					stats.NewAxis("z [mm]", 240, -6000, 6000),
					stats.NewAxis("y [mm]", 240, -6000, 6000)),
			)
			if err != nil {
				return err
			}
			ts.energy = append(ts.energy, hs[0])
			ts.zy = append(ts.zy, hs[1])
		}
		d.handles[i] = ts
	}
	return nil
}

func (d *Timing) ProcessEvent(ctx *Context, ev *core.Event) error {
	rec := ctx.Recorder()
	for ci, cat := range d.categories {
		for _, name := range cat.collections {
			col, ok := ctx.Collection(ev, name)
			if !ok {
				continue
			}
			for i := range col.Hits {
				if err := d.hit(ctx, rec, &d.handles[ci], &col.Hits[i]); err != nil {
					return fmt.Errorf("%s hit %d: %w", name, i, err)
				}
			}
		}
	}
	return rec.Err()
}

// hit fills one hit. A hit with several contributions is filled for every
// cutoff that collected energy. A single contribution is filled whole,
// whatever its energy, for every cutoff its time does not exceed.
func (d *Timing) hit(ctx *Context, rec *Recorder, hs *timingStats, h *core.Hit) error {
	res, err := ctx.Window.Hit(h)
	if err != nil {
		return err
	}
	rel := res.RepresentativeTime - res.T0
	multi := res.Contributions > 1

	energy := res.TotalEnergy
	if multi {
		if e, ok := ctx.Window.EnergyAt(res, referenceCutoff); ok {
			energy = e
		}
	}

	rec.Fill(hs.time, res.RepresentativeTime)
	rec.Fill(hs.timeMT0, rel)
	rec.Fill(hs.timeMT0E, rel, energy*1e3)

	for j, c := range d.setup.Window.Cutoffs {
		e, ok := ctx.Window.EnergyAt(res, c)
		if !ok {
			return fmt.Errorf("%w: %g", ErrWindowMismatch, c)
		}
		if multi && e <= 0 || !multi && rel > c {
			continue
		}
		rec.Fill(hs.energy[j], e*1e3)
		rec.Fill(hs.zy[j], h.Position.Z, h.Position.Y)
	}
	return nil
}

func (d *Timing) EndOfData() error { return nil }
