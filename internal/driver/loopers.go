package driver

import (
	"fmt"

	"github.com/mucoll/hitstats/internal/geo"
	"github.com/mucoll/hitstats/internal/pdg"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

const (
	loopersTuple    = "loopers"
	looperHitsTuple = "looper_hits"
)

type looperHit struct {
	det int
	hit *core.Hit
}

// Loopers records electrons and positrons that left tracker hits, with
// their hit trajectory as WKT.
type Loopers struct {
	setup         Setup
	columns       []string
	particles     int
	tuple, hitRow stats.Handle
}

func NewLoopers(setup Setup) Driver {
	cols := []string{"event"}
	cols = append(cols, particleColumns("mcp")...)
	cols = append(cols, "mcp_nhits")
	return &Loopers{setup: setup, columns: cols}
}

func (d *Loopers) Name() string { return "loopers" }

func (d *Loopers) Requires() []string { return d.setup.Collections.Tracker }

func (d *Loopers) StartOfData(reg *stats.Registry) error {
	return register(reg,
		bind(stats.Tuple(loopersTuple, d.columns, "trajectory"), &d.tuple),
		bind(stats.Tuple(looperHitsTuple, []string{
			"event", "mcp_id", "hit_det", "hit_t",
			"hit_pos_x", "hit_pos_y", "hit_pos_z", "hit_pos_r",
		}), &d.hitRow),
	)
}

func (d *Loopers) ProcessEvent(ctx *Context, ev *core.Event) error {
	byParticle := make(map[core.ParticleID][]looperHit)
	for det, name := range d.setup.Collections.Tracker {
		col, ok := ctx.Collection(ev, name)
		if !ok {
			continue
		}
		for i := range col.Hits {
			h := &col.Hits[i]
			byParticle[h.Particle] = append(byParticle[h.Particle], looperHit{det: det, hit: h})
		}
	}

	rec := ctx.Recorder()
	evNum := float64(ev.EventNumber)
	for i := range ev.Particles {
		p := &ev.Particles[i]
		if p.PDG != pdg.Electron && p.PDG != -pdg.Electron {
			continue
		}
		hits := byParticle[p.ID]
		if len(hits) == 0 {
			continue
		}

		points := make([]core.Vector3, len(hits))
		for j, lh := range hits {
			pos := lh.hit.Position
			points[j] = pos
			rec.Row(d.hitRow, []float64{
				evNum, float64(p.ID), float64(lh.det), lh.hit.Time,
				pos.X, pos.Y, pos.Z, pos.Perp(),
			})
		}
		wkt, err := geo.TrajectoryWKT(points)
		if err != nil {
			return fmt.Errorf("particle %d: %w", p.ID, err)
		}

		row := append([]float64{evNum}, particleRow(p)...)
		row = append(row, float64(len(hits)))
		rec.Row(d.tuple, row, wkt)
		d.particles++
	}
	return rec.Err()
}

func (d *Loopers) EndOfData() error {
	d.setup.logger().Info("Looper particles saved", "particles", d.particles)
	return nil
}
