package driver

import (
	"fmt"

	"github.com/mucoll/hitstats/internal/aggregate"
	"github.com/mucoll/hitstats/internal/pdg"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

// genPDGs are the generator-level species split by whether they left hits.
var genPDGs = []int32{pdg.Photon, pdg.Neutron}

// mcpTrackerStats are the tracker hit histograms of MCP.
type mcpTrackerStats struct {
	timeVsOldest, timeMT0, time, oldestTime stats.Handle
	pdg, oldestPDG, neutronTimeE, timePDG   stats.Handle
}

// mcpCalStats are the calorimeter contribution histograms of MCP.
type mcpCalStats struct {
	timeVsOldest, maxDiff, timeMT0, time, timeExt stats.Handle
	energy, subEnergy, oldestTime, mult           stats.Handle
	pdg, oldestPDG, neutronTimeE, timePDG         stats.Handle
}

// genStats are the histograms of one generator species, hit or not.
type genStats struct {
	energy, time, zy stats.Handle
}

// MCP relates hits to the particles that made them and to the oldest
// ancestors of those particles.
type MCP struct {
	setup Setup
	trk   mcpTrackerStats
	cal   mcpCalStats

	// gen is indexed by species, then 0 for hit and 1 for no hit.
	gen map[int32]*[2]genStats

	// byTime is indexed 0 below referenceCutoff and 1 above, then pdg and energy.
	byTime [2][2]stats.Handle
}

func NewMCP(setup Setup) Driver {
	return &MCP{setup: setup}
}

func (d *MCP) Name() string { return "mcp" }

func (d *MCP) Requires() []string {
	return concat(d.setup.Collections.Tracker, d.setup.Collections.Calorimeter)
}

func (d *MCP) StartOfData(reg *stats.Registry) error {
	ax := stats.NewAxis
	pdgAxis := ax("PDG", 2600, -400, 2200)
	compact := ax("compact PDG", 50, -25, 25)
	wide := ax("time [ns]", 550, -50, 500)
	trk, cal := &d.trk, &d.cal

	bs := []binding{
		bind(stats.H2("h_hit_trk_time_mt0_vs_mcp_oldest_time", ax("time - T0 [ns]", 220, -20, 200), ax("oldest time [ns]", 220, -20, 200)), &trk.timeVsOldest),
		bind(stats.H1("h_hit_trk_time_mt0", wide), &trk.timeMT0),
		bind(stats.H1("h_hit_trk_time", wide), &trk.time),
		bind(stats.H1("h_hit_trk_mcp_oldest_time", wide), &trk.oldestTime),
		bind(stats.H1("h_hit_trk_mcp_pdg", pdgAxis), &trk.pdg),
		bind(stats.H1("h_hit_trk_mcp_oldest_pdg", pdgAxis), &trk.oldestPDG),
		bind(stats.H2("h_hit_trk_n_time_e", ax("time - T0 [ns]", 310, -20, 600), ax("neutron p [GeV]", 500, 0, 2)), &trk.neutronTimeE),
		bind(stats.H2("h_hit_trk_time_pdg", ax("time - T0 [ns]", 320, -20, 300), compact), &trk.timePDG),

		bind(stats.H2("h_hit_cal_time_mt0_vs_mcp_oldest_time", ax("time - T0 [ns]", 320, -20, 300), ax("oldest time [ns]", 320, -20, 300)), &cal.timeVsOldest),
		bind(stats.H1("h_hit_cal_time_maxdiff", ax("max - min time [ns]", 500, 0, 1000)), &cal.maxDiff),
		bind(stats.H1("h_hit_cal_time_mt0", wide), &cal.timeMT0),
		bind(stats.H1("h_hit_cal_time", wide), &cal.time),
		bind(stats.H1("h_hit_cal_time_ext", ax("time [ns]", 5005, -50, 50000)), &cal.timeExt),
		bind(stats.H1("h_hit_cal_energy", ax("energy [GeV]", 1000, 0, 0.001)), &cal.energy),
		bind(stats.H1("h_hit_cal_subenergy", ax("energy [GeV]", 1000, 0, 0.001)), &cal.subEnergy),
		bind(stats.H1("h_hit_cal_mcp_oldest_time", wide), &cal.oldestTime),
		bind(stats.H1("h_hit_cal_mcp_mult", ax("contributions", 100, 0, 100)), &cal.mult),
		bind(stats.H1("h_hit_cal_mcp_pdg", pdgAxis), &cal.pdg),
		bind(stats.H1("h_hit_cal_mcp_oldest_pdg", pdgAxis), &cal.oldestPDG),
		bind(stats.H2("h_hit_cal_n_time_e", ax("time - T0 [ns]", 510, -20, 1000), ax("neutron p [GeV]", 600, 0, 1.2)), &cal.neutronTimeE),
		bind(stats.H2("h_hit_cal_time_pdg", ax("time - T0 [ns]", 510, -20, 1000), compact), &cal.timePDG),
	}

	d.gen = make(map[int32]*[2]genStats, len(genPDGs))
	for _, code := range genPDGs {
		g := new([2]genStats)
		d.gen[code] = g
		for i, s := range []string{"hit", "nohit"} {
			base := fmt.Sprintf("h_mcp_%s_%d", s, code)
			bs = append(bs,
				bind(stats.H1(base+"_e", ax("p [GeV]", 5500, 0, 1.1)), &g[i].energy),
				bind(stats.H1(base+"_time", ax("time [ns]", 1200, -20, 100)), &g[i].time),
				bind(stats.H2(base+"_zy", ax("vertex z [mm]", 800, -8000, 8000), ax("vertex y [mm]", 200, -2000, 2000)), &g[i].zy),
			)
		}
	}
	for i, s := range []string{"tlow", "thigh"} {
		bs = append(bs,
			bind(stats.H1("h_mcp_pdg_"+s, compact), &d.byTime[i][0]),
			bind(stats.H1("h_mcp_e_"+s, ax("neutron p [GeV]", 2000, 0, 2)), &d.byTime[i][1]),
		)
	}
	return register(reg, bs...)
}

func (d *MCP) ProcessEvent(ctx *Context, ev *core.Event) error {
	rec := ctx.Recorder()
	res := ctx.Resolver(ev)
	hitOrigins := make(map[core.ParticleID]bool)
	trk, cal := &d.trk, &d.cal

	for _, name := range d.setup.Collections.Tracker {
		col, ok := ctx.Collection(ev, name)
		if !ok {
			continue
		}
		for i := range col.Hits {
			h := &col.Hits[i]
			t0 := aggregate.T0(h.Position)
			rel := h.Time - t0
			rec.Fill(trk.time, h.Time)
			rec.Fill(trk.timeMT0, rel)

			p, ok := ev.Particle(h.Particle)
			if !ok {
				ctx.Logger.Debug("Hit particle not in event", "collection", name, "particle", h.Particle)
				continue
			}
			rec.Fill(trk.pdg, float64(p.PDG))

			old, _ := res.OldestAncestor(p)
			hitOrigins[old.ID] = true
			rec.Fill(trk.oldestPDG, float64(old.PDG))
			rec.Fill(trk.oldestTime, old.Time)
			rec.Fill(trk.timeVsOldest, rel, old.Time)
			rec.Fill(trk.timePDG, rel, float64(pdg.Compact(old.PDG)))
			if old.PDG == pdg.Neutron {
				rec.Fill(trk.neutronTimeE, rel, old.Momentum.P())
			}
		}
	}

	for _, name := range d.setup.Collections.Calorimeter {
		col, ok := ctx.Collection(ev, name)
		if !ok {
			continue
		}
		for i := range col.Hits {
			h := &col.Hits[i]
			agg, err := ctx.Window.Hit(h)
			if err != nil {
				return fmt.Errorf("%s hit %d: %w", name, i, err)
			}
			rec.Fill(cal.energy, h.TotalEnergy())
			rec.Fill(cal.mult, float64(agg.Contributions))
			if agg.HasSpread {
				rec.Fill(cal.maxDiff, agg.MaxSpread)
			}

			for _, c := range h.Contribs() {
				rel := c.Time - agg.T0
				rec.Fill(cal.time, c.Time)
				rec.Fill(cal.timeExt, c.Time)
				rec.Fill(cal.subEnergy, c.Energy)
				rec.Fill(cal.timeMT0, rel)

				p, ok := ev.Particle(c.Particle)
				if !ok {
					ctx.Logger.Debug("Contribution particle not in event", "collection", name, "particle", c.Particle)
					continue
				}
				rec.Fill(cal.pdg, float64(p.PDG))

				old, _ := res.OldestAncestor(p)
				hitOrigins[old.ID] = true
				rec.Fill(cal.oldestPDG, float64(old.PDG))
				rec.Fill(cal.oldestTime, old.Time)
				rec.Fill(cal.timeVsOldest, rel, old.Time)

				bt := &d.byTime[1]
				if rel < referenceCutoff {
					bt = &d.byTime[0]
				}
				code := float64(pdg.Compact(old.PDG))
				rec.Fill(bt[0], code)
				rec.Fill(cal.timePDG, rel, code)
				if old.PDG == pdg.Neutron {
					rec.Fill(bt[1], old.Momentum.P())
					rec.Fill(cal.neutronTimeE, rel, old.Momentum.P())
				}
			}
		}
	}

	for i := range ev.Particles {
		p := &ev.Particles[i]
		if p.GeneratorStatus != 1 {
			continue
		}
		g, ok := d.gen[p.PDG]
		if !ok {
			continue
		}
		gs := &g[1]
		if hitOrigins[p.ID] {
			gs = &g[0]
		}
		rec.Fill(gs.energy, p.Momentum.P())
		rec.Fill(gs.zy, p.Vertex.Z, p.Vertex.Y)
		rec.Fill(gs.time, p.Time)
	}

	ctx.Logger.Debug("Hits traced to particles", "event", ev.EventNumber, "particles", len(hitOrigins))
	return rec.Err()
}

func (d *MCP) EndOfData() error { return nil }
