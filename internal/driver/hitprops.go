package driver

import (
	"fmt"

	"github.com/mucoll/hitstats/internal/pdg"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

// calLayers is the number of layers per calorimeter collection.
var calLayers = map[string]int{
	"ECalBarrelCollection": 40,
	"ECalEndcapCollection": 40,
	"HCalBarrelCollection": 60,
	"HCalEndcapCollection": 60,
	"HCalRingCollection":   68,
}

const defaultCalLayers = 100

// hitPropsTypes are the oldest-particle types that get their own time and
// energy histograms.
var hitPropsTypes = []int{1, 2, 3, 4, 7, 8, 9, 10, 11}

// hitPropsStats are the handles of one calorimeter collection. byType
// holds the time and energy histograms of each entry of hitPropsTypes.
type hitPropsStats struct {
	mult, timeProf, eProf                 stats.Handle
	layerType, layerTime, eTime, zoomTime stats.Handle
	energy, time                          stats.Handle
	byType                                map[int][2]stats.Handle
}

// HitProps histograms calorimeter contributions per layer against time,
// energy and the species of the oldest ancestor.
type HitProps struct {
	setup   Setup
	handles []hitPropsStats
}

func NewHitProps(setup Setup) Driver {
	return &HitProps{setup: setup}
}

func (d *HitProps) Name() string { return "hitprops" }

func (d *HitProps) Requires() []string { return d.setup.Collections.Calorimeter }

func layersOf(collection string) int {
	if n, ok := calLayers[collection]; ok {
		return n
	}
	return defaultCalLayers
}

func (d *HitProps) StartOfData(reg *stats.Registry) error {
	ax := stats.NewAxis
	types := ax("oldest particle type", pdg.NumTypes, 0, pdg.NumTypes)

	d.handles = make([]hitPropsStats, len(d.setup.Collections.Calorimeter))
	for i, col := range d.setup.Collections.Calorimeter {
		n := layersOf(col)
		layer := ax("layer", n+1, 0, float64(n+1))
		rel := ax("time - T0 [ns]", 1100, -50, 500)
		zoom := ax("time - T0 [ns]", 2200, -10, 40)
		energy := ax("energy [keV]", 10000, 0, 1000)

		hs, err := reg.Add(
			stats.H1("h_hit_mult_vs_mcp_type_"+col, types),
			stats.P1("p_hit_time_vs_mcp_type_"+col, types, "time - T0 [ns]"),
			stats.P1("p_hit_e_vs_mcp_type_"+col, types, "energy [keV]"),
			stats.H2("h2_hit_layer_vs_mcp_type_"+col, types, layer),
			stats.H2("h2_hit_layer_vs_hit_time_"+col, rel, layer),
			stats.H2("h2_hit_e_vs_hit_time_"+col, rel, ax("energy [keV]", 250, 0, 500)),
			stats.H2("h2_hit_layer_vs_hit_time_zoom_"+col, ax("time - T0 [ns]", 1000, -10, 40), layer),
			stats.H1("h_hit_e_"+col, energy),
			stats.H1("h_hit_time_"+col, zoom),
		)
		if err != nil {
			return err
		}
		st := hitPropsStats{
			mult: hs[0], timeProf: hs[1], eProf: hs[2],
			layerType: hs[3], layerTime: hs[4], eTime: hs[5], zoomTime: hs[6],
			energy: hs[7], time: hs[8],
			byType: make(map[int][2]stats.Handle, len(hitPropsTypes)),
		}
		for _, t := range hitPropsTypes {
			hs, err := reg.Add(
				stats.H1(fmt.Sprintf("h_hit_time_mcp_%d_%s", t, col), zoom),
				stats.H1(fmt.Sprintf("h_hit_e_mcp_%d_%s", t, col), energy),
			)
			if err != nil {
				return err
			}
			st.byType[t] = [2]stats.Handle{hs[0], hs[1]}
		}
		d.handles[i] = st
	}
	return nil
}

func (d *HitProps) ProcessEvent(ctx *Context, ev *core.Event) error {
	rec := ctx.Recorder()
	res := ctx.Resolver(ev)

	for ci, col := range d.setup.Collections.Calorimeter {
		c, ok := ctx.Collection(ev, col)
		if !ok {
			continue
		}
		schema, idx, err := ctx.Fields(c, "layer")
		if err != nil {
			return err
		}
		hs := &d.handles[ci]
		for i := range c.Hits {
			h := &c.Hits[i]
			agg, err := ctx.Window.Hit(h)
			if err != nil {
				return fmt.Errorf("%s hit %d: %w", col, i, err)
			}
			layer := float64(schema.Decode(h.CellID).At(idx[0]) + 1)

			for _, con := range h.Contribs() {
				rel := con.Time - agg.T0
				e := con.Energy * 1e6
				rec.Fill(hs.layerTime, rel, layer)
				rec.Fill(hs.zoomTime, rel, layer)
				rec.Fill(hs.eTime, rel, e)
				rec.Fill(hs.time, rel)
				rec.Fill(hs.energy, e)

				old, _, ok := res.OldestAncestorOf(con.Particle)
				if !ok {
					continue
				}
				t := pdg.ToType(old.PDG)
				rec.Fill(hs.mult, float64(t))
				rec.Fill(hs.timeProf, float64(t), rel)
				rec.Fill(hs.eProf, float64(t), e)
				rec.Fill(hs.layerType, float64(t), layer)
				if th, ok := hs.byType[t]; ok {
					rec.Fill(th[0], rel)
					rec.Fill(th[1], e)
				}
			}
		}
	}
	return rec.Err()
}

func (d *HitProps) EndOfData() error { return nil }
