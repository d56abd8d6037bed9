package driver

import (
	"maps"
	"slices"

	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

// densityLayers is the layer count reserved per collection on the layer axis.
const densityLayers = 8

var densityStats = []string{"min", "max", "mean", "median", "sum"}

// Density profiles, per layer, how many hits each hit sensor received in
// an event.
type Density struct {
	setup   Setup
	handles []stats.Handle // parallel to densityStats
}

func NewDensity(setup Setup) Driver {
	return &Density{setup: setup}
}

func (d *Density) Name() string { return "density" }

func (d *Density) Requires() []string { return d.setup.Collections.Vertex }

func (d *Density) StartOfData(reg *stats.Registry) error {
	n := float64(len(d.setup.Collections.Vertex) * densityLayers)
	layer := stats.NewAxis("layer", int(n), 0, n)
	defs := make([]stats.Definition, len(densityStats))
	for i, s := range densityStats {
		defs[i] = stats.P1("h_nhits_"+s, layer, "hits per sensor")
	}
	hs, err := reg.Add(defs...)
	d.handles = hs
	return err
}

func (d *Density) ProcessEvent(ctx *Context, ev *core.Event) error {
	rec := ctx.Recorder()
	for ci, name := range d.setup.Collections.Vertex {
		col, ok := ctx.Collection(ev, name)
		if !ok {
			continue
		}
		schema, idx, err := ctx.Fields(col, "layer")
		if err != nil {
			return err
		}

		perLayer := make(map[int64]map[uint64]int)
		for i := range col.Hits {
			id := col.Hits[i].CellID
			l := schema.Decode(id).At(idx[0])
			if perLayer[l] == nil {
				perLayer[l] = make(map[uint64]int)
			}
			perLayer[l][id]++
		}

		offset := ci * densityLayers
		for _, l := range slices.Sorted(maps.Keys(perLayer)) {
			sensors := perLayer[l]
			counts := make([]float64, 0, len(sensors))
			for _, n := range sensors {
				counts = append(counts, float64(n))
			}
			x := float64(offset) + float64(l)
			for i, v := range summarize(counts) {
				rec.Fill(d.handles[i], x, v)
			}
			ctx.Logger.Debug("Sensors hit", "collection", name, "layer", l, "sensors", len(sensors))
		}
	}
	return rec.Err()
}

func (d *Density) EndOfData() error { return nil }

// summarize returns min, max, mean, median and sum of a non-empty slice.
func summarize(v []float64) [5]float64 {
	slices.Sort(v)
	var sum float64
	for _, x := range v {
		sum += x
	}
	n := len(v)
	median := v[n/2]
	if n%2 == 0 {
		median = (v[n/2-1] + v[n/2]) / 2
	}
	return [5]float64{v[0], v[n-1], sum / float64(n), median, sum}
}
