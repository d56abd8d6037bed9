package driver

import (
	"fmt"

	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

var vtxFields = []string{"side", "layer", "module", "sensor"}

// VtxProps histograms vertex detector hits and their decoded location.
type VtxProps struct {
	setup Setup
	// handles holds per collection the energy, time and then one
	// histogram per entry of vtxFields.
	handles [][]stats.Handle
}

func NewVtxProps(setup Setup) Driver {
	return &VtxProps{setup: setup}
}

func (d *VtxProps) Name() string { return "vtxprops" }

func (d *VtxProps) Requires() []string { return d.setup.Collections.Vertex }

func (d *VtxProps) StartOfData(reg *stats.Registry) error {
	d.handles = make([][]stats.Handle, len(d.setup.Collections.Vertex))
	for i, name := range d.setup.Collections.Vertex {
		hs, err := reg.Add(
			stats.H1(name+"_e", stats.NewAxis("energy [keV]", 300, 0, 150)),
			stats.H1(name+"_t", stats.NewAxis("time [ps]", 700, -200, 500)),
			stats.H1(name+"_side", stats.NewAxis("side", 10, -5, 5)),
			stats.H1(name+"_layer", stats.NewAxis("layer", 10, 0, 10)),
			stats.H1(name+"_module", stats.NewAxis("module", 50, 0, 50)),
			stats.H1(name+"_sensor", stats.NewAxis("sensor", 10, 0, 10)),
		)
		if err != nil {
			return err
		}
		d.handles[i] = hs
	}
	return nil
}

func (d *VtxProps) ProcessEvent(ctx *Context, ev *core.Event) error {
	rec := ctx.Recorder()
	for ci, name := range d.setup.Collections.Vertex {
		col, ok := ctx.Collection(ev, name)
		if !ok {
			continue
		}
		schema, idx, err := ctx.Fields(col, vtxFields...)
		if err != nil {
			return err
		}
		hs := d.handles[ci]
		for i := range col.Hits {
			h := &col.Hits[i]
			res, err := ctx.Window.Hit(h)
			if err != nil {
				return fmt.Errorf("%s hit %d: %w", name, i, err)
			}
			rec.Fill(hs[0], h.TotalEnergy()*1e6)
			rec.Fill(hs[1], res.RepresentativeTime*1e3)

			vals := schema.Decode(h.CellID)
			for j := range vtxFields {
				rec.Fill(hs[2+j], float64(vals.At(idx[j])))
			}
		}
	}
	return rec.Err()
}

func (d *VtxProps) EndOfData() error { return nil }
