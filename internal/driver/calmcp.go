package driver

import (
	"fmt"

	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

const calMCPTuple = "calmcp"

// CalMCP writes one n-tuple row per calorimeter contribution inside the
// time window, with the contributing particle and its oldest ancestor.
type CalMCP struct {
	setup   Setup
	columns []string
	tuple   stats.Handle
}

func NewCalMCP(setup Setup) Driver {
	cols := []string{
		"col_id", "side", "layer",
		"pos_x", "pos_y", "pos_z", "pos_r",
		"time0", "time", "edep",
		"mcp_bib_niters",
	}
	cols = append(cols, particleColumns("mcp")...)
	cols = append(cols, particleColumns("mcp_bib")...)
	return &CalMCP{setup: setup, columns: cols}
}

func (d *CalMCP) Name() string { return "calmcp" }

func (d *CalMCP) Requires() []string { return d.setup.Collections.Calorimeter }

func (d *CalMCP) StartOfData(reg *stats.Registry) error {
	return register(reg, bind(stats.Tuple(calMCPTuple, d.columns), &d.tuple))
}

func (d *CalMCP) ProcessEvent(ctx *Context, ev *core.Event) error {
	rec := ctx.Recorder()
	res := ctx.Resolver(ev)
	rows := 0

	for colID, name := range d.setup.Collections.Calorimeter {
		col, ok := ctx.Collection(ev, name)
		if !ok {
			continue
		}
		schema, idx, err := ctx.Fields(col, "side", "layer")
		if err != nil {
			return err
		}
		for i := range col.Hits {
			h := &col.Hits[i]
			vals := schema.Decode(h.CellID)
			pos := h.Position
			agg, err := ctx.Window.Hit(h)
			if err != nil {
				return fmt.Errorf("%s hit %d: %w", name, i, err)
			}

			for _, c := range h.Contribs() {
				if !ctx.Window.InWindow(c.Time - agg.T0) {
					continue
				}
				p, ok := ev.Particle(c.Particle)
				if !ok {
					ctx.Logger.Debug("Contribution particle not in event", "collection", name, "particle", c.Particle)
					continue
				}
				old, depth := res.OldestAncestor(p)

				row := make([]float64, 0, len(d.columns))
				row = append(row,
					float64(colID), float64(vals.At(idx[0])), float64(vals.At(idx[1])),
					pos.X, pos.Y, pos.Z, pos.Perp(),
					agg.T0, c.Time, c.Energy,
					float64(depth),
				)
				row = append(row, particleRow(p)...)
				row = append(row, particleRow(old)...)
				rec.Row(d.tuple, row)
				rows++
			}
		}
	}

	ctx.Logger.Debug("Contributions in window", "event", ev.EventNumber, "rows", rows)
	return rec.Err()
}

func (d *CalMCP) EndOfData() error { return nil }
