package stats

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"
)

// Stat is a copy of the accumulated content of one statistic.
//
// One-dimensional histograms and profiles store weights in Bins with the
// flow bins included: Bins[0] is underflow and Bins[X.Bins+1] overflow.
// Profiles additionally keep SumWY and SumWY2 per x bin. Two-dimensional
// histograms store the in-range cells in Bins, indexed (ix-1)+(iy-1)*X.Bins,
// and the weight that fell outside the grid in Outflow. N-tuples keep their
// rows in Rows and Text.
type Stat struct {
	Def     Definition  `json:"definition"`
	Entries int64       `json:"entries"`
	SumW    float64     `json:"sumW"`
	Bins    []float64   `json:"bins,omitempty"`
	Outflow float64     `json:"outflow,omitempty"`
	SumWY   []float64   `json:"sumWY,omitempty"`
	SumWY2  []float64   `json:"sumWY2,omitempty"`
	Rows    [][]float64 `json:"rows,omitempty"`
	Text    [][]string  `json:"text,omitempty"`
}

// BinContent returns the weight in bin ix, flow bins included. For a
// two-dimensional histogram it takes iy as well and only in-range cells
// have content; the flow total is in Outflow.
func (s *Stat) BinContent(ix int, iy ...int) float64 {
	if len(iy) > 0 {
		nx, ny := s.Def.X.Bins, s.Def.Y.Bins
		if ix < 1 || ix > nx || iy[0] < 1 || iy[0] > ny {
			return 0
		}
		return s.Bins[(ix-1)+(iy[0]-1)*nx]
	}
	return s.Bins[ix]
}

// ProfileBin returns the weighted mean of y and its spread in x bin ix.
func (s *Stat) ProfileBin(ix int) (mean, spread float64) {
	w := s.Bins[ix]
	if w == 0 {
		return 0, 0
	}
	mean = s.SumWY[ix] / w
	v := s.SumWY2[ix]/w - mean*mean
	if v < 0 {
		v = 0
	}
	return mean, math.Sqrt(v)
}

// Column returns the values of a numeric n-tuple column.
func (s *Stat) Column(name string) ([]float64, bool) {
	for i, c := range s.Def.Columns {
		if c == name {
			out := make([]float64, len(s.Rows))
			for r, row := range s.Rows {
				out[r] = row[i]
			}
			return out, true
		}
	}
	return nil, false
}

// content holds one statistic. Histograms are allocated on first fill so
// statistics of detector groups absent from the input cost nothing.
// A profile is three histograms over the same x axis, weighted by w, w*y
// and w*y*y.
type content struct {
	def     Definition
	h1      *hbook.H1D
	h2      *hbook.H2D
	wy, wy2 *hbook.H1D
	rows    [][]float64
	text    [][]string
}

func (c *content) alloc() {
	switch c.def.Kind {
	case Hist1D:
		if c.h1 == nil {
			c.h1 = newH1D(c.def.X)
		}
	case Hist2D:
		if c.h2 == nil {
			c.h2 = newH2D(c.def.X, c.def.Y)
		}
	case Profile:
		if c.h1 == nil {
			c.h1 = newH1D(c.def.X)
			c.wy = newH1D(c.def.X)
			c.wy2 = newH1D(c.def.X)
		}
	}
}

func (c *content) record(values []float64, w float64) {
	c.alloc()
	switch c.def.Kind {
	case Hist1D:
		c.h1.Fill(finite(values[0]), w)
	case Hist2D:
		c.h2.Fill(finite(values[0]), finite(values[1]), w)
	case Profile:
		x, y := finite(values[0]), values[1]
		c.h1.Fill(x, w)
		c.wy.Fill(x, w*y)
		c.wy2.Fill(x, w*y*y)
	}
}

func (c *content) merge(o *content) {
	c.rows = append(c.rows, o.rows...)
	c.text = append(c.text, o.text...)
	if o.h1 == nil && o.h2 == nil {
		return
	}
	c.alloc()
	switch c.def.Kind {
	case Hist1D:
		c.h1 = hbook.AddH1D(c.h1, o.h1)
	case Hist2D:
		addH2D(c.h2, o.h2)
	case Profile:
		c.h1 = hbook.AddH1D(c.h1, o.h1)
		c.wy = hbook.AddH1D(c.wy, o.wy)
		c.wy2 = hbook.AddH1D(c.wy2, o.wy2)
	}
}

func (c *content) stat() Stat {
	d := c.def
	s := Stat{Def: d}
	switch d.Kind {
	case Hist1D, Profile:
		s.Bins = weights1D(c.h1, d.X)
		if c.h1 != nil {
			s.Entries = c.h1.Binning.Dist.Dist.N
			s.SumW = c.h1.Binning.Dist.Dist.SumW
		}
		if d.Kind == Profile {
			s.SumWY = weights1D(c.wy, d.X)
			s.SumWY2 = weights1D(c.wy2, d.X)
		}
	case Hist2D:
		s.Bins, s.Outflow = weights2D(c.h2, d.X, d.Y)
		if c.h2 != nil {
			s.Entries = c.h2.Binning.Dist.X.Dist.N
			s.SumW = c.h2.Binning.Dist.X.Dist.SumW
		}
	case NTuple:
		s.Rows = append([][]float64(nil), c.rows...)
		s.Text = append([][]string(nil), c.text...)
		s.Entries = int64(len(c.rows))
		s.SumW = float64(len(c.rows))
	}
	return s
}

// Accumulator owns the content of every registered statistic.
// It is not safe for concurrent use: parallel runs use one accumulator
// per worker and Merge them afterwards.
type Accumulator struct {
	reg   *Registry
	stats []*content
}

// NewAccumulator prepares content for every definition in reg.
// Definitions registered later are picked up on first use.
func NewAccumulator(reg *Registry) *Accumulator {
	a := &Accumulator{reg: reg}
	a.sync()
	return a
}

func (a *Accumulator) sync() {
	for _, d := range a.reg.defs[len(a.stats):] {
		a.stats = append(a.stats, &content{def: d})
	}
}

func (a *Accumulator) at(h Handle) (*content, error) {
	if int(h) >= len(a.stats) {
		a.sync()
	}
	if h < 0 || int(h) >= len(a.stats) {
		return nil, fmt.Errorf("%w: handle %d", ErrUnknownStat, int(h))
	}
	return a.stats[h], nil
}

func (a *Accumulator) lookup(name string) (*content, error) {
	h, err := a.reg.Handle(name)
	if err != nil {
		return nil, err
	}
	return a.at(h)
}

// Record adds one entry with the given weight.
func (a *Accumulator) Record(name string, values []float64, weight float64) error {
	c, err := a.lookup(name)
	if err != nil {
		return err
	}
	return a.record(c, values, weight)
}

// RecordAt is Record for a registered handle.
func (a *Accumulator) RecordAt(h Handle, values []float64, weight float64) error {
	c, err := a.at(h)
	if err != nil {
		return err
	}
	return a.record(c, values, weight)
}

func (a *Accumulator) record(c *content, values []float64, weight float64) error {
	d := c.def
	if len(values) != d.Dims() {
		return fmt.Errorf("%w: %s expects %d, got %d", ErrDimension, d.Name, d.Dims(), len(values))
	}
	if d.Kind == NTuple {
		return appendRow(c, values, nil)
	}
	c.record(values, weight)
	return nil
}

// Fill records one entry with unit weight.
func (a *Accumulator) Fill(name string, values ...float64) error {
	return a.Record(name, values, 1)
}

// FillAt records one entry with unit weight into a registered handle.
func (a *Accumulator) FillAt(h Handle, values ...float64) error {
	return a.RecordAt(h, values, 1)
}

// AppendRow adds an n-tuple row with numeric and text columns.
func (a *Accumulator) AppendRow(name string, values []float64, text []string) error {
	c, err := a.lookup(name)
	if err != nil {
		return err
	}
	return a.appendRow(c, values, text)
}

// AppendRowAt is AppendRow for a registered handle.
func (a *Accumulator) AppendRowAt(h Handle, values []float64, text []string) error {
	c, err := a.at(h)
	if err != nil {
		return err
	}
	return a.appendRow(c, values, text)
}

func (a *Accumulator) appendRow(c *content, values []float64, text []string) error {
	if c.def.Kind != NTuple {
		return fmt.Errorf("%w: %s is a %v", ErrDimension, c.def.Name, c.def.Kind)
	}
	if len(values) != len(c.def.Columns) {
		return fmt.Errorf("%w: %s expects %d, got %d", ErrDimension, c.def.Name, len(c.def.Columns), len(values))
	}
	return appendRow(c, values, text)
}

func appendRow(c *content, values []float64, text []string) error {
	if len(text) != len(c.def.TextColumns) {
		return fmt.Errorf("%w: %s expects %d text columns, got %d", ErrDimension, c.def.Name, len(c.def.TextColumns), len(text))
	}
	c.rows = append(c.rows, append([]float64(nil), values...))
	if len(c.def.TextColumns) > 0 {
		c.text = append(c.text, append([]string(nil), text...))
	}
	return nil
}

// Get returns a copy of the current content of a statistic.
func (a *Accumulator) Get(name string) (*Stat, bool) {
	c, err := a.lookup(name)
	if err != nil {
		return nil, false
	}
	s := c.stat()
	return &s, true
}

// Merge adds the content of other into a. Both must hold the same
// definitions in the same order. N-tuple rows of other are appended after
// those of a, so merging in a fixed order gives a fixed result.
func (a *Accumulator) Merge(other *Accumulator) error {
	a.sync()
	other.sync()
	if len(a.stats) != len(other.stats) {
		return fmt.Errorf("%w: %d vs %d statistics", ErrIncompatible, len(a.stats), len(other.stats))
	}
	for i, c := range a.stats {
		o := other.stats[i]
		if !c.def.sameShape(o.def) {
			return fmt.Errorf("%w: %s vs %s", ErrIncompatible, c.def.Name, o.def.Name)
		}
	}
	for i, c := range a.stats {
		c.merge(other.stats[i])
	}
	return nil
}

// Snapshot returns copies of all statistics in registration order.
func (a *Accumulator) Snapshot() []Stat {
	a.sync()
	out := make([]Stat, len(a.stats))
	for i, c := range a.stats {
		out[i] = c.stat()
	}
	return out
}

// Registry returns the registry backing the accumulator.
func (a *Accumulator) Registry() *Registry {
	return a.reg
}

// Nullable converts v for JSON output, mapping NaN and ±Inf to nil.
func Nullable(v []float64) []*float64 {
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) && !math.IsInf(v[i], 0) {
			out[i] = &v[i]
		}
	}
	return out
}
