package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxis_Bin(t *testing.T) {
	a := NewAxis("t", 10, 0, 10)

	tests := []struct {
		x    float64
		want int
	}{
		{-0.1, 0},
		{0, 1},
		{0.99, 1},
		{1, 2},
		{9.999, 10},
		{10, 11},
		{1e9, 11},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.Bin(tt.x), "x=%v", tt.x)
	}
	assert.InDelta(t, 0.5, a.Center(1), 1e-12)
	assert.InDelta(t, 9.5, a.Center(10), 1e-12)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(
		H1("a", NewAxis("x", 10, 0, 1)),
		H2("b", NewAxis("x", 10, 0, 1), NewAxis("y", 5, -1, 1)),
	))
	assert.Equal(t, 2, r.Len())

	d, ok := r.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, Hist2D, d.Kind)

	err := r.Register(H1("a", NewAxis("x", 1, 0, 1)))
	assert.ErrorIs(t, err, ErrDuplicate)

	names := []string{}
	for _, d := range r.Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestRegistry_RejectsAtomically(t *testing.T) {
	r := NewRegistry()

	err := r.Register(
		H1("ok", NewAxis("x", 10, 0, 1)),
		H1("bad", NewAxis("x", 0, 0, 1)),
	)
	assert.ErrorIs(t, err, ErrInvalidDef)
	assert.Equal(t, 0, r.Len())

	err = r.Register(H1("dup", NewAxis("x", 1, 0, 1)), H1("dup", NewAxis("x", 1, 0, 1)))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 0, r.Len())
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		ok   bool
	}{
		{"h1", H1("h", NewAxis("x", 1, 0, 1)), true},
		{"h1 inverted", H1("h", NewAxis("x", 1, 1, 0)), false},
		{"h2 bad y", H2("h", NewAxis("x", 1, 0, 1), Axis{}), false},
		{"profile", P1("p", NewAxis("x", 4, 0, 4), "y"), true},
		{"tuple", Tuple("t", []string{"a", "b"}), true},
		{"tuple dup", Tuple("t", []string{"a"}, "a"), false},
		{"tuple empty", Tuple("t", nil), false},
		{"no name", H1("", NewAxis("x", 1, 0, 1)), false},
		{"no kind", Definition{Name: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDef)
			}
		})
	}
}

func newAcc(t *testing.T, defs ...Definition) *Accumulator {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(defs...))
	return NewAccumulator(r)
}

func TestAccumulator_Hist1D(t *testing.T) {
	a := newAcc(t, H1("h", NewAxis("x", 4, 0, 4)))

	require.NoError(t, a.Fill("h", 0.5))
	require.NoError(t, a.Fill("h", 0.7))
	require.NoError(t, a.Record("h", []float64{3.5}, 2.5))
	require.NoError(t, a.Fill("h", -1))
	require.NoError(t, a.Fill("h", 4))

	s, ok := a.Get("h")
	require.True(t, ok)
	assert.Equal(t, 2.0, s.BinContent(1))
	assert.Equal(t, 2.5, s.BinContent(4))
	assert.Equal(t, 1.0, s.BinContent(0))
	assert.Equal(t, 1.0, s.BinContent(5))
	assert.Equal(t, int64(5), s.Entries)
	assert.Equal(t, 5.5, s.SumW)
}

func TestAccumulator_Hist2D(t *testing.T) {
	a := newAcc(t, H2("h", NewAxis("x", 2, 0, 2), NewAxis("y", 3, 0, 3)))

	require.NoError(t, a.Fill("h", 1.5, 2.5))
	require.NoError(t, a.Fill("h", 0.5, 0.5))
	require.NoError(t, a.Record("h", []float64{-1, 1}, 2))
	require.NoError(t, a.Fill("h", 1, math.NaN()))

	s, _ := a.Get("h")
	assert.Len(t, s.Bins, 6)
	assert.Equal(t, 1.0, s.BinContent(2, 3))
	assert.Equal(t, 1.0, s.BinContent(1, 1))
	assert.Equal(t, 0.0, s.BinContent(1, 3))
	assert.Equal(t, 0.0, s.BinContent(0, 2), "flow cells are only kept as a total")
	assert.Equal(t, 3.0, s.Outflow)
	assert.Equal(t, int64(4), s.Entries)
	assert.Equal(t, 5.0, s.SumW)
}

func TestAccumulator_NaNIsUnderflow(t *testing.T) {
	a := newAcc(t, H1("h", NewAxis("x", 2, 0, 2)))

	require.NoError(t, a.Fill("h", math.NaN()))
	s, _ := a.Get("h")
	assert.Equal(t, []float64{1, 0, 0, 0}, s.Bins)
}

func TestAccumulator_Handles(t *testing.T) {
	r := NewRegistry()
	a := NewAccumulator(r)

	hs, err := r.Add(
		H1("a", NewAxis("x", 2, 0, 2)),
		Tuple("t", []string{"v"}, "label"),
	)
	require.NoError(t, err)
	require.Len(t, hs, 2)

	h, err := r.Handle("t")
	require.NoError(t, err)
	assert.Equal(t, hs[1], h)

	require.NoError(t, a.FillAt(hs[0], 1.5))
	require.NoError(t, a.RecordAt(hs[0], []float64{1.5}, 2))
	require.NoError(t, a.AppendRowAt(hs[1], []float64{7}, []string{"x"}))

	s, _ := a.Get("a")
	assert.Equal(t, 3.0, s.BinContent(2))
	tu, _ := a.Get("t")
	assert.Equal(t, [][]float64{{7}}, tu.Rows)

	_, err = r.Handle("missing")
	assert.ErrorIs(t, err, ErrUnknownStat)
	assert.ErrorIs(t, a.FillAt(Handle(5), 1), ErrUnknownStat)
	assert.ErrorIs(t, a.FillAt(Handle(-1), 1), ErrUnknownStat)
	assert.ErrorIs(t, a.AppendRowAt(hs[0], []float64{1}, nil), ErrDimension)

	_, err = r.Add(H1("a", NewAxis("x", 1, 0, 1)))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAccumulator_EmptyStats(t *testing.T) {
	a := newAcc(t,
		H1("h", NewAxis("x", 3, 0, 3)),
		H2("h2", NewAxis("x", 2, 0, 2), NewAxis("y", 2, 0, 2)),
		P1("p", NewAxis("x", 1, 0, 1), "y"),
	)

	snap := a.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, make([]float64, 5), snap[0].Bins)
	assert.Equal(t, make([]float64, 4), snap[1].Bins)
	assert.Equal(t, make([]float64, 3), snap[2].SumWY)
	for _, s := range snap {
		assert.Zero(t, s.Entries)
	}
}

func TestAccumulator_Profile(t *testing.T) {
	a := newAcc(t, P1("p", NewAxis("type", 2, 0, 2), "time"))

	require.NoError(t, a.Fill("p", 0.5, 1))
	require.NoError(t, a.Fill("p", 0.5, 3))

	s, _ := a.Get("p")
	mean, spread := s.ProfileBin(1)
	assert.InDelta(t, 2.0, mean, 1e-12)
	assert.InDelta(t, 1.0, spread, 1e-12)

	mean, spread = s.ProfileBin(2)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, spread)
}

func TestAccumulator_NTuple(t *testing.T) {
	a := newAcc(t, Tuple("t", []string{"a", "b"}, "wkt"))

	require.NoError(t, a.AppendRow("t", []float64{1, 2}, []string{"POINT(1 2)"}))
	require.NoError(t, a.AppendRow("t", []float64{3, 4}, []string{"POINT(3 4)"}))

	// numeric-only record is rejected when text columns are declared
	assert.ErrorIs(t, a.Fill("t", 5, 6), ErrDimension)

	s, _ := a.Get("t")
	col, ok := s.Column("b")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 4}, col)
	assert.Equal(t, [][]string{{"POINT(1 2)"}, {"POINT(3 4)"}}, s.Text)
	assert.Equal(t, int64(2), s.Entries)
}

func TestAccumulator_Errors(t *testing.T) {
	a := newAcc(t, H1("h", NewAxis("x", 1, 0, 1)))

	assert.ErrorIs(t, a.Fill("missing", 1), ErrUnknownStat)
	assert.ErrorIs(t, a.Fill("h", 1, 2), ErrDimension)
	assert.ErrorIs(t, a.AppendRow("h", []float64{1}, nil), ErrDimension)
}

func TestAccumulator_LateRegistration(t *testing.T) {
	r := NewRegistry()
	a := NewAccumulator(r)

	require.NoError(t, r.Register(H1("late", NewAxis("x", 1, 0, 1))))
	require.NoError(t, a.Fill("late", 0.5))

	assert.Len(t, a.Snapshot(), 1)
}

func TestAccumulator_MergeDeterministic(t *testing.T) {
	defs := []Definition{
		H1("h", NewAxis("x", 2, 0, 2)),
		P1("p", NewAxis("x", 1, 0, 1), "y"),
		Tuple("t", []string{"v"}),
	}
	r := NewRegistry()
	require.NoError(t, r.Register(defs...))

	first := NewAccumulator(r)
	second := NewAccumulator(r)
	require.NoError(t, first.Fill("h", 0.5))
	require.NoError(t, first.Fill("t", 1))
	require.NoError(t, first.Fill("p", 0.5, 2))
	require.NoError(t, second.Fill("h", 1.5))
	require.NoError(t, second.Fill("t", 2))
	require.NoError(t, second.Fill("p", 0.5, 4))

	total := NewAccumulator(r)
	require.NoError(t, total.Merge(first))
	require.NoError(t, total.Merge(second))

	h, _ := total.Get("h")
	assert.Equal(t, []float64{0, 1, 1, 0}, h.Bins)
	assert.Equal(t, int64(2), h.Entries)

	tu, _ := total.Get("t")
	assert.Equal(t, [][]float64{{1}, {2}}, tu.Rows)

	p, _ := total.Get("p")
	mean, _ := p.ProfileBin(1)
	assert.InDelta(t, 3.0, mean, 1e-12)
	assert.Equal(t, int64(2), p.Entries)
}

func TestAccumulator_MergeHist2D(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(H2("h", NewAxis("x", 2, 0, 2), NewAxis("y", 2, 0, 2))))

	first := NewAccumulator(r)
	second := NewAccumulator(r)
	empty := NewAccumulator(r)
	require.NoError(t, first.Fill("h", 0.5, 1.5))
	require.NoError(t, second.Fill("h", 0.5, 1.5))
	require.NoError(t, second.Fill("h", 5, 5))

	total := NewAccumulator(r)
	require.NoError(t, total.Merge(empty))
	require.NoError(t, total.Merge(first))
	require.NoError(t, total.Merge(second))

	h, _ := total.Get("h")
	assert.Equal(t, 2.0, h.BinContent(1, 2))
	assert.Equal(t, 1.0, h.Outflow)
	assert.Equal(t, int64(3), h.Entries)
}

func TestAccumulator_MergeIncompatible(t *testing.T) {
	a := newAcc(t, H1("h", NewAxis("x", 2, 0, 2)))
	b := newAcc(t, H1("h", NewAxis("x", 3, 0, 2)))
	assert.ErrorIs(t, a.Merge(b), ErrIncompatible)

	c := newAcc(t, H1("h", NewAxis("x", 2, 0, 2)), H1("g", NewAxis("x", 2, 0, 2)))
	assert.ErrorIs(t, a.Merge(c), ErrIncompatible)
}

func TestSnapshot_IsCopy(t *testing.T) {
	a := newAcc(t, H1("h", NewAxis("x", 1, 0, 1)))
	require.NoError(t, a.Fill("h", 0.5))

	snap := a.Snapshot()
	require.NoError(t, a.Fill("h", 0.5))

	assert.Equal(t, 1.0, snap[0].Bins[1])
}

func TestKind_JSON(t *testing.T) {
	b, err := json.Marshal(H1("h", NewAxis("x", 1, 0, 1)))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"hist1d"`)

	var d Definition
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, Hist1D, d.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"pie"}`), &d))
}

func TestNullable(t *testing.T) {
	out := Nullable([]float64{1.5, math.NaN(), math.Inf(1), -2})
	require.Len(t, out, 4)
	assert.Equal(t, 1.5, *out[0])
	assert.Nil(t, out[1])
	assert.Nil(t, out[2])
	assert.Equal(t, -2.0, *out[3])
}
