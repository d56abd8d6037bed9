package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mucoll/hitstats/pkg/core"
)

func mustNew(t *testing.T, cfg Config) *Aggregator {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func contribsAt(t0 float64, rel []float64, energies []float64) []core.Contribution {
	out := make([]core.Contribution, len(rel))
	for i := range rel {
		out[i] = core.Contribution{Time: t0 + rel[i], Energy: energies[i], Particle: core.ParticleID(i)}
	}
	return out
}

func TestT0(t *testing.T) {
	assert.InDelta(t, 0.166782, T0(core.Vector3{X: 30, Y: 40}), 1e-6)
	assert.Equal(t, 0.0, T0(core.Vector3{}))
	assert.InDelta(t, 1.0, T0(core.Vector3{Z: SpeedOfLight}), 1e-12)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"inverted window", Config{TMin: 1, TMax: 0, Cutoffs: []float64{1}}, true},
		{"no cutoffs", Config{TMin: -1, TMax: 1}, true},
		{"point window", Config{TMin: 0, TMax: 0, Cutoffs: []float64{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	a := mustNew(t, DefaultConfig())
	_, err := a.Aggregate(nil, 0)
	assert.ErrorIs(t, err, ErrNoContributions)
}

func TestAggregate_CutoffMonotonicity(t *testing.T) {
	a := mustNew(t, Config{TMin: -1, TMax: 100, Cutoffs: []float64{2, 5, 10}})

	res, err := a.Aggregate(contribsAt(0, []float64{1, 4, 8, 20}, []float64{1, 2, 3, 4}), 0)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 3, 6}, res.EnergyByCutoff)

	e, ok := a.EnergyAt(res, 5)
	require.True(t, ok)
	assert.Equal(t, 3.0, e)

	_, ok = a.EnergyAt(res, 7)
	assert.False(t, ok)
}

func TestAggregate_CutoffOrderDoesNotMatter(t *testing.T) {
	asc := mustNew(t, Config{TMin: -1, TMax: 1, Cutoffs: []float64{2, 5, 10}})
	desc := mustNew(t, Config{TMin: -1, TMax: 1, Cutoffs: []float64{10, 5, 2}})

	// unsorted times to catch any early exit on a looser cutoff
	contribs := contribsAt(0, []float64{8, 1, 20, 4}, []float64{3, 1, 4, 2})
	r1, err := asc.Aggregate(contribs, 0)
	require.NoError(t, err)
	r2, err := desc.Aggregate(contribs, 0)
	require.NoError(t, err)

	for _, cut := range []float64{2, 5, 10} {
		e1, _ := asc.EnergyAt(r1, cut)
		e2, _ := desc.EnergyAt(r2, cut)
		assert.Equal(t, e1, e2, "cutoff %g", cut)
	}
}

func TestAggregate_TieBreakFirstWins(t *testing.T) {
	a := mustNew(t, DefaultConfig())

	res, err := a.Aggregate(contribsAt(0, []float64{-2, 2}, []float64{1, 1}), 0)
	require.NoError(t, err)
	assert.Equal(t, -2.0, res.RepresentativeTime)

	res, err = a.Aggregate(contribsAt(0, []float64{2, -2}, []float64{1, 1}), 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.RepresentativeTime)
}

func TestAggregate_SingleVsOneElementList(t *testing.T) {
	a := mustNew(t, DefaultConfig())
	pos := core.Vector3{X: 100, Y: 0, Z: 250}

	simple := core.Hit{Position: pos, EDep: 0.004, Time: 1.2, Particle: 7}
	listed := core.Hit{Position: pos, Energy: 0.004, Contributions: []core.Contribution{{Time: 1.2, Energy: 0.004, Particle: 7}}}

	r1, err := a.Hit(&simple)
	require.NoError(t, err)
	r2, err := a.Hit(&listed)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.False(t, r1.HasSpread)
}

func TestAggregate_NegativeRelativeTimes(t *testing.T) {
	a := mustNew(t, Config{TMin: -1, TMax: 0.3, Cutoffs: []float64{100, 10, 5, 2}})

	res, err := a.Aggregate(contribsAt(5, []float64{-0.5, -3}, []float64{0.1, 0.2}), 5)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.3, 0.3, 0.3, 0.3}, res.EnergyByCutoff, 1e-12)
	assert.Equal(t, 1, res.AcceptedCount)
	assert.InDelta(t, 0.1, res.AcceptedEnergy, 1e-12)
	assert.InDelta(t, 4.5, res.RepresentativeTime, 1e-12)
}

func TestAggregate_AllFailEveryCutoff(t *testing.T) {
	a := mustNew(t, DefaultConfig())

	res, err := a.Aggregate(contribsAt(0, []float64{500, 1000}, []float64{1, 1}), 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, res.EnergyByCutoff)
	assert.Equal(t, 0, res.AcceptedCount)
	assert.Equal(t, 2.0, res.TotalEnergy)
}

func TestAggregate_WindowBoundsInclusive(t *testing.T) {
	a := mustNew(t, Config{TMin: -1, TMax: 0.5, Cutoffs: []float64{1}})

	assert.True(t, a.InWindow(-1))
	assert.True(t, a.InWindow(0.5))
	assert.False(t, a.InWindow(0.5000001))
	assert.False(t, a.InWindow(-1.0000001))
}

func TestAggregate_Spread(t *testing.T) {
	a := mustNew(t, DefaultConfig())

	res, err := a.Aggregate(contribsAt(0, []float64{3, 1, 7}, []float64{1, 1, 1}), 0)
	require.NoError(t, err)
	assert.True(t, res.HasSpread)
	assert.Equal(t, 6.0, res.MaxSpread)
}

func TestAggregate_EndToEnd(t *testing.T) {
	a := mustNew(t, Config{TMin: -1, TMax: 10e3, Cutoffs: []float64{100, 10, 5, 2}})

	hit := core.Hit{
		Position: core.Vector3{X: 30, Y: 40, Z: 0},
		Energy:   1.0,
		Contributions: []core.Contribution{
			{Time: 11.17, Energy: 0.5},
			{Time: 15, Energy: 0.3},
			{Time: 9, Energy: 0.2},
		},
	}

	res, err := a.Hit(&hit)
	require.NoError(t, err)

	assert.InDelta(t, 50/SpeedOfLight, res.T0, 1e-12)
	// 9 ns is closest to T0 (~0.167 ns)
	assert.Equal(t, 9.0, res.RepresentativeTime)
	assert.Equal(t, 3, res.AcceptedCount)
	assert.InDelta(t, 1.0, res.EnergyByCutoff[0], 1e-12)
	assert.InDelta(t, 0.2, res.EnergyByCutoff[1], 1e-12)
	assert.Equal(t, 0.0, res.EnergyByCutoff[2])
	assert.Equal(t, 0.0, res.EnergyByCutoff[3])
	assert.InDelta(t, 6.0, res.MaxSpread, 1e-12)
}

func TestNew_CopiesCutoffs(t *testing.T) {
	cuts := []float64{1, 2}
	a := mustNew(t, Config{TMin: 0, TMax: 1, Cutoffs: cuts})
	cuts[0] = 99

	assert.Equal(t, []float64{1, 2}, a.Config().Cutoffs)
}
