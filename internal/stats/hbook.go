package stats

import (
	"math"

	"go-hep.org/x/hep/hbook"
)

// hbook sends NaN to overflow; it is filled as underflow here, matching
// Axis.Bin.
func finite(x float64) float64 {
	if math.IsNaN(x) {
		return math.Inf(-1)
	}
	return x
}

func newH1D(a Axis) *hbook.H1D {
	return hbook.NewH1D(a.Bins, a.Min, a.Max)
}

func newH2D(x, y Axis) *hbook.H2D {
	return hbook.NewH2D(x.Bins, x.Min, x.Max, y.Bins, y.Min, y.Max)
}

// weights1D returns the flow-inclusive bin weights of h: underflow first,
// overflow last.
func weights1D(h *hbook.H1D, a Axis) []float64 {
	out := make([]float64, a.Bins+2)
	if h == nil {
		return out
	}
	out[0] = h.Binning.Outflows[0].Dist.SumW
	for i, b := range h.Binning.Bins {
		out[i+1] = b.Dist.Dist.SumW
	}
	out[a.Bins+1] = h.Binning.Outflows[1].Dist.SumW
	return out
}

// weights2D returns the in-range cell weights of h, which hbook lays out
// x fastest like Stat.Bins, and the weight summed over the outflow regions.
func weights2D(h *hbook.H2D, x, y Axis) ([]float64, float64) {
	out := make([]float64, x.Bins*y.Bins)
	if h == nil {
		return out, 0
	}
	for i, b := range h.Binning.Bins {
		out[i] = b.Dist.X.Dist.SumW
	}
	var flow float64
	for _, o := range h.Binning.Outflows {
		flow += o.X.Dist.SumW
	}
	return out, flow
}

func addDist0D(dst *hbook.Dist0D, src hbook.Dist0D) {
	dst.N += src.N
	dst.SumW += src.SumW
	dst.SumW2 += src.SumW2
}

func addDist1D(dst *hbook.Dist1D, src hbook.Dist1D) {
	addDist0D(&dst.Dist, src.Dist)
	dst.Stats.SumWX += src.Stats.SumWX
	dst.Stats.SumWX2 += src.Stats.SumWX2
}

func addDist2D(dst *hbook.Dist2D, src hbook.Dist2D) {
	addDist1D(&dst.X, src.X)
	addDist1D(&dst.Y, src.Y)
	dst.Stats.SumWXY += src.Stats.SumWXY
}

// addH2D adds src into dst. Both come from the same pair of axes, so their
// bins are laid out alike. hbook only sums 1D histograms.
func addH2D(dst, src *hbook.H2D) {
	for i := range dst.Binning.Bins {
		addDist2D(&dst.Binning.Bins[i].Dist, src.Binning.Bins[i].Dist)
	}
	for i := range dst.Binning.Outflows {
		addDist2D(&dst.Binning.Outflows[i], src.Binning.Outflows[i])
	}
	addDist2D(&dst.Binning.Dist, src.Binning.Dist)
}
