package layout

import "gonum.org/v1/gonum/floats"

// ProfileAnalysis is a one-dimensional occupancy profile along a single
// axis, with its first differences and the strongest transitions found in
// them. Density[i] counts boxes covering pixel i; Derivative[i] is
// Density[i+1]-Density[i], so a box spanning [lo,hi] produces a positive
// step at lo-1 and a negative step at hi.
type ProfileAnalysis struct {
	Density    []float64
	Derivative []float64

	// PositiveEdgePos marks the strongest rise (content begins just after
	// it); NegativeEdgePos the strongest fall (content ends on it). When a
	// profile has no rise or fall they default to the axis extremes.
	PositiveEdgePos      int
	NegativeEdgePos      int
	PositiveEdgeStrength float64
	NegativeEdgeStrength float64
	MaxDensity           float64
}

// analyzeProfile accumulates box coverage along an axis of the given length.
// span yields the inclusive pixel range a box covers on that axis; ranges
// are clipped to the axis.
func analyzeProfile(length int, boxes []PixelBox, span func(PixelBox) (lo, hi int)) *ProfileAnalysis {
	pa := &ProfileAnalysis{
		Density:         make([]float64, length),
		NegativeEdgePos: length - 1,
	}
	if length == 0 {
		pa.NegativeEdgePos = 0
		return pa
	}
	for _, b := range boxes {
		lo, hi := span(b)
		if lo < 0 {
			lo = 0
		}
		if hi > length-1 {
			hi = length - 1
		}
		for i := lo; i <= hi; i++ {
			pa.Density[i]++
		}
	}
	pa.MaxDensity = floats.Max(pa.Density)
	if length < 2 {
		return pa
	}
	pa.Derivative = make([]float64, length-1)
	mostNegative := 0.0
	for i := 0; i < length-1; i++ {
		d := pa.Density[i+1] - pa.Density[i]
		pa.Derivative[i] = d
		if d > pa.PositiveEdgeStrength {
			pa.PositiveEdgeStrength = d
			pa.PositiveEdgePos = i
		}
		if d < mostNegative {
			mostNegative = d
			pa.NegativeEdgePos = i
		}
	}
	pa.NegativeEdgeStrength = -mostNegative
	return pa
}

// PositiveEdgeSharpness normalizes the rising edge strength by the profile
// peak, landing in [0,1]. An empty profile yields NaN, which downstream
// padding treats as a degenerate edge.
func (pa *ProfileAnalysis) PositiveEdgeSharpness() float64 {
	return clampUnit(pa.PositiveEdgeStrength / pa.MaxDensity)
}

// NegativeEdgeSharpness is the falling-edge counterpart of
// PositiveEdgeSharpness.
func (pa *ProfileAnalysis) NegativeEdgeSharpness() float64 {
	return clampUnit(pa.NegativeEdgeStrength / pa.MaxDensity)
}

// clampUnit clamps to [0,1] but deliberately passes NaN through so callers
// can distinguish "no signal" from "weak signal".
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
