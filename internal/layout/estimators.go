package layout

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mode returns the most common value after rounding each sample to the
// nearest multiple of binSize. Ties resolve to the smallest bin so results
// never depend on map iteration order. Empty input yields NaN.
func Mode(values []float64, binSize float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		bin := math.Round(v/binSize) * binSize
		counts[bin]++
	}
	best := math.NaN()
	bestCount := 0
	for bin, count := range counts {
		if count > bestCount || (count == bestCount && bin < best) {
			best = bin
			bestCount = count
		}
	}
	return best
}

// StdAround returns the population standard deviation of values about an
// arbitrary reference point, typically a mode rather than the mean.
func StdAround(values []float64, ref float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.MomentAbout(2, values, ref, nil))
}

// spreadAroundMode measures how tightly edge samples cluster: values further
// than window pixels from the modal value are dropped, then the deviation is
// taken about that mode. Screen furniture far from the caption band would
// otherwise dominate the spread.
func spreadAroundMode(values []float64, binSize, window float64) float64 {
	mode := Mode(values, binSize)
	near := make([]float64, 0, len(values))
	for _, v := range values {
		if math.Abs(v-mode) <= window {
			near = append(near, v)
		}
	}
	return StdAround(near, mode)
}
