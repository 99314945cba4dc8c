package layout

import "sort"

// FilterOutliers drops values far outside the interquartile range,
// preserving input order. It is meant for the horizontal edge and center
// samples; vertical structure is what the estimators look for and is never
// pruned.
//
// With fewer than OutlierMinSamples values there is not enough evidence to
// filter and the input comes back unchanged. The quartiles are taken at
// index floor(n*q) of the sorted copy, without interpolation, and the keep
// window is a deliberately wide OutlierIQRMult multiples of the IQR so
// legitimately sparse captions survive. If filtering would still remove more
// than OutlierMaxRemoval of the samples, the distribution is assumed to be
// genuinely wide and the input comes back unchanged.
func FilterOutliers(values []float64, p Params) []float64 {
	if len(values) < p.OutlierMinSamples {
		return values
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	q1 := sorted[int(float64(n)*0.25)]
	q3 := sorted[int(float64(n)*0.75)]
	iqr := q3 - q1
	lo := q1 - p.OutlierIQRMult*iqr
	hi := q3 + p.OutlierIQRMult*iqr

	kept := make([]float64, 0, n)
	for _, v := range values {
		if v >= lo && v <= hi {
			kept = append(kept, v)
		}
	}
	if float64(n-len(kept)) > float64(n)*p.OutlierMaxRemoval {
		return values
	}
	return kept
}
