package layout

// Params tunes every stage of the analysis pipeline. Zero values are not
// meaningful; construct with DefaultParams and override selectively, or
// build one from a tuning file via config.TuningConfig.EngineParams.
type Params struct {
	// MinBoxDimension discards boxes whose pixel width or height falls
	// below this many pixels before any statistics are collected.
	MinBoxDimension int

	// Outlier filtering (horizontal edge and center samples only).
	OutlierMinSamples int     // below this count the filter is a no-op
	OutlierIQRMult    float64 // keep window half-width in IQR multiples
	OutlierMaxRemoval float64 // revert the filter when it would drop more than this fraction

	// Estimator binning.
	VerticalBinSize  float64 // pixel rows per bin for vertical position
	SizeBinSize      float64 // pixels per bin for box width and height
	EdgeSpreadWindow float64 // max distance from the modal edge when measuring edge spread

	// BandStdMultiplier widens the caption band: a box joins the
	// horizontal profile when its center row is within this many vertical
	// deviations of the modal row.
	BandStdMultiplier float64

	// Anchor classification.
	CenterBalanceTolerance float64 // max relative imbalance between edge strengths for "center"
	EdgeDominanceMargin    float64 // one edge must beat the other by this fraction to win outright

	// Crop padding.
	PaddingFraction       float64 // base padding as a fraction of the modal box dimension
	SharpnessPaddingScale float64 // how much a fuzzy edge inflates padding, and the fixed-pad multiple
	FallbackPadding       float64 // pixels added around raw extremes when a bound degenerates
}

// DefaultParams returns the tuning used in production.
func DefaultParams() Params {
	return Params{
		MinBoxDimension:        10,
		OutlierMinSamples:      10,
		OutlierIQRMult:         3.0,
		OutlierMaxRemoval:      0.1,
		VerticalBinSize:        5,
		SizeBinSize:            2,
		EdgeSpreadWindow:       100,
		BandStdMultiplier:      2.0,
		CenterBalanceTolerance: 0.3,
		EdgeDominanceMargin:    0.2,
		PaddingFraction:        0.1,
		SharpnessPaddingScale:  2.0,
		FallbackPadding:        20,
	}
}
