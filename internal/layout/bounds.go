package layout

import "math"

// paddingMultiplier inflates padding as edge confidence drops. A perfectly
// sharp edge (sharpness 1) keeps base padding; a flat edge triples it with
// the default scale. NaN sharpness propagates so the caller can fall back.
func paddingMultiplier(sharpness float64, p Params) float64 {
	return 1 + p.SharpnessPaddingScale*(1-math.Min(1, sharpness))
}

func scaledPad(dim, sharpness float64, p Params) float64 {
	return math.Ceil(dim * p.PaddingFraction * paddingMultiplier(sharpness, p))
}

// calculateCropBounds turns profile edges and the anchor decision into a
// clamped crop rectangle. Vertical bounds pad the profile edges by a
// sharpness-scaled fraction of the modal box height. Horizontal bounds
// depend on the anchor: the anchored side gets sharpness-scaled padding
// while the ragged side extends past the raw extreme by a fixed multiple of
// the modal box width.
//
// Any bound that comes out NaN or infinite (empty profile, zero peak
// density) is replaced by the raw extreme plus fallback padding, and the
// rectangle is flagged degenerate so callers can log it.
func calculateCropBounds(vertical *ProfileAnalysis, anchor anchorResult, stats *BoxStatistics, boxHeight, boxWidth float64, frameWidth, frameHeight int, p Params) (CropRect, bool) {
	top := float64(vertical.PositiveEdgePos) - scaledPad(boxHeight, vertical.PositiveEdgeSharpness(), p)
	bottom := float64(vertical.NegativeEdgePos) + scaledPad(boxHeight, vertical.NegativeEdgeSharpness(), p)

	fixedPad := math.Ceil(boxWidth * p.SharpnessPaddingScale)
	var left, right float64
	switch anchor.Type {
	case AnchorCenter:
		left = float64(stats.MinLeft) - fixedPad
		right = float64(stats.MaxRight) + fixedPad
	case AnchorRight:
		left = float64(stats.MinLeft) - fixedPad
		right = float64(anchor.Position) + scaledPad(boxWidth, anchor.RightSharpness, p)
	default: // AnchorLeft
		left = float64(anchor.Position) - scaledPad(boxWidth, anchor.LeftSharpness, p)
		right = float64(stats.MaxRight) + fixedPad
	}

	degenerate := false
	if !isFinite(left) {
		left = float64(stats.MinLeft) - p.FallbackPadding
		degenerate = true
	}
	if !isFinite(right) {
		right = float64(stats.MaxRight) + p.FallbackPadding
		degenerate = true
	}
	if !isFinite(top) {
		top = float64(stats.MinTop) - p.FallbackPadding
		degenerate = true
	}
	if !isFinite(bottom) {
		bottom = float64(stats.MaxBottom) + p.FallbackPadding
		degenerate = true
	}

	rect := CropRect{
		Left:   clampPixel(left, frameWidth),
		Top:    clampPixel(top, frameHeight),
		Right:  clampPixel(right, frameWidth),
		Bottom: clampPixel(bottom, frameHeight),
	}
	return rect, degenerate
}

func clampPixel(v float64, limit int) int {
	if v < 0 {
		return 0
	}
	if v > float64(limit) {
		return limit
	}
	return int(v)
}
