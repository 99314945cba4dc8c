package layout

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// anchorResult is the horizontal alignment decision plus the sharpness of
// whichever edges fed it, carried forward into crop padding.
type anchorResult struct {
	Type           AnchorType
	Position       int
	LeftSharpness  float64
	RightSharpness float64
}

// classifyAnchor decides whether captions are left-, center- or
// right-aligned from the horizontal profile edges and the center-x samples.
//
// Center wins only when the mean center sits within one modal box width of
// the frame midline and the two edge strengths are balanced. Otherwise the
// clearly dominant edge wins; with nothing dominant, a near-tie falls back
// to whichever edge is at least as strong, preferring left.
func classifyAnchor(h *ProfileAnalysis, centerX []float64, frameWidth int, boxWidth float64, p Params) anchorResult {
	meanCenter := stat.Mean(centerX, nil)
	left := h.PositiveEdgeStrength
	right := h.NegativeEdgeStrength

	res := anchorResult{
		LeftSharpness:  h.PositiveEdgeSharpness(),
		RightSharpness: h.NegativeEdgeSharpness(),
	}

	centered := math.Abs(meanCenter-float64(frameWidth)/2) < boxWidth
	balanced := math.Abs(left-right) < p.CenterBalanceTolerance*left

	switch {
	case centered && balanced:
		res.Type = AnchorCenter
		res.Position = int(math.Round(meanCenter))
	case left > (1+p.EdgeDominanceMargin)*right:
		res.Type = AnchorLeft
		res.Position = h.PositiveEdgePos
	case right > (1+p.EdgeDominanceMargin)*left:
		res.Type = AnchorRight
		res.Position = h.NegativeEdgePos
	case left >= right:
		res.Type = AnchorLeft
		res.Position = h.PositiveEdgePos
	default:
		res.Type = AnchorRight
		res.Position = h.NegativeEdgePos
	}
	return res
}
