package layout

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// fillDarkenMax caps how dark the interior wash can get so box borders stay
// visually distinct from their fill even at maximum overlap.
const fillDarkenMax = 140

// Overlay line colors, keyed to anchor type.
var (
	anchorLineColors = map[AnchorType]color.RGBA{
		AnchorLeft:   {R: 220, G: 64, B: 48, A: 255},
		AnchorCenter: {R: 240, G: 180, B: 32, A: 255},
		AnchorRight:  {R: 48, G: 96, B: 220, A: 255},
	}
	verticalPositionColor = color.RGBA{R: 32, G: 160, B: 64, A: 255}
)

// RenderOverlay rasterizes caption boxes into an image sized to the crop
// rectangle. Every box contributes its four border segments to an edge
// counter and its strict interior to a fill counter; each buffer is
// normalized by its own maximum, then a white canvas is darkened in two
// passes. Edges darken all three channels toward black; fills darken only
// red and blue, leaving a green wash, and are capped lighter than edges.
// Regions where many frames agree come out darkest, so a stable caption
// band reads as a dark horizontal strip.
//
// When params is non-nil the overlay adds a vertical line at the anchor
// position (color keyed to anchor type) and a horizontal line at the
// vertical position.
func RenderOverlay(boxes []OCRBox, crop CropRect, frameWidth, frameHeight int, params *LayoutParams) *image.RGBA {
	w := crop.Width()
	h := crop.Height()
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	edges := make([]float64, w*h)
	fills := make([]float64, w*h)
	bump := func(buf []float64, x, y int) {
		if x >= 0 && x < w && y >= 0 && y < h {
			buf[y*w+x]++
		}
	}

	for _, ob := range boxes {
		px := ob.ToPixels(frameWidth, frameHeight)
		l := px.Left - crop.Left
		t := px.Top - crop.Top
		r := px.Right - crop.Left
		b := px.Bottom - crop.Top
		for x := l; x <= r; x++ {
			bump(edges, x, t)
			bump(edges, x, b)
		}
		for y := t; y <= b; y++ {
			bump(edges, l, y)
			bump(edges, r, y)
		}
		for y := t + 1; y < b; y++ {
			for x := l + 1; x < r; x++ {
				bump(fills, x, y)
			}
		}
	}

	var maxEdge, maxFill float64
	for i := range edges {
		if edges[i] > maxEdge {
			maxEdge = edges[i]
		}
		if fills[i] > maxFill {
			maxFill = fills[i]
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			rc, gc, bc := 255.0, 255.0, 255.0
			if maxFill > 0 && fills[i] > 0 {
				d := fills[i] / maxFill * fillDarkenMax
				rc -= d
				bc -= d
			}
			if maxEdge > 0 && edges[i] > 0 {
				d := edges[i] / maxEdge * 255
				rc -= d
				gc -= d
				bc -= d
			}
			img.SetRGBA(x, y, color.RGBA{clampByte(rc), clampByte(gc), clampByte(bc), 255})
		}
	}

	if params != nil {
		if c, ok := anchorLineColors[params.AnchorType]; ok {
			if x := params.AnchorPosition - crop.Left; x >= 0 && x < w {
				for y := 0; y < h; y++ {
					img.SetRGBA(x, y, c)
				}
			}
		}
		if y := int(math.Round(params.VerticalPosition)) - crop.Top; y >= 0 && y < h {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, verticalPositionColor)
			}
		}
	}
	return img
}

// EncodeOverlayPNG writes an overlay image as PNG.
func EncodeOverlayPNG(w io.Writer, m image.Image) error {
	return png.Encode(w, m)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Box display colors for the review UI: user labels override predictions.
const (
	colorLabeledCaption    = "#22c55e"
	colorLabeledNotCaption = "#ef4444"
	colorPredictedCaption  = "#eab308"
	colorUnlabeled         = "#9ca3af"
)

// DisplayColor picks the review-UI color for a box given its predicted
// caption flag and optional user label. A user label always wins over the
// prediction.
func DisplayColor(predictedCaption bool, userLabel string) string {
	switch userLabel {
	case "caption":
		return colorLabeledCaption
	case "not_caption":
		return colorLabeledNotCaption
	}
	if predictedCaption {
		return colorPredictedCaption
	}
	return colorUnlabeled
}
