// Package layout implements the caption layout analysis engine: it turns
// OCR-detected text boxes from many frames of one video into a pixel-space
// description of where captions live (vertical band, horizontal anchor) and
// a padded crop rectangle that contains the caption text across the video.
//
// The engine is a pure, synchronous computation. Persistence, versioning and
// cache invalidation live in internal/db; this package never touches a
// database or the network.
package layout

import (
	"errors"
	"math"
)

// ErrNoBoxesFound indicates that a video has no usable text boxes. Boxes
// shorter or narrower than the minimum dimension do not count as usable.
var ErrNoBoxesFound = errors.New("no usable text boxes found")

// OCRBox is one detected text box within one frame. Coordinates are
// fractional in [0,1] with y measured from the bottom edge of the frame.
// Boxes are immutable once produced by the OCR step.
type OCRBox struct {
	FrameIndex int     `json:"frame_index"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// PixelBox is an OCRBox converted into pixel space. Top is smaller than
// Bottom: rows count downward from the top of the frame.
type PixelBox struct {
	Left    int
	Top     int
	Right   int
	Bottom  int
	Width   int
	Height  int
	CenterX float64
	CenterY float64
}

// ToPixels converts the fractional box into pixel coordinates for the given
// frame size. The y origin flips from bottom-relative to top-relative.
func (b OCRBox) ToPixels(frameWidth, frameHeight int) PixelBox {
	fw := float64(frameWidth)
	fh := float64(frameHeight)
	left := int(math.Floor(b.X * fw))
	bottom := int(math.Floor((1 - b.Y) * fh))
	top := bottom - int(math.Floor(b.Height*fh))
	right := left + int(math.Floor(b.Width*fw))
	return PixelBox{
		Left:    left,
		Top:     top,
		Right:   right,
		Bottom:  bottom,
		Width:   right - left,
		Height:  bottom - top,
		CenterX: float64(left+right) / 2,
		CenterY: float64(top+bottom) / 2,
	}
}

// CropRect is a pixel-space crop rectangle. Bounds are inclusive of Left/Top
// and exclusive of Right/Bottom, always within the frame.
type CropRect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the rectangle width in pixels.
func (r CropRect) Width() int { return r.Right - r.Left }

// Height returns the rectangle height in pixels.
func (r CropRect) Height() int { return r.Bottom - r.Top }

// Equal reports whether both rectangles hold identical values. The update
// protocol uses this field-by-field comparison to decide version bumps.
func (r CropRect) Equal(o CropRect) bool {
	return r.Left == o.Left && r.Top == o.Top && r.Right == o.Right && r.Bottom == o.Bottom
}

// AnchorType describes the horizontal alignment of caption text.
type AnchorType string

const (
	AnchorLeft   AnchorType = "left"
	AnchorCenter AnchorType = "center"
	AnchorRight  AnchorType = "right"
)

// Valid reports whether t is one of the known anchor types.
func (t AnchorType) Valid() bool {
	return t == AnchorLeft || t == AnchorCenter || t == AnchorRight
}

// LayoutParams are the derived layout parameters persisted alongside crop
// bounds. Vertical values are pixel rows; spreads are population deviations.
type LayoutParams struct {
	VerticalPosition float64    `json:"vertical_position"`
	VerticalStd      float64    `json:"vertical_std"`
	BoxHeight        float64    `json:"box_height"`
	BoxHeightStd     float64    `json:"box_height_std"`
	AnchorType       AnchorType `json:"anchor_type"`
	AnchorPosition   int        `json:"anchor_position"`
	TopEdgeStd       float64    `json:"top_edge_std"`
	BottomEdgeStd    float64    `json:"bottom_edge_std"`
}

// AnalysisResult is the engine's output: crop bounds, layout parameters and
// summary statistics. It is never persisted directly; the update protocol in
// internal/db decides what to store and when versions move.
type AnalysisResult struct {
	Bounds           CropRect     `json:"bounds"`
	Params           LayoutParams `json:"params"`
	TotalBoxes       int          `json:"total_boxes"`
	CaptionBoxes     int          `json:"caption_boxes"`
	DegenerateBounds bool         `json:"degenerate_bounds"`

	// Profiles are kept for diagnostics (charts, plots); they are not
	// serialized with the result.
	Horizontal *ProfileAnalysis `json:"-"`
	Vertical   *ProfileAnalysis `json:"-"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
