package layout

import (
	"fmt"
	"math"
)

// Engine runs the full analysis pipeline with a fixed set of tuning
// parameters. It carries no state between calls and is safe for concurrent
// use.
type Engine struct {
	params Params
}

// NewEngine returns an engine with the given tuning. Pass DefaultParams()
// unless a tuning file says otherwise.
func NewEngine(p Params) *Engine {
	return &Engine{params: p}
}

// Params returns the engine's tuning.
func (e *Engine) Params() Params {
	return e.params
}

// Analyze runs the pipeline over every box of a video: collect pixel
// statistics, filter horizontal outliers, estimate the vertical band and box
// size, build occupancy profiles, classify the anchor and derive padded crop
// bounds. It returns ErrNoBoxesFound when no box survives the minimum size
// cut.
func (e *Engine) Analyze(boxes []OCRBox, frameWidth, frameHeight int) (*AnalysisResult, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", frameWidth, frameHeight)
	}
	p := e.params

	stats, err := CollectStats(boxes, frameWidth, frameHeight, p.MinBoxDimension)
	if err != nil {
		return nil, err
	}

	centerX := FilterOutliers(stats.CenterX, p)

	vPos := Mode(stats.CenterY, p.VerticalBinSize)
	vStd := StdAround(stats.CenterY, vPos)
	boxHeight := Mode(stats.Heights, p.SizeBinSize)
	boxHeightStd := StdAround(stats.Heights, boxHeight)
	boxWidth := Mode(stats.Widths, p.SizeBinSize)
	topStd := spreadAroundMode(stats.TopEdges, p.VerticalBinSize, p.EdgeSpreadWindow)
	bottomStd := spreadAroundMode(stats.BottomEdges, p.VerticalBinSize, p.EdgeSpreadWindow)

	// The horizontal profile only sees boxes inside the caption band so
	// that screen furniture above it cannot fake a column edge. The
	// vertical profile uses every box.
	band := p.BandStdMultiplier * vStd
	captionBoxes := make([]PixelBox, 0, len(stats.Boxes))
	for _, b := range stats.Boxes {
		if math.Abs(b.CenterY-vPos) <= band {
			captionBoxes = append(captionBoxes, b)
		}
	}

	horizontal := analyzeProfile(frameWidth, captionBoxes, func(b PixelBox) (int, int) {
		return b.Left, b.Right
	})
	vertical := analyzeProfile(frameHeight, stats.Boxes, func(b PixelBox) (int, int) {
		return b.Top, b.Bottom
	})

	anchor := classifyAnchor(horizontal, centerX, frameWidth, boxWidth, p)
	bounds, degenerate := calculateCropBounds(vertical, anchor, stats, boxHeight, boxWidth, frameWidth, frameHeight, p)

	return &AnalysisResult{
		Bounds: bounds,
		Params: LayoutParams{
			VerticalPosition: vPos,
			VerticalStd:      vStd,
			BoxHeight:        boxHeight,
			BoxHeightStd:     boxHeightStd,
			AnchorType:       anchor.Type,
			AnchorPosition:   anchor.Position,
			TopEdgeStd:       topStd,
			BottomEdgeStd:    bottomStd,
		},
		TotalBoxes:       len(stats.Boxes),
		CaptionBoxes:     len(captionBoxes),
		DegenerateBounds: degenerate,
		Horizontal:       horizontal,
		Vertical:         vertical,
	}, nil
}
