package layout

import "math"

// BoxStatistics holds the per-axis samples collected from every usable box
// of a video, plus the raw pixel extremes used for padding fallbacks.
type BoxStatistics struct {
	Boxes []PixelBox

	TopEdges    []float64
	BottomEdges []float64
	LeftEdges   []float64
	RightEdges  []float64
	CenterX     []float64
	CenterY     []float64
	Widths      []float64
	Heights     []float64

	MinTop    int
	MaxBottom int
	MinLeft   int
	MaxRight  int
}

// CollectStats converts boxes to pixel space and gathers the sample arrays
// the estimators run on. Boxes narrower or shorter than minDimension pixels
// are discarded; if nothing survives it returns ErrNoBoxesFound.
func CollectStats(boxes []OCRBox, frameWidth, frameHeight, minDimension int) (*BoxStatistics, error) {
	s := &BoxStatistics{
		MinTop:    math.MaxInt,
		MaxBottom: math.MinInt,
		MinLeft:   math.MaxInt,
		MaxRight:  math.MinInt,
	}
	for _, b := range boxes {
		px := b.ToPixels(frameWidth, frameHeight)
		if px.Width < minDimension || px.Height < minDimension {
			continue
		}
		s.Boxes = append(s.Boxes, px)
		s.TopEdges = append(s.TopEdges, float64(px.Top))
		s.BottomEdges = append(s.BottomEdges, float64(px.Bottom))
		s.LeftEdges = append(s.LeftEdges, float64(px.Left))
		s.RightEdges = append(s.RightEdges, float64(px.Right))
		s.CenterX = append(s.CenterX, px.CenterX)
		s.CenterY = append(s.CenterY, px.CenterY)
		s.Widths = append(s.Widths, float64(px.Width))
		s.Heights = append(s.Heights, float64(px.Height))
		if px.Top < s.MinTop {
			s.MinTop = px.Top
		}
		if px.Bottom > s.MaxBottom {
			s.MaxBottom = px.Bottom
		}
		if px.Left < s.MinLeft {
			s.MinLeft = px.Left
		}
		if px.Right > s.MaxRight {
			s.MaxRight = px.Right
		}
	}
	if len(s.Boxes) == 0 {
		return nil, ErrNoBoxesFound
	}
	return s, nil
}
