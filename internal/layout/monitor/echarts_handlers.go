// Package monitor provides diagnostic visualizations for layout analysis:
// HTML debug charts rendered with go-echarts and profile plots written as
// PNG files. Nothing here is part of the review UI; the charts exist to
// inspect what the analysis saw without attaching a frontend.
package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/caption.review/internal/db"
	"github.com/banshee-data/caption.review/internal/layout"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

var viridisColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// ChartServer renders debug charts for a video's stored boxes and profiles.
type ChartServer struct {
	DB     *db.DB
	Engine *layout.Engine
}

// NewChartServer creates a chart server. The engine decides which tuning the
// profile charts are computed with.
func NewChartServer(database *db.DB, engine *layout.Engine) *ChartServer {
	return &ChartServer{DB: database, Engine: engine}
}

// AttachChartRoutes mounts the chart handlers on mux.
func (cs *ChartServer) AttachChartRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/charts/boxes", cs.handleBoxScatter)
	mux.HandleFunc("/debug/charts/profile", cs.handleProfileChart)
}

func (cs *ChartServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleBoxScatter renders every stored box of a video as a scatter point at
// its pixel center, colored by OCR confidence. This is a debugging-only
// endpoint to eyeball where text lands without the review UI.
// Query params:
//   - video_id (required)
//   - max_points (optional; default 8000) to reduce payload size
func (cs *ChartServer) handleBoxScatter(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		cs.writeJSONError(w, http.StatusBadRequest, "missing 'video_id' parameter")
		return
	}

	cfg, err := cs.DB.GetLayoutConfig(videoID)
	if err != nil {
		cs.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no layout config: %v", err))
		return
	}
	records, err := cs.DB.BoxesForVideo(videoID)
	if err != nil {
		cs.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load boxes: %v", err))
		return
	}
	if len(records) == 0 {
		cs.writeJSONError(w, http.StatusNotFound, "no boxes stored for video")
		return
	}

	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}
	stride := 1
	if len(records) > maxPoints {
		stride = (len(records) + maxPoints - 1) / maxPoints
	}

	// Y stays bottom-origin so captions plot low, matching the frame.
	data := make([]opts.ScatterData, 0, len(records)/stride+1)
	for i := 0; i < len(records); i += stride {
		rec := records[i]
		x := (rec.X + rec.Width/2) * float64(cfg.FrameWidth)
		y := (rec.Y + rec.Height/2) * float64(cfg.FrameHeight)
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, rec.Confidence}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Layout Boxes", Theme: "dark", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "OCR Box Centers", Subtitle: fmt.Sprintf("video=%s boxes=%d stride=%d", videoID, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: cfg.FrameWidth, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: cfg.FrameHeight, Name: "Y from bottom (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("boxes", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		cs.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleProfileChart renders the occupancy density and its derivative along
// one axis for a video's caption boxes (all boxes when nothing is selected
// yet, mirroring what a reset would analyze).
// Query params:
//   - video_id (required)
//   - axis (optional; "horizontal" default, or "vertical")
func (cs *ChartServer) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		cs.writeJSONError(w, http.StatusBadRequest, "missing 'video_id' parameter")
		return
	}
	axis := r.URL.Query().Get("axis")
	if axis == "" {
		axis = "horizontal"
	}
	if axis != "horizontal" && axis != "vertical" {
		cs.writeJSONError(w, http.StatusBadRequest, "axis must be 'horizontal' or 'vertical'")
		return
	}

	cfg, err := cs.DB.GetLayoutConfig(videoID)
	if err != nil {
		cs.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no layout config: %v", err))
		return
	}
	boxes, err := cs.DB.CaptionBoxesForVideo(videoID)
	if err != nil {
		cs.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load boxes: %v", err))
		return
	}
	if len(boxes) == 0 {
		boxes, err = cs.DB.AllBoxesForVideo(videoID)
		if err != nil {
			cs.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load boxes: %v", err))
			return
		}
	}
	if len(boxes) == 0 {
		cs.writeJSONError(w, http.StatusNotFound, "no boxes stored for video")
		return
	}

	analysis, err := cs.Engine.Analyze(boxes, cfg.FrameWidth, cfg.FrameHeight)
	if err != nil {
		cs.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	profile := analysis.Horizontal
	if axis == "vertical" {
		profile = analysis.Vertical
	}

	// Downsample long axes so the page stays light
	stride := 1
	if len(profile.Density) > 1200 {
		stride = (len(profile.Density) + 1199) / 1200
	}
	xs := make([]string, 0, len(profile.Density)/stride+1)
	density := make([]opts.LineData, 0, cap(xs))
	derivative := make([]opts.LineData, 0, cap(xs))
	for i := 0; i < len(profile.Density); i += stride {
		xs = append(xs, strconv.Itoa(i))
		density = append(density, opts.LineData{Value: profile.Density[i]})
		if i < len(profile.Derivative) {
			derivative = append(derivative, opts.LineData{Value: profile.Derivative[i]})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Layout Profile", Theme: "dark", Width: "1200px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s occupancy profile", axis),
			Subtitle: fmt.Sprintf("video=%s boxes=%d rise@%d fall@%d",
				videoID, analysis.TotalBoxes, profile.PositiveEdgePos, profile.NegativeEdgePos),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Position (px)", NameLocation: "middle", NameGap: 25}),
	)
	line.SetXAxis(xs).
		AddSeries("density", density).
		AddSeries("derivative", derivative)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		cs.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
