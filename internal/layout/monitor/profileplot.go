package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/banshee-data/caption.review/internal/layout"
	"github.com/banshee-data/caption.review/internal/security"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Line colors for the profile plots.
var (
	densityColor    = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	derivativeColor = color.RGBA{R: 253, G: 231, B: 37, A: 255}
)

// ProfilePlotter writes density/derivative profile plots as PNG files so an
// analysis run can be inspected after the fact. One plotter may be shared by
// the analyze command and the debug surface.
type ProfilePlotter struct {
	mu        sync.Mutex
	outputDir string
}

// NewProfilePlotter creates a plotter writing into outputDir. The directory
// is created on the first save.
func NewProfilePlotter(outputDir string) *ProfilePlotter {
	return &ProfilePlotter{outputDir: outputDir}
}

// OutputDir returns the directory plots are written to.
func (pp *ProfilePlotter) OutputDir() string {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.outputDir
}

// SavePlots writes one PNG per axis for the analysis result and returns the
// file paths. Results without profiles (none yet persisted through an
// in-memory run) produce no files.
func (pp *ProfilePlotter) SavePlots(videoID string, analysis *layout.AnalysisResult) ([]string, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.outputDir == "" {
		return nil, fmt.Errorf("no output directory configured")
	}
	if err := os.MkdirAll(pp.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	// The video ID lands in the filename, so strip anything path-like
	stem := security.SanitizeFilename(videoID)

	var files []string
	axes := []struct {
		name    string
		profile *layout.ProfileAnalysis
	}{
		{"horizontal", analysis.Horizontal},
		{"vertical", analysis.Vertical},
	}
	for _, ax := range axes {
		if ax.profile == nil || len(ax.profile.Density) == 0 {
			continue
		}
		file := filepath.Join(pp.outputDir, fmt.Sprintf("%s_%s_profile.png", stem, ax.name))
		if err := saveProfilePlot(file, videoID, ax.name, ax.profile); err != nil {
			return files, fmt.Errorf("%s profile: %w", ax.name, err)
		}
		files = append(files, file)
	}
	return files, nil
}

func saveProfilePlot(file, videoID, axis string, profile *layout.ProfileAnalysis) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s occupancy profile", videoID, axis)
	p.X.Label.Text = "Position (px)"
	p.Y.Label.Text = "Boxes"

	densityPts := make(plotter.XYs, len(profile.Density))
	for i, d := range profile.Density {
		densityPts[i] = plotter.XY{X: float64(i), Y: d}
	}
	densityLine, err := plotter.NewLine(densityPts)
	if err != nil {
		return err
	}
	densityLine.Color = densityColor
	densityLine.Width = vg.Points(1)
	p.Add(densityLine)
	p.Legend.Add("density", densityLine)

	if len(profile.Derivative) > 0 {
		derivPts := make(plotter.XYs, len(profile.Derivative))
		for i, d := range profile.Derivative {
			derivPts[i] = plotter.XY{X: float64(i), Y: d}
		}
		derivLine, err := plotter.NewLine(derivPts)
		if err != nil {
			return err
		}
		derivLine.Color = derivativeColor
		derivLine.Width = vg.Points(1)
		p.Add(derivLine)
		p.Legend.Add("derivative", derivLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}
