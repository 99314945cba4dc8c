package db

import (
	"context"

	"github.com/banshee-data/caption.review/internal/layout"
	"github.com/banshee-data/caption.review/internal/monitoring"
	"github.com/banshee-data/caption.review/internal/timeutil"
)

// ResetRunner recomputes a video's crop bounds and layout parameters from
// its stored boxes and persists them through the transactional update path.
type ResetRunner struct {
	Updater *LayoutUpdater
	Engine  *layout.Engine
}

// NewResetRunner creates a reset runner sharing the updater's database and
// clock.
func NewResetRunner(updater *LayoutUpdater, engine *layout.Engine) *ResetRunner {
	return &ResetRunner{Updater: updater, Engine: engine}
}

// ResetOutcome reports a completed reset: what the analysis found and what
// the persistence step changed.
type ResetOutcome struct {
	Result    *UpdateResult          `json:"result"`
	Analysis  *layout.AnalysisResult `json:"analysis"`
	ColdStart bool                   `json:"cold_start"`
}

// ResetCropBounds reanalyzes a video from its caption boxes, falling back to
// all stored boxes when nothing is labeled or predicted yet (cold start).
//
// The recomputed rectangle and parameters persist exactly like an
// interactive update: the version bumps and cached frames are invalidated
// only when the rectangle actually changed, so repeating a reset on
// unchanged boxes is a no-op. Unlike an interactive parameter update, reset
// keeps the classifier model and does not trigger prediction recalculation;
// the boxes the analysis ran on are the model's own input, so its features
// are still current.
func (r *ResetRunner) ResetCropBounds(ctx context.Context, videoID string) (*ResetOutcome, error) {
	cfg, err := r.Updater.DB.GetLayoutConfig(videoID)
	if err != nil {
		return nil, err
	}

	boxes, err := r.Updater.DB.CaptionBoxesForVideo(videoID)
	if err != nil {
		return nil, err
	}
	coldStart := false
	if len(boxes) == 0 {
		coldStart = true
		boxes, err = r.Updater.DB.AllBoxesForVideo(videoID)
		if err != nil {
			return nil, err
		}
	}

	clock := r.Updater.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	start := clock.Now()
	analysis, err := r.Engine.Analyze(boxes, cfg.FrameWidth, cfg.FrameHeight)
	monitoring.AnalysisDuration.Observe(clock.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if analysis.DegenerateBounds {
		monitoring.Logf("warning: degenerate crop bounds for video %s, fallback padding applied", videoID)
	}

	update := LayoutUpdate{Bounds: &analysis.Bounds, Params: &analysis.Params}
	result, err := r.Updater.apply(ctx, videoID, update, updateOpts{deleteModel: false, notify: false})
	if err != nil {
		return nil, err
	}
	monitoring.LayoutResets.Inc()

	return &ResetOutcome{Result: result, Analysis: analysis, ColdStart: coldStart}, nil
}
