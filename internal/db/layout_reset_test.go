package db

import (
	"context"
	"errors"
	"testing"

	"github.com/banshee-data/caption.review/internal/layout"
)

func newTestResetRunner(t *testing.T, db *DB) (*ResetRunner, *mockNotifier) {
	t.Helper()
	updater, notifier, _ := newTestUpdater(t, db)
	return NewResetRunner(updater, layout.NewEngine(layout.DefaultParams())), notifier
}

func noiseBox() layout.OCRBox {
	// Large box near the top of the frame. If it leaked into a
	// caption-only analysis it would drag the vertical estimate and the
	// box counts off.
	return layout.OCRBox{X: 0.05, Y: 0.85, Width: 0.15, Height: 0.05, Text: "STREAM TITLE", Confidence: 0.8}
}

func TestResetCropBounds(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	createTestConfig(t, db, "video-1")
	runner, _ := newTestResetRunner(t, db)

	for i, b := range captionRowBoxes(12) {
		insertLabeledBox(t, db, "video-1", i, b, true, "")
	}
	for i := 0; i < 5; i++ {
		insertLabeledBox(t, db, "video-1", i, noiseBox(), false, "")
	}

	outcome, err := runner.ResetCropBounds(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("ResetCropBounds failed: %v", err)
	}

	if outcome.ColdStart {
		t.Error("predicted boxes present, reset must not be a cold start")
	}
	// Only the caption-selected boxes feed the analysis
	if outcome.Analysis.TotalBoxes != 12 {
		t.Errorf("expected 12 analyzed boxes, got %d", outcome.Analysis.TotalBoxes)
	}
	if !outcome.Result.BoundsChanged {
		t.Error("expected first reset to set bounds")
	}
	if outcome.Result.CropBoundsVersion != 1 {
		t.Errorf("expected version 1, got %d", outcome.Result.CropBoundsVersion)
	}
	if outcome.Analysis.Params.AnchorType != layout.AnchorCenter {
		t.Errorf("expected centered caption row, got %s", outcome.Analysis.Params.AnchorType)
	}

	cfg, err := db.GetLayoutConfig("video-1")
	if err != nil {
		t.Fatalf("GetLayoutConfig failed: %v", err)
	}
	if cfg.CropBounds == nil || !cfg.CropBounds.Equal(outcome.Analysis.Bounds) {
		t.Errorf("expected stored bounds %+v, got %+v", outcome.Analysis.Bounds, cfg.CropBounds)
	}
	if cfg.Params == nil || *cfg.Params != outcome.Analysis.Params {
		t.Errorf("expected stored params %+v, got %+v", outcome.Analysis.Params, cfg.Params)
	}
}

func TestResetCropBoundsIdempotent(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	createTestConfig(t, db, "video-1")
	runner, _ := newTestResetRunner(t, db)

	for i, b := range captionRowBoxes(8) {
		insertLabeledBox(t, db, "video-1", i, b, true, "")
	}

	first, err := runner.ResetCropBounds(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("first reset failed: %v", err)
	}
	second, err := runner.ResetCropBounds(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("second reset failed: %v", err)
	}

	if !first.Result.BoundsChanged {
		t.Error("expected first reset to change bounds")
	}
	if second.Result.BoundsChanged {
		t.Error("unchanged boxes must make the second reset a no-op")
	}
	if second.Result.CropBoundsVersion != 1 {
		t.Errorf("expected version to stay at 1, got %d", second.Result.CropBoundsVersion)
	}
}

func TestResetCropBoundsColdStart(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	createTestConfig(t, db, "video-1")
	runner, _ := newTestResetRunner(t, db)

	// Nothing labeled or predicted yet: the analysis falls back to every box
	for i, b := range captionRowBoxes(4) {
		insertLabeledBox(t, db, "video-1", i, b, false, "")
	}

	outcome, err := runner.ResetCropBounds(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("ResetCropBounds failed: %v", err)
	}
	if !outcome.ColdStart {
		t.Error("expected cold start with no caption boxes")
	}
	if outcome.Analysis.TotalBoxes != 4 {
		t.Errorf("expected 4 analyzed boxes, got %d", outcome.Analysis.TotalBoxes)
	}
	if !outcome.Result.BoundsChanged {
		t.Error("expected cold start reset to set bounds")
	}
}

func TestResetKeepsModelAndStaysSilent(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	createTestConfig(t, db, "video-1")
	runner, notifier := newTestResetRunner(t, db)

	for i, b := range captionRowBoxes(6) {
		insertLabeledBox(t, db, "video-1", i, b, true, "")
	}
	if _, err := db.SaveClassifierModel("video-1", []byte("weights")); err != nil {
		t.Fatalf("SaveClassifierModel failed: %v", err)
	}

	if _, err := runner.ResetCropBounds(context.Background(), "video-1"); err != nil {
		t.Fatalf("ResetCropBounds failed: %v", err)
	}

	// The analysis ran on the model's own input boxes, so the model survives
	// and no recalculation is requested.
	if _, err := db.GetClassifierModel("video-1"); err != nil {
		t.Errorf("expected classifier model to survive reset, got %v", err)
	}
	if len(notifier.notified) != 0 {
		t.Errorf("reset must not notify the prediction service, got %v", notifier.notified)
	}
}

func TestResetInvalidatesStaleFrames(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	createTestConfig(t, db, "video-1")
	runner, _ := newTestResetRunner(t, db)

	for i, b := range captionRowBoxes(6) {
		insertLabeledBox(t, db, "video-1", i, b, true, "")
	}
	for i := 0; i < 2; i++ {
		if err := db.UpsertFrameCache(&FrameCacheEntry{VideoID: "video-1", FrameIndex: i, CropVersion: 0, ImagePath: "/cache/f.png"}); err != nil {
			t.Fatalf("UpsertFrameCache failed: %v", err)
		}
	}

	outcome, err := runner.ResetCropBounds(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("ResetCropBounds failed: %v", err)
	}
	if outcome.Result.InvalidatedFrames != 2 {
		t.Errorf("expected 2 invalidated frames, got %d", outcome.Result.InvalidatedFrames)
	}
	count, _ := db.CountFrameCache("video-1")
	if count != 0 {
		t.Errorf("expected cache empty after reset, got %d", count)
	}
}

func TestResetCropBoundsNoBoxes(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	createTestConfig(t, db, "video-1")
	runner, _ := newTestResetRunner(t, db)

	if _, err := runner.ResetCropBounds(context.Background(), "video-1"); !errors.Is(err, layout.ErrNoBoxesFound) {
		t.Errorf("expected ErrNoBoxesFound, got %v", err)
	}
}

func TestResetCropBoundsMissingConfig(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	runner, _ := newTestResetRunner(t, db)

	if _, err := runner.ResetCropBounds(context.Background(), "missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}
