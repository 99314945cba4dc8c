package db

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/caption.review/internal/layout"
)

// newTestDB creates a migrated database in a per-test temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "layout_test.db")

	db, err := NewDB(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return db
}

// setupEmptyTestDB opens a database without applying any migrations, for
// tests that drive the migration machinery themselves.
func setupEmptyTestDB(t *testing.T) *DB {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "empty_test.db")

	db, err := OpenDB(fname)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}

// createTestConfig provisions a layout config for a 1920x1080 video.
func createTestConfig(t *testing.T, db *DB, videoID string) *LayoutConfig {
	t.Helper()
	cfg, err := db.CreateLayoutConfig(videoID, 1920, 1080)
	if err != nil {
		t.Fatalf("CreateLayoutConfig failed: %v", err)
	}
	return cfg
}

// insertLabeledBox inserts one box with explicit prediction and label state,
// bypassing the ingest path which always starts boxes unlabeled.
func insertLabeledBox(t *testing.T, db *DB, videoID string, frameIndex int, box layout.OCRBox, predicted bool, userLabel string) int64 {
	t.Helper()

	predictedInt := 0
	if predicted {
		predictedInt = 1
	}
	var labelValue interface{}
	if userLabel != "" {
		labelValue = userLabel
	}

	result, err := db.DB.Exec(`
		INSERT INTO ocr_boxes (video_id, frame_index, x, y, width, height, text, confidence, predicted_caption, user_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '2025-01-01T00:00:00Z')
	`, videoID, frameIndex, box.X, box.Y, box.Width, box.Height, box.Text, box.Confidence, predictedInt, labelValue)
	if err != nil {
		t.Fatalf("failed to insert labeled box: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get inserted box id: %v", err)
	}
	return id
}

// captionRowBoxes returns n copies of a caption-shaped box, one per frame:
// centered in the lower quarter of a 1920x1080 frame.
func captionRowBoxes(n int) []layout.OCRBox {
	boxes := make([]layout.OCRBox, n)
	for i := range boxes {
		boxes[i] = layout.OCRBox{
			FrameIndex: i,
			X:          0.4,
			Y:          0.1,
			Width:      0.2,
			Height:     0.05,
			Text:       "caption text",
			Confidence: 0.9,
		}
	}
	return boxes
}
