package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/caption.review/internal/layout"
	"github.com/banshee-data/caption.review/internal/monitoring"
)

// ErrBoxNotFound is returned when labeling a box id that does not exist.
var ErrBoxNotFound = errors.New("ocr box not found")

// User label values for OCR boxes. An unlabeled box carries NULL.
const (
	UserLabelCaption    = "caption"
	UserLabelNotCaption = "not_caption"
)

// OCRBoxRecord is a stored OCR detection with its classification state.
type OCRBoxRecord struct {
	ID               int64   `json:"id"`
	VideoID          string  `json:"video_id"`
	FrameIndex       int     `json:"frame_index"`
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	Text             string  `json:"text"`
	Confidence       float64 `json:"confidence"`
	PredictedCaption bool    `json:"predicted_caption"`
	UserLabel        *string `json:"user_label,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// DisplayColor returns the review UI color for this box, with the user label
// taking precedence over the prediction.
func (r *OCRBoxRecord) DisplayColor() string {
	label := ""
	if r.UserLabel != nil {
		label = *r.UserLabel
	}
	return layout.DisplayColor(r.PredictedCaption, label)
}

// InsertOCRBoxes stores a batch of OCR detections for a video in one
// transaction. Each box carries its own frame index; predictions and labels
// start empty.
func (db *DB) InsertOCRBoxes(videoID string, boxes []layout.OCRBox) error {
	if len(boxes) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)

	return retryOnBusy(func() error {
		tx, err := db.DB.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
				monitoring.Logf("warning: failed to rollback transaction: %v", err)
			}
		}()

		stmt, err := tx.Prepare(`
			INSERT INTO ocr_boxes (video_id, frame_index, x, y, width, height, text, confidence, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare box insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range boxes {
			if _, err := stmt.Exec(videoID, b.FrameIndex, b.X, b.Y, b.Width, b.Height, b.Text, b.Confidence, now); err != nil {
				return fmt.Errorf("failed to insert box: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit boxes: %w", err)
		}
		return nil
	})
}

// BoxesForVideo retrieves all stored boxes for a video in frame order.
func (db *DB) BoxesForVideo(videoID string) ([]OCRBoxRecord, error) {
	return db.queryBoxRecords(`
		SELECT id, video_id, frame_index, x, y, width, height, text, confidence, predicted_caption, user_label, created_at
		FROM ocr_boxes
		WHERE video_id = ?
		ORDER BY frame_index ASC, id ASC
	`, videoID)
}

// BoxesForFrame retrieves the stored boxes for one frame of a video.
func (db *DB) BoxesForFrame(videoID string, frameIndex int) ([]OCRBoxRecord, error) {
	return db.queryBoxRecords(`
		SELECT id, video_id, frame_index, x, y, width, height, text, confidence, predicted_caption, user_label, created_at
		FROM ocr_boxes
		WHERE video_id = ? AND frame_index = ?
		ORDER BY id ASC
	`, videoID, frameIndex)
}

func (db *DB) queryBoxRecords(query string, args ...interface{}) ([]OCRBoxRecord, error) {
	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query boxes: %w", err)
	}
	defer rows.Close()

	var records []OCRBoxRecord
	for rows.Next() {
		var (
			rec          OCRBoxRecord
			predictedInt int
		)
		err := rows.Scan(
			&rec.ID, &rec.VideoID, &rec.FrameIndex,
			&rec.X, &rec.Y, &rec.Width, &rec.Height,
			&rec.Text, &rec.Confidence, &predictedInt, &rec.UserLabel, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		rec.PredictedCaption = predictedInt == 1
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boxes: %w", err)
	}

	return records, nil
}

// captionBoxesQuery selects the boxes believed to be captions: boxes the
// user labeled as captions, plus predicted captions the user has not
// overruled. The update orchestrator runs the same query inside its
// transaction when regenerating the visualization.
const captionBoxesQuery = `
	SELECT frame_index, x, y, width, height, text, confidence
	FROM ocr_boxes
	WHERE video_id = ?
	  AND (user_label = 'caption'
	       OR (predicted_caption = 1 AND (user_label IS NULL OR user_label != 'not_caption')))
	ORDER BY frame_index ASC, id ASC
`

// CaptionBoxesForVideo retrieves the caption boxes for a video as analysis
// input.
func (db *DB) CaptionBoxesForVideo(videoID string) ([]layout.OCRBox, error) {
	return queryAnalysisBoxes(db.DB, captionBoxesQuery, videoID)
}

// AllBoxesForVideo retrieves every box as analysis input, used as the cold
// start fallback before any labels or predictions exist.
func (db *DB) AllBoxesForVideo(videoID string) ([]layout.OCRBox, error) {
	return queryAnalysisBoxes(db.DB, `
		SELECT frame_index, x, y, width, height, text, confidence
		FROM ocr_boxes
		WHERE video_id = ?
		ORDER BY frame_index ASC, id ASC
	`, videoID)
}

// querier abstracts *sql.DB and *sql.Tx for shared read helpers.
type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func queryAnalysisBoxes(q querier, query string, args ...interface{}) ([]layout.OCRBox, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis boxes: %w", err)
	}
	defer rows.Close()

	var boxes []layout.OCRBox
	for rows.Next() {
		var b layout.OCRBox
		if err := rows.Scan(&b.FrameIndex, &b.X, &b.Y, &b.Width, &b.Height, &b.Text, &b.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan analysis box: %w", err)
		}
		boxes = append(boxes, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis boxes: %w", err)
	}

	return boxes, nil
}

// LabelOCRBox records the user's verdict on a box. An empty label clears the
// verdict back to unlabeled.
func (db *DB) LabelOCRBox(id int64, label string) error {
	var labelValue interface{}
	switch label {
	case "":
		labelValue = nil
	case UserLabelCaption, UserLabelNotCaption:
		labelValue = label
	default:
		return fmt.Errorf("invalid user label %q", label)
	}

	result, err := db.DB.Exec(`UPDATE ocr_boxes SET user_label = ? WHERE id = ?`, labelValue, id)
	if err != nil {
		return fmt.Errorf("failed to label box: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrBoxNotFound
	}
	return nil
}

// SetPredictedCaptions applies a batch of classifier predictions keyed by box
// id. Ids that do not belong to the video are skipped.
func (db *DB) SetPredictedCaptions(videoID string, predictions map[int64]bool) error {
	if len(predictions) == 0 {
		return nil
	}

	return retryOnBusy(func() error {
		tx, err := db.DB.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
				monitoring.Logf("warning: failed to rollback transaction: %v", err)
			}
		}()

		stmt, err := tx.Prepare(`UPDATE ocr_boxes SET predicted_caption = ? WHERE id = ? AND video_id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare prediction update: %w", err)
		}
		defer stmt.Close()

		for id, predicted := range predictions {
			predictedInt := 0
			if predicted {
				predictedInt = 1
			}
			if _, err := stmt.Exec(predictedInt, id, videoID); err != nil {
				return fmt.Errorf("failed to update prediction for box %d: %w", id, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit predictions: %w", err)
		}
		return nil
	})
}

// CountOCRBoxes returns the number of stored boxes for a video.
func (db *DB) CountOCRBoxes(videoID string) (int, error) {
	var count int
	err := db.DB.QueryRow(`SELECT COUNT(*) FROM ocr_boxes WHERE video_id = ?`, videoID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count boxes: %w", err)
	}
	return count, nil
}
