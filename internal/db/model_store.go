package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrModelNotFound is returned when a video has no trained classifier model.
var ErrModelNotFound = errors.New("classifier model not found")

// ClassifierModel holds the serialized per-video caption classifier. The
// model is trained by the prediction service; this store only records and
// retires it. A layout parameter update deletes the row because the features
// the model was trained on no longer describe the layout.
type ClassifierModel struct {
	VideoID      string `json:"video_id"`
	ModelVersion int    `json:"model_version"`
	Weights      []byte `json:"-"`
	TrainedAt    string `json:"trained_at"`
}

// SaveClassifierModel stores the trained model for a video, bumping the
// model version when one already exists.
func (db *DB) SaveClassifierModel(videoID string, weights []byte) (*ClassifierModel, error) {
	trainedAt := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO classifier_models (video_id, model_version, weights, trained_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			weights = excluded.weights,
			model_version = classifier_models.model_version + 1,
			trained_at = excluded.trained_at
	`

	err := retryOnBusy(func() error {
		_, err := db.DB.Exec(query, videoID, weights, trainedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save classifier model: %w", err)
	}

	return db.GetClassifierModel(videoID)
}

// GetClassifierModel retrieves the stored model for a video.
func (db *DB) GetClassifierModel(videoID string) (*ClassifierModel, error) {
	var m ClassifierModel
	err := db.DB.QueryRow(`
		SELECT video_id, model_version, weights, trained_at
		FROM classifier_models
		WHERE video_id = ?
	`, videoID).Scan(&m.VideoID, &m.ModelVersion, &m.Weights, &m.TrainedAt)

	if err == sql.ErrNoRows {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classifier model: %w", err)
	}
	return &m, nil
}

// DeleteClassifierModel removes the stored model for a video. Deleting a
// model that does not exist is not an error.
func (db *DB) DeleteClassifierModel(videoID string) error {
	if _, err := db.DB.Exec(`DELETE FROM classifier_models WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("failed to delete classifier model: %w", err)
	}
	return nil
}

func deleteClassifierModelTx(tx *sql.Tx, videoID string) error {
	if _, err := tx.Exec(`DELETE FROM classifier_models WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("failed to delete classifier model: %w", err)
	}
	return nil
}
