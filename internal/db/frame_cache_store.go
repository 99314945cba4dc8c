package db

import (
	"database/sql"
	"fmt"
	"time"
)

// FrameCacheEntry indexes one externally cropped frame image on disk,
// recorded against the crop bounds version it was cut with. Entries for a
// stale version are deleted wholesale when the bounds change.
type FrameCacheEntry struct {
	VideoID     string `json:"video_id"`
	FrameIndex  int    `json:"frame_index"`
	CropVersion int    `json:"crop_version"`
	ImagePath   string `json:"image_path"`
	CachedAt    string `json:"cached_at"`
}

// UpsertFrameCache registers a cached frame, replacing any entry for the
// same frame.
func (db *DB) UpsertFrameCache(entry *FrameCacheEntry) error {
	entry.CachedAt = time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO frame_cache (video_id, frame_index, crop_version, image_path, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(video_id, frame_index) DO UPDATE SET
			crop_version = excluded.crop_version,
			image_path = excluded.image_path,
			cached_at = excluded.cached_at
	`

	err := retryOnBusy(func() error {
		_, err := db.DB.Exec(query, entry.VideoID, entry.FrameIndex, entry.CropVersion, entry.ImagePath, entry.CachedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert frame cache entry: %w", err)
	}
	return nil
}

// ListFrameCache retrieves the cached frames for a video in frame order.
func (db *DB) ListFrameCache(videoID string) ([]FrameCacheEntry, error) {
	rows, err := db.DB.Query(`
		SELECT video_id, frame_index, crop_version, image_path, cached_at
		FROM frame_cache
		WHERE video_id = ?
		ORDER BY frame_index ASC
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frame cache: %w", err)
	}
	defer rows.Close()

	var entries []FrameCacheEntry
	for rows.Next() {
		var e FrameCacheEntry
		if err := rows.Scan(&e.VideoID, &e.FrameIndex, &e.CropVersion, &e.ImagePath, &e.CachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan frame cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frame cache: %w", err)
	}

	return entries, nil
}

// CountFrameCache returns the number of cached frames for a video.
func (db *DB) CountFrameCache(videoID string) (int, error) {
	var count int
	err := db.DB.QueryRow(`SELECT COUNT(*) FROM frame_cache WHERE video_id = ?`, videoID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count frame cache: %w", err)
	}
	return count, nil
}

// InvalidateFrameCache deletes every cached frame for a video and returns
// the number of entries removed. The update orchestrator does this inside
// its transaction via invalidateFrameCacheTx; this standalone form serves
// manual cleanup.
func (db *DB) InvalidateFrameCache(videoID string) (int64, error) {
	result, err := db.DB.Exec(`DELETE FROM frame_cache WHERE video_id = ?`, videoID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate frame cache: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

func invalidateFrameCacheTx(tx *sql.Tx, videoID string) (int64, error) {
	result, err := tx.Exec(`DELETE FROM frame_cache WHERE video_id = ?`, videoID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate frame cache: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}
