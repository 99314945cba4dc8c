package db

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/caption.review/internal/layout"
	"github.com/banshee-data/caption.review/internal/monitoring"
	"github.com/banshee-data/caption.review/internal/timeutil"
)

// ErrInvalidUpdate marks update requests rejected by validation, as opposed
// to storage failures. The API maps it to a client error.
var ErrInvalidUpdate = errors.New("invalid layout update")

// PredictionNotifier is told, after a successful commit, that a video's
// layout parameters changed and box predictions should be recalculated.
// Implementations own the asynchrony; the notification must never block or
// fail the update that triggered it.
type PredictionNotifier interface {
	NotifyParamsChanged(videoID string)
}

// SelectionUpdate carries the operator's manual selection rectangle and how
// it should constrain the crop.
type SelectionUpdate struct {
	Rect layout.CropRect `json:"rect"`
	Mode string          `json:"mode"`
}

// LayoutUpdate is a partial layout config update. Nil fields are left
// untouched; the non-nil parts are applied together in one transaction.
type LayoutUpdate struct {
	Bounds    *layout.CropRect     `json:"crop_bounds,omitempty"`
	Selection *SelectionUpdate     `json:"selection,omitempty"`
	Params    *layout.LayoutParams `json:"params,omitempty"`
}

// IsEmpty reports whether the update carries no parts.
func (u *LayoutUpdate) IsEmpty() bool {
	return u.Bounds == nil && u.Selection == nil && u.Params == nil
}

// UpdateResult reports what an update actually did. A bounds part that
// matched the stored rectangle leaves BoundsChanged false and bumps nothing.
type UpdateResult struct {
	BoundsChanged     bool  `json:"bounds_changed"`
	CropBoundsVersion int   `json:"crop_bounds_version"`
	InvalidatedFrames int64 `json:"invalidated_frames"`
	SelectionChanged  bool  `json:"selection_changed"`
	ParamsChanged     bool  `json:"params_changed"`
}

// LayoutUpdater applies partial layout updates. All parts of one update
// commit or roll back together; side effects ordered after the data change
// (prediction recalculation) run only once the transaction has committed.
type LayoutUpdater struct {
	DB       *DB
	Notifier PredictionNotifier
	Clock    timeutil.Clock
}

// NewLayoutUpdater creates an updater with a real clock. The notifier may be
// nil when no prediction service is wired.
func NewLayoutUpdater(database *DB, notifier PredictionNotifier) *LayoutUpdater {
	return &LayoutUpdater{DB: database, Notifier: notifier, Clock: timeutil.RealClock{}}
}

// UpdateLayoutConfig applies a partial update to a video's layout config.
//
// Bounds that differ from the stored rectangle regenerate the visualization,
// bump the crop bounds version and delete the video's cached frames, all in
// the same transaction; identical bounds are an idempotent no-op. Selection
// changes never bump the version. Parameter changes delete the video's
// classifier model (the prediction service trains a fresh one) and, after
// commit, notify the prediction service once.
func (u *LayoutUpdater) UpdateLayoutConfig(ctx context.Context, videoID string, update LayoutUpdate) (*UpdateResult, error) {
	return u.apply(ctx, videoID, update, updateOpts{deleteModel: true, notify: true})
}

// updateOpts distinguishes interactive updates from the reset path, which
// reuses the same transaction but keeps the classifier model and stays
// silent.
type updateOpts struct {
	deleteModel bool
	notify      bool
}

func (u *LayoutUpdater) apply(ctx context.Context, videoID string, update LayoutUpdate, opts updateOpts) (result *UpdateResult, err error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no parts given", ErrInvalidUpdate)
	}
	if update.Selection != nil && !ValidSelectionMode(update.Selection.Mode) {
		return nil, fmt.Errorf("%w: unknown selection mode %q", ErrInvalidUpdate, update.Selection.Mode)
	}
	if update.Params != nil && !update.Params.AnchorType.Valid() {
		return nil, fmt.Errorf("%w: unknown anchor type %q", ErrInvalidUpdate, update.Params.AnchorType)
	}

	clock := u.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now().UTC().Format(time.RFC3339)

	tx, err := u.DB.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			monitoring.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	current, err := getLayoutConfigTx(tx, videoID)
	if err != nil {
		return nil, err
	}

	result = &UpdateResult{CropBoundsVersion: current.CropBoundsVersion}

	if update.Bounds != nil {
		if err := validateCropRect(*update.Bounds, current.FrameWidth, current.FrameHeight); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
		}
		if current.CropBounds == nil || !current.CropBounds.Equal(*update.Bounds) {
			if err := u.applyBoundsTx(tx, videoID, current, update, now, result); err != nil {
				return nil, err
			}
		}
	}

	if update.Selection != nil {
		sel := update.Selection
		if err := validateCropRect(sel.Rect, current.FrameWidth, current.FrameHeight); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
		}
		_, err := tx.Exec(`
			UPDATE layout_configs
			SET selection_left = ?, selection_top = ?, selection_right = ?, selection_bottom = ?,
			    selection_mode = ?, updated_at = ?
			WHERE video_id = ?
		`, sel.Rect.Left, sel.Rect.Top, sel.Rect.Right, sel.Rect.Bottom, sel.Mode, now, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to update selection: %w", err)
		}
		result.SelectionChanged = true
	}

	if update.Params != nil {
		p := update.Params
		_, err := tx.Exec(`
			UPDATE layout_configs
			SET vertical_position = ?, vertical_std = ?, box_height = ?, box_height_std = ?,
			    anchor_type = ?, anchor_position = ?, top_edge_std = ?, bottom_edge_std = ?,
			    updated_at = ?
			WHERE video_id = ?
		`, p.VerticalPosition, p.VerticalStd, p.BoxHeight, p.BoxHeightStd,
			string(p.AnchorType), p.AnchorPosition, p.TopEdgeStd, p.BottomEdgeStd,
			now, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to update layout params: %w", err)
		}
		if opts.deleteModel {
			// The stored model was trained against the old layout; it is
			// retired here and only the prediction service creates a new one.
			if err := deleteClassifierModelTx(tx, videoID); err != nil {
				return nil, err
			}
		}
		result.ParamsChanged = true
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit layout update: %w", err)
	}

	if update.Bounds != nil {
		if result.BoundsChanged {
			monitoring.BoundsUpdates.Inc()
			monitoring.FramesInvalidated.Add(float64(result.InvalidatedFrames))
		} else {
			monitoring.BoundsNoops.Inc()
		}
	}
	if result.ParamsChanged {
		monitoring.ParamUpdates.Inc()
		if opts.notify && u.Notifier != nil {
			u.Notifier.NotifyParamsChanged(videoID)
		}
	}

	return result, nil
}

// applyBoundsTx persists a changed crop rectangle: regenerated visualization,
// version bump and frame cache invalidation, all on the caller's transaction.
func (u *LayoutUpdater) applyBoundsTx(tx *sql.Tx, videoID string, current *LayoutConfig, update LayoutUpdate, now string, result *UpdateResult) error {
	boxes, err := queryAnalysisBoxes(tx, captionBoxesQuery, videoID)
	if err != nil {
		return err
	}

	// Render against the params this update will leave in place.
	effectiveParams := current.Params
	if update.Params != nil {
		effectiveParams = update.Params
	}
	overlay := layout.RenderOverlay(boxes, *update.Bounds, current.FrameWidth, current.FrameHeight, effectiveParams)
	var buf bytes.Buffer
	if err := layout.EncodeOverlayPNG(&buf, overlay); err != nil {
		return fmt.Errorf("failed to encode visualization: %w", err)
	}

	newVersion := current.CropBoundsVersion + 1
	_, err = tx.Exec(`
		UPDATE layout_configs
		SET crop_left = ?, crop_top = ?, crop_right = ?, crop_bottom = ?,
		    crop_bounds_version = ?, visualization = ?, updated_at = ?
		WHERE video_id = ?
	`, update.Bounds.Left, update.Bounds.Top, update.Bounds.Right, update.Bounds.Bottom,
		newVersion, buf.Bytes(), now, videoID)
	if err != nil {
		return fmt.Errorf("failed to update crop bounds: %w", err)
	}

	invalidated, err := invalidateFrameCacheTx(tx, videoID)
	if err != nil {
		return err
	}

	result.BoundsChanged = true
	result.CropBoundsVersion = newVersion
	result.InvalidatedFrames = invalidated
	return nil
}

func getLayoutConfigTx(tx *sql.Tx, videoID string) (*LayoutConfig, error) {
	query := `SELECT ` + layoutConfigColumns + ` FROM layout_configs WHERE video_id = ?`
	cfg, err := scanLayoutConfig(tx.QueryRow(query, videoID))
	if err == sql.ErrNoRows {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get layout config: %w", err)
	}
	return cfg, nil
}

// validateCropRect rejects rectangles that are malformed or escape the
// frame. Zero-area rectangles are allowed; degenerate analysis output may
// legitimately collapse.
func validateCropRect(r layout.CropRect, frameWidth, frameHeight int) error {
	if r.Left < 0 || r.Top < 0 || r.Right > frameWidth || r.Bottom > frameHeight {
		return fmt.Errorf("crop rect [%d,%d,%d,%d] outside frame %dx%d",
			r.Left, r.Top, r.Right, r.Bottom, frameWidth, frameHeight)
	}
	if r.Left > r.Right || r.Top > r.Bottom {
		return fmt.Errorf("crop rect [%d,%d,%d,%d] is inverted",
			r.Left, r.Top, r.Right, r.Bottom)
	}
	return nil
}
