package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/caption.review/internal/layout"
	"github.com/banshee-data/caption.review/internal/monitoring"
)

var (
	// ErrConfigNotFound is returned when a video has no layout config row.
	ErrConfigNotFound = errors.New("layout config not found")

	// ErrConfigExists is returned when creating a config for a video that
	// already has one.
	ErrConfigExists = errors.New("layout config already exists")
)

// Selection modes control how a manual selection rectangle constrains the
// crop: hard selections override computed bounds, soft selections bias them,
// disabled selections are kept but ignored.
const (
	SelectionModeHard     = "hard"
	SelectionModeSoft     = "soft"
	SelectionModeDisabled = "disabled"
)

// ValidSelectionMode reports whether mode is one of the known selection modes.
func ValidSelectionMode(mode string) bool {
	switch mode {
	case SelectionModeHard, SelectionModeSoft, SelectionModeDisabled:
		return true
	}
	return false
}

// LayoutConfig is the per-video layout state: detected frame geometry, the
// current crop rectangle with its version, the fitted layout parameters and
// the operator's manual selection and approval.
type LayoutConfig struct {
	VideoID           string               `json:"video_id"`
	FrameWidth        int                  `json:"frame_width"`
	FrameHeight       int                  `json:"frame_height"`
	CropBounds        *layout.CropRect     `json:"crop_bounds,omitempty"`
	CropBoundsVersion int                  `json:"crop_bounds_version"`
	Params            *layout.LayoutParams `json:"params,omitempty"`
	Selection         *layout.CropRect     `json:"selection,omitempty"`
	SelectionMode     string               `json:"selection_mode"`
	LayoutApproved    bool                 `json:"layout_approved"`
	CreatedAt         string               `json:"created_at"`
	UpdatedAt         string               `json:"updated_at"`
}

// layoutConfigColumns is the shared SELECT list. The visualization blob is
// deliberately excluded; fetch it with GetVisualization.
const layoutConfigColumns = `
	video_id, frame_width, frame_height,
	crop_left, crop_top, crop_right, crop_bottom, crop_bounds_version,
	vertical_position, vertical_std, box_height, box_height_std,
	anchor_type, anchor_position, top_edge_std, bottom_edge_std,
	selection_left, selection_top, selection_right, selection_bottom,
	selection_mode, layout_approved, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLayoutConfig(row rowScanner) (*LayoutConfig, error) {
	var (
		cfg            LayoutConfig
		cropL, cropT   sql.NullInt64
		cropR, cropB   sql.NullInt64
		vPos, vStd     sql.NullFloat64
		boxH, boxHStd  sql.NullFloat64
		anchorType     sql.NullString
		anchorPos      sql.NullInt64
		topStd, botStd sql.NullFloat64
		selL, selT     sql.NullInt64
		selR, selB     sql.NullInt64
		selMode        sql.NullString
		approvedInt    int
	)

	err := row.Scan(
		&cfg.VideoID, &cfg.FrameWidth, &cfg.FrameHeight,
		&cropL, &cropT, &cropR, &cropB, &cfg.CropBoundsVersion,
		&vPos, &vStd, &boxH, &boxHStd,
		&anchorType, &anchorPos, &topStd, &botStd,
		&selL, &selT, &selR, &selB,
		&selMode, &approvedInt, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cropL.Valid {
		cfg.CropBounds = &layout.CropRect{
			Left:   int(cropL.Int64),
			Top:    int(cropT.Int64),
			Right:  int(cropR.Int64),
			Bottom: int(cropB.Int64),
		}
	}
	if vPos.Valid {
		cfg.Params = &layout.LayoutParams{
			VerticalPosition: vPos.Float64,
			VerticalStd:      vStd.Float64,
			BoxHeight:        boxH.Float64,
			BoxHeightStd:     boxHStd.Float64,
			AnchorType:       layout.AnchorType(anchorType.String),
			AnchorPosition:   int(anchorPos.Int64),
			TopEdgeStd:       topStd.Float64,
			BottomEdgeStd:    botStd.Float64,
		}
	}
	if selL.Valid {
		cfg.Selection = &layout.CropRect{
			Left:   int(selL.Int64),
			Top:    int(selT.Int64),
			Right:  int(selR.Int64),
			Bottom: int(selB.Int64),
		}
	}
	cfg.SelectionMode = SelectionModeDisabled
	if selMode.Valid && selMode.String != "" {
		cfg.SelectionMode = selMode.String
	}
	cfg.LayoutApproved = approvedInt == 1

	return &cfg, nil
}

// CreateLayoutConfig provisions the layout row for a video. The crop
// rectangle and parameters stay unset until the first analysis or update.
func (db *DB) CreateLayoutConfig(videoID string, frameWidth, frameHeight int) (*LayoutConfig, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", frameWidth, frameHeight)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO layout_configs (video_id, frame_width, frame_height, crop_bounds_version, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`

	_, err := db.DB.Exec(query, videoID, frameWidth, frameHeight, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrConfigExists
		}
		return nil, fmt.Errorf("failed to create layout config: %w", err)
	}

	return &LayoutConfig{
		VideoID:       videoID,
		FrameWidth:    frameWidth,
		FrameHeight:   frameHeight,
		SelectionMode: SelectionModeDisabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetLayoutConfig retrieves the layout config for a video.
func (db *DB) GetLayoutConfig(videoID string) (*LayoutConfig, error) {
	query := `SELECT ` + layoutConfigColumns + ` FROM layout_configs WHERE video_id = ?`

	cfg, err := scanLayoutConfig(db.DB.QueryRow(query, videoID))
	if err == sql.ErrNoRows {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get layout config: %w", err)
	}
	return cfg, nil
}

// ListLayoutConfigs retrieves all layout configs, most recently updated first.
func (db *DB) ListLayoutConfigs() ([]LayoutConfig, error) {
	query := `SELECT ` + layoutConfigColumns + ` FROM layout_configs ORDER BY updated_at DESC, video_id ASC`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query layout configs: %w", err)
	}
	defer rows.Close()

	var configs []LayoutConfig
	for rows.Next() {
		cfg, err := scanLayoutConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan layout config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating layout configs: %w", err)
	}

	return configs, nil
}

// SetLayoutApproved records the operator's sign-off on the current layout.
// Approval does not touch the crop bounds version.
func (db *DB) SetLayoutApproved(videoID string, approved bool) error {
	approvedInt := 0
	if approved {
		approvedInt = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := db.DB.Exec(
		`UPDATE layout_configs SET layout_approved = ?, updated_at = ? WHERE video_id = ?`,
		approvedInt, now, videoID,
	)
	if err != nil {
		return fmt.Errorf("failed to set layout approved: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConfigNotFound
	}
	return nil
}

// GetVisualization returns the stored visualization PNG for a video, or nil
// when no visualization has been generated yet.
func (db *DB) GetVisualization(videoID string) ([]byte, error) {
	var blob []byte
	err := db.DB.QueryRow(`SELECT visualization FROM layout_configs WHERE video_id = ?`, videoID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visualization: %w", err)
	}
	return blob, nil
}

// DeleteLayoutConfig removes a video's layout config along with its boxes,
// cached frames and classifier model in one transaction.
func (db *DB) DeleteLayoutConfig(videoID string) error {
	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			monitoring.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	for _, table := range []string{"frame_cache", "classifier_models", "ocr_boxes"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE video_id = ?`, videoID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	result, err := tx.Exec(`DELETE FROM layout_configs WHERE video_id = ?`, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete layout config: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConfigNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}
