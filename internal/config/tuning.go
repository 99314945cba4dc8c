// Package config loads engine tuning from JSON files. All fields are
// pointers so a partial file overrides only what it names; everything else
// falls back to the engine defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/caption.review/internal/layout"
)

// maxConfigSize guards against accidentally pointing the tuning flag at a
// large non-config file.
const maxConfigSize = 1 * 1024 * 1024

// TuningConfig is the on-disk tuning schema for the layout engine. The
// checked-in config/tuning.defaults.json mirrors the built-in defaults, so
// a deployment can start from that file and override individual fields.
type TuningConfig struct {
	// Box collection
	MinBoxDimensionPx *int `json:"min_box_dimension_px,omitempty"`

	// Outlier filtering
	OutlierMinSamples         *int     `json:"outlier_min_samples,omitempty"`
	OutlierIQRMultiplier      *float64 `json:"outlier_iqr_multiplier,omitempty"`
	OutlierMaxRemovalFraction *float64 `json:"outlier_max_removal_fraction,omitempty"`

	// Estimator binning
	VerticalBinSize    *float64 `json:"vertical_bin_size,omitempty"`
	SizeBinSize        *float64 `json:"size_bin_size,omitempty"`
	EdgeSpreadWindowPx *float64 `json:"edge_spread_window_px,omitempty"`

	// Caption band and anchor classification
	BandStdMultiplier      *float64 `json:"band_std_multiplier,omitempty"`
	CenterBalanceTolerance *float64 `json:"center_balance_tolerance,omitempty"`
	EdgeDominanceMargin    *float64 `json:"edge_dominance_margin,omitempty"`

	// Crop padding
	PaddingFraction       *float64 `json:"padding_fraction,omitempty"`
	SharpnessPaddingScale *float64 `json:"sharpness_padding_scale,omitempty"`
	FallbackPaddingPx     *float64 `json:"fallback_padding_px,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTuningConfig returns a config with every field explicitly set to
// the engine defaults.
func DefaultTuningConfig() *TuningConfig {
	d := layout.DefaultParams()
	return &TuningConfig{
		MinBoxDimensionPx:         ptrInt(d.MinBoxDimension),
		OutlierMinSamples:         ptrInt(d.OutlierMinSamples),
		OutlierIQRMultiplier:      ptrFloat64(d.OutlierIQRMult),
		OutlierMaxRemovalFraction: ptrFloat64(d.OutlierMaxRemoval),
		VerticalBinSize:           ptrFloat64(d.VerticalBinSize),
		SizeBinSize:               ptrFloat64(d.SizeBinSize),
		EdgeSpreadWindowPx:        ptrFloat64(d.EdgeSpreadWindow),
		BandStdMultiplier:         ptrFloat64(d.BandStdMultiplier),
		CenterBalanceTolerance:    ptrFloat64(d.CenterBalanceTolerance),
		EdgeDominanceMargin:       ptrFloat64(d.EdgeDominanceMargin),
		PaddingFraction:           ptrFloat64(d.PaddingFraction),
		SharpnessPaddingScale:     ptrFloat64(d.SharpnessPaddingScale),
		FallbackPaddingPx:         ptrFloat64(d.FallbackPadding),
	}
}

// LoadTuningConfig reads and validates a tuning file. Only .json files up to
// 1MB are accepted.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if filepath.Ext(cleanPath) != ".json" {
		return nil, fmt.Errorf("tuning config must be a .json file, got %q", path)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg TuningConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every set field for a sane range. Nil fields are fine;
// they fall back to defaults.
func (c *TuningConfig) Validate() error {
	if c.MinBoxDimensionPx != nil && *c.MinBoxDimensionPx < 0 {
		return fmt.Errorf("min_box_dimension_px must be >= 0, got %d", *c.MinBoxDimensionPx)
	}
	if c.OutlierMinSamples != nil && *c.OutlierMinSamples < 2 {
		return fmt.Errorf("outlier_min_samples must be >= 2, got %d", *c.OutlierMinSamples)
	}
	if c.OutlierIQRMultiplier != nil && *c.OutlierIQRMultiplier <= 0 {
		return fmt.Errorf("outlier_iqr_multiplier must be > 0, got %f", *c.OutlierIQRMultiplier)
	}
	if c.OutlierMaxRemovalFraction != nil && (*c.OutlierMaxRemovalFraction < 0 || *c.OutlierMaxRemovalFraction > 1) {
		return fmt.Errorf("outlier_max_removal_fraction must be in [0,1], got %f", *c.OutlierMaxRemovalFraction)
	}
	if c.VerticalBinSize != nil && *c.VerticalBinSize <= 0 {
		return fmt.Errorf("vertical_bin_size must be > 0, got %f", *c.VerticalBinSize)
	}
	if c.SizeBinSize != nil && *c.SizeBinSize <= 0 {
		return fmt.Errorf("size_bin_size must be > 0, got %f", *c.SizeBinSize)
	}
	if c.EdgeSpreadWindowPx != nil && *c.EdgeSpreadWindowPx <= 0 {
		return fmt.Errorf("edge_spread_window_px must be > 0, got %f", *c.EdgeSpreadWindowPx)
	}
	if c.BandStdMultiplier != nil && *c.BandStdMultiplier <= 0 {
		return fmt.Errorf("band_std_multiplier must be > 0, got %f", *c.BandStdMultiplier)
	}
	if c.CenterBalanceTolerance != nil && (*c.CenterBalanceTolerance < 0 || *c.CenterBalanceTolerance > 1) {
		return fmt.Errorf("center_balance_tolerance must be in [0,1], got %f", *c.CenterBalanceTolerance)
	}
	if c.EdgeDominanceMargin != nil && (*c.EdgeDominanceMargin < 0 || *c.EdgeDominanceMargin > 1) {
		return fmt.Errorf("edge_dominance_margin must be in [0,1], got %f", *c.EdgeDominanceMargin)
	}
	if c.PaddingFraction != nil && (*c.PaddingFraction <= 0 || *c.PaddingFraction > 1) {
		return fmt.Errorf("padding_fraction must be in (0,1], got %f", *c.PaddingFraction)
	}
	if c.SharpnessPaddingScale != nil && *c.SharpnessPaddingScale < 0 {
		return fmt.Errorf("sharpness_padding_scale must be >= 0, got %f", *c.SharpnessPaddingScale)
	}
	if c.FallbackPaddingPx != nil && *c.FallbackPaddingPx < 0 {
		return fmt.Errorf("fallback_padding_px must be >= 0, got %f", *c.FallbackPaddingPx)
	}
	return nil
}

// EngineParams assembles layout.Params from the config, using engine
// defaults for every unset field.
func (c *TuningConfig) EngineParams() layout.Params {
	p := layout.DefaultParams()
	if c == nil {
		return p
	}
	if c.MinBoxDimensionPx != nil {
		p.MinBoxDimension = *c.MinBoxDimensionPx
	}
	if c.OutlierMinSamples != nil {
		p.OutlierMinSamples = *c.OutlierMinSamples
	}
	if c.OutlierIQRMultiplier != nil {
		p.OutlierIQRMult = *c.OutlierIQRMultiplier
	}
	if c.OutlierMaxRemovalFraction != nil {
		p.OutlierMaxRemoval = *c.OutlierMaxRemovalFraction
	}
	if c.VerticalBinSize != nil {
		p.VerticalBinSize = *c.VerticalBinSize
	}
	if c.SizeBinSize != nil {
		p.SizeBinSize = *c.SizeBinSize
	}
	if c.EdgeSpreadWindowPx != nil {
		p.EdgeSpreadWindow = *c.EdgeSpreadWindowPx
	}
	if c.BandStdMultiplier != nil {
		p.BandStdMultiplier = *c.BandStdMultiplier
	}
	if c.CenterBalanceTolerance != nil {
		p.CenterBalanceTolerance = *c.CenterBalanceTolerance
	}
	if c.EdgeDominanceMargin != nil {
		p.EdgeDominanceMargin = *c.EdgeDominanceMargin
	}
	if c.PaddingFraction != nil {
		p.PaddingFraction = *c.PaddingFraction
	}
	if c.SharpnessPaddingScale != nil {
		p.SharpnessPaddingScale = *c.SharpnessPaddingScale
	}
	if c.FallbackPaddingPx != nil {
		p.FallbackPadding = *c.FallbackPaddingPx
	}
	return p
}
