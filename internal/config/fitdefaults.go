// Package config loads fit defaults from JSON. A defaults file lets a
// deployment pin its preferred tile sizes and estimation parameters while
// command line flags and API parameters still override per run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/backgrid/internal/bgestimate"
)

// DefaultConfigPath is the path to the canonical fit defaults file.
const DefaultConfigPath = "config/backgrid.defaults.json"

// FitDefaults holds optional overrides for the background fit controls.
// All fields are pointers so a partial JSON file only overrides what it
// names; nil fields fall back to the built-in defaults.
type FitDefaults struct {
	TileSizeX   *int     `json:"tile_size_x,omitempty"`
	TileSizeY   *int     `json:"tile_size_y,omitempty"`
	Statistic   *string  `json:"statistic,omitempty"`
	Interp      *string  `json:"interp,omitempty"`
	Undersample *string  `json:"undersample,omitempty"`
	ClipSigma   *float64 `json:"clip_sigma,omitempty"`
	ClipIters   *int     `json:"clip_iters,omitempty"`
}

// EmptyFitDefaults returns a FitDefaults with all fields unset.
func EmptyFitDefaults() *FitDefaults {
	return &FitDefaults{}
}

// LoadFitDefaults loads fit defaults from a JSON file. The file must have
// a .json extension and stay under the size cap; omitted fields keep their
// built-in defaults, so partial configs are safe.
func LoadFitDefaults(path string) (*FitDefaults, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFitDefaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every set field names a known value.
func (c *FitDefaults) Validate() error {
	if c.TileSizeX != nil && *c.TileSizeX < 1 {
		return fmt.Errorf("tile_size_x must be positive, got %d", *c.TileSizeX)
	}
	if c.TileSizeY != nil && *c.TileSizeY < 1 {
		return fmt.Errorf("tile_size_y must be positive, got %d", *c.TileSizeY)
	}
	if c.Statistic != nil {
		if _, err := bgestimate.ParseStatistic(*c.Statistic); err != nil {
			return err
		}
	}
	if c.Interp != nil {
		if _, err := bgestimate.ParseInterpStyle(*c.Interp); err != nil {
			return err
		}
	}
	if c.Undersample != nil {
		if _, err := bgestimate.ParseUndersampleStyle(*c.Undersample); err != nil {
			return err
		}
	}
	if c.ClipSigma != nil && *c.ClipSigma <= 0 {
		return fmt.Errorf("clip_sigma must be positive, got %f", *c.ClipSigma)
	}
	if c.ClipIters != nil && *c.ClipIters < 0 {
		return fmt.Errorf("clip_iters must be non-negative, got %d", *c.ClipIters)
	}
	return nil
}

// Control builds a bgestimate.Control from the defaults, starting from the
// built-in DefaultControl and applying every set field. Validate must have
// passed, so the parses cannot fail.
func (c *FitDefaults) Control() bgestimate.Control {
	tileX, tileY := 64, 64
	if c.TileSizeX != nil {
		tileX = *c.TileSizeX
	}
	if c.TileSizeY != nil {
		tileY = *c.TileSizeY
	}
	ctrl := bgestimate.DefaultControl(tileX, tileY)
	if c.Statistic != nil {
		ctrl.Statistic, _ = bgestimate.ParseStatistic(*c.Statistic)
	}
	if c.Interp != nil {
		ctrl.Interp, _ = bgestimate.ParseInterpStyle(*c.Interp)
	}
	if c.Undersample != nil {
		ctrl.Undersample, _ = bgestimate.ParseUndersampleStyle(*c.Undersample)
	}
	if c.ClipSigma != nil {
		ctrl.ClipSigma = *c.ClipSigma
	}
	if c.ClipIters != nil {
		ctrl.ClipIters = *c.ClipIters
	}
	return ctrl
}
