// Package config loads the pipeline's tuning parameters.
//
// PipelineConfig mirrors the teacher's TuningConfig: a struct of optional
// pointer fields loaded from JSON, with Get* accessors that fall back to
// documented defaults when a field is omitted. This is config *loading*
// only — no flag parsing, no interactive prompts.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PipelineConfig holds the tunable parameters for a void/cluster-finder run.
// Fields are pointers so a partial JSON document leaves the rest at default.
type PipelineConfig struct {
	// Buffer synthesis (§4.E)
	BufferDensityFactor *float64 `json:"buffer_density_factor,omitempty"` // η, default 10
	GuardGridSize       *int     `json:"guard_grid_size,omitempty"`       // default 20 (20x20x20)

	// Selection function (§4.D)
	SelectionBins *int `json:"selection_bins,omitempty"` // default 15

	// Mask & boundary (§4.C)
	MaskNSide     *int `json:"mask_nside,omitempty"`     // default 64
	BoundaryNSide *int `json:"boundary_nside,omitempty"` // default 512

	// Watershed post-processing (§4.H)
	VoidMinDensCut    *float64 `json:"void_min_dens_cut,omitempty"`
	ClusterMaxDensCut *float64 `json:"cluster_max_dens_cut,omitempty"`
	VoidMinNum        *int     `json:"void_min_num,omitempty"`
	ClusterMinNum     *int     `json:"cluster_min_num,omitempty"`
	CountAllVoids     *bool    `json:"count_all_voids,omitempty"`

	// Reweighting (§4.G)
	ApplyZWeights       *bool `json:"apply_z_weights,omitempty"`
	ApplyAngularWeights *bool `json:"apply_angular_weights,omitempty"`

	// Feature toggles
	ClustersEnabled *bool `json:"clusters_enabled,omitempty"`
	BoxMode         *bool `json:"box_mode,omitempty"`
}

// Defaults, named so call sites and tests can reference them directly.
const (
	DefaultBufferDensityFactor = 10.0
	DefaultGuardGridSize       = 20
	DefaultSelectionBins       = 15
	DefaultMaskNSide           = 64
	DefaultBoundaryNSide       = 512
	DefaultVoidMinDensCut      = 1.0
	DefaultClusterMaxDensCut   = 1.0
	DefaultVoidMinNum          = 1
	DefaultClusterMinNum       = 1
)

// EmptyConfig returns a PipelineConfig with every field nil; Get* accessors
// then report documented defaults.
func EmptyConfig() *PipelineConfig { return &PipelineConfig{} }

// LoadConfig loads a PipelineConfig from a JSON file. The path must end in
// .json and be under 1 MiB, mirroring the teacher's config-loading safety
// checks.
func LoadConfig(path string) (*PipelineConfig, error) {
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

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that set fields hold sane values.
func (c *PipelineConfig) Validate() error {
	if c.BufferDensityFactor != nil && *c.BufferDensityFactor < 1 {
		return fmt.Errorf("buffer_density_factor must be >= 1, got %f", *c.BufferDensityFactor)
	}
	if c.SelectionBins != nil && *c.SelectionBins < 1 {
		return fmt.Errorf("selection_bins must be >= 1, got %d", *c.SelectionBins)
	}
	if c.GuardGridSize != nil && *c.GuardGridSize < 1 {
		return fmt.Errorf("guard_grid_size must be >= 1, got %d", *c.GuardGridSize)
	}
	if c.MaskNSide != nil && !isPowerOfTwo(*c.MaskNSide) {
		return fmt.Errorf("mask_nside must be a power of two, got %d", *c.MaskNSide)
	}
	if c.BoundaryNSide != nil && !isPowerOfTwo(*c.BoundaryNSide) {
		return fmt.Errorf("boundary_nside must be a power of two, got %d", *c.BoundaryNSide)
	}
	return nil
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func (c *PipelineConfig) GetBufferDensityFactor() float64 {
	if c.BufferDensityFactor == nil {
		return DefaultBufferDensityFactor
	}
	return *c.BufferDensityFactor
}

func (c *PipelineConfig) GetGuardGridSize() int {
	if c.GuardGridSize == nil {
		return DefaultGuardGridSize
	}
	return *c.GuardGridSize
}

func (c *PipelineConfig) GetSelectionBins() int {
	if c.SelectionBins == nil {
		return DefaultSelectionBins
	}
	return *c.SelectionBins
}

func (c *PipelineConfig) GetMaskNSide() int {
	if c.MaskNSide == nil {
		return DefaultMaskNSide
	}
	return *c.MaskNSide
}

func (c *PipelineConfig) GetBoundaryNSide() int {
	if c.BoundaryNSide == nil {
		return DefaultBoundaryNSide
	}
	return *c.BoundaryNSide
}

func (c *PipelineConfig) GetVoidMinDensCut() float64 {
	if c.VoidMinDensCut == nil {
		return DefaultVoidMinDensCut
	}
	return *c.VoidMinDensCut
}

func (c *PipelineConfig) GetClusterMaxDensCut() float64 {
	if c.ClusterMaxDensCut == nil {
		return DefaultClusterMaxDensCut
	}
	return *c.ClusterMaxDensCut
}

func (c *PipelineConfig) GetVoidMinNum() int {
	if c.VoidMinNum == nil {
		return DefaultVoidMinNum
	}
	return *c.VoidMinNum
}

func (c *PipelineConfig) GetClusterMinNum() int {
	if c.ClusterMinNum == nil {
		return DefaultClusterMinNum
	}
	return *c.ClusterMinNum
}

func (c *PipelineConfig) GetCountAllVoids() bool {
	if c.CountAllVoids == nil {
		return true
	}
	return *c.CountAllVoids
}

func (c *PipelineConfig) GetApplyZWeights() bool {
	if c.ApplyZWeights == nil {
		return true
	}
	return *c.ApplyZWeights
}

func (c *PipelineConfig) GetApplyAngularWeights() bool {
	if c.ApplyAngularWeights == nil {
		return true
	}
	return *c.ApplyAngularWeights
}

func (c *PipelineConfig) GetClustersEnabled() bool {
	if c.ClustersEnabled == nil {
		return false
	}
	return *c.ClustersEnabled
}

func (c *PipelineConfig) GetBoxMode() bool {
	if c.BoxMode == nil {
		return false
	}
	return *c.BoxMode
}
