package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyConfig_ReturnsDocumentedDefaults(t *testing.T) {
	cfg := EmptyConfig()

	if cfg.GetBufferDensityFactor() != DefaultBufferDensityFactor {
		t.Errorf("GetBufferDensityFactor() = %v, want %v", cfg.GetBufferDensityFactor(), DefaultBufferDensityFactor)
	}
	if cfg.GetSelectionBins() != DefaultSelectionBins {
		t.Errorf("GetSelectionBins() = %v, want %v", cfg.GetSelectionBins(), DefaultSelectionBins)
	}
	if cfg.GetMaskNSide() != DefaultMaskNSide {
		t.Errorf("GetMaskNSide() = %v, want %v", cfg.GetMaskNSide(), DefaultMaskNSide)
	}
	if !cfg.GetCountAllVoids() {
		t.Error("GetCountAllVoids() should default true")
	}
	if cfg.GetClustersEnabled() {
		t.Error("GetClustersEnabled() should default false")
	}
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	if err := os.WriteFile(path, []byte(`{"selection_bins": 20, "clusters_enabled": true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.GetSelectionBins() != 20 {
		t.Errorf("GetSelectionBins() = %d, want 20", cfg.GetSelectionBins())
	}
	if !cfg.GetClustersEnabled() {
		t.Error("GetClustersEnabled() should be true")
	}
	// Fields absent from the file fall back to defaults.
	if cfg.GetBufferDensityFactor() != DefaultBufferDensityFactor {
		t.Errorf("GetBufferDensityFactor() = %v, want default %v", cfg.GetBufferDensityFactor(), DefaultBufferDensityFactor)
	}
}

func TestLoadConfig_RejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.txt")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	if err := os.WriteFile(path, []byte(`{"mask_nside": 60}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected validation error for non-power-of-two nside")
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	cases := map[int]bool{0: false, 1: true, 2: true, 3: false, 64: true, 512: true, 60: false}
	for n, want := range cases {
		if got := isPowerOfTwo(n); got != want {
			t.Errorf("isPowerOfTwo(%d) = %v, want %v", n, got, want)
		}
	}
}
