package healpix

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"
)

func syntheticSky(n int, seed int64) (ra, dec []float64) {
	rng := rand.New(rand.NewSource(seed))
	ra = make([]float64, n)
	dec = make([]float64, n)
	for i := 0; i < n; i++ {
		ra[i] = rng.Float64() * 90 // quarter of the sky
		dec[i] = rng.Float64()*60 - 30
	}
	return ra, dec
}

func TestSynthesizeMask_FSkyMatchesOccupiedFraction(t *testing.T) {
	ra, dec := syntheticSky(20000, 1)
	m, fsky := SynthesizeMask(ra, dec, 64)

	occupied := 0
	for _, v := range m.Values {
		if v > 0 {
			occupied++
		}
	}
	want := float64(occupied) / float64(len(m.Values))
	if math.Abs(fsky-want) > 2e-3 {
		t.Errorf("f_sky = %v, want %v (within 2e-3)", fsky, want)
	}
}

func TestMaskTextRoundTrip(t *testing.T) {
	ra, dec := syntheticSky(5000, 2)
	m, _ := SynthesizeMask(ra, dec, 16)

	path := filepath.Join(t.TempDir(), "mask.txt")
	if err := m.WriteText(path); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := ReadMaskText(path)
	if err != nil {
		t.Fatalf("ReadMaskText: %v", err)
	}
	if got.NSide != m.NSide {
		t.Fatalf("NSide = %d, want %d", got.NSide, m.NSide)
	}
	for i := range m.Values {
		if got.Values[i] != m.Values[i] {
			t.Fatalf("value mismatch at pixel %d: got %v want %v", i, got.Values[i], m.Values[i])
		}
	}
}

func TestFindBoundary_CollarDoesNotOverlapMask(t *testing.T) {
	ra, dec := syntheticSky(20000, 3)
	m, fsky := SynthesizeMask(ra, dec, 64)
	if fsky >= 1 {
		t.Skip("synthetic sky covers the full sphere, cannot test boundary")
	}

	b := FindBoundary(m, 0)
	maskAtBoundary := m.UpgradeTo(b.NSide)

	overlap := 0
	for i, f := range b.Flag {
		if f == 1 && maskAtBoundary.Values[i] > 0 {
			overlap++
		}
	}
	if overlap != 0 {
		t.Errorf("boundary collar overlaps the mask at %d pixels", overlap)
	}
	if len(b.Pixels()) == 0 {
		t.Error("expected a non-empty boundary collar for a partial-sky mask")
	}
}

func TestBoundaryRingCount(t *testing.T) {
	if got := boundaryRingCount(64); got != 3 {
		t.Errorf("boundaryRingCount(64) = %d, want 3", got)
	}
	if got := boundaryRingCount(512); got != 6 {
		t.Errorf("boundaryRingCount(512) = %d, want 6", got)
	}
}
