package selection

import (
	"math"
	"testing"
)

// linearCosmology is a trivial stand-in for the external cosmology
// service: r = c*z with c=3000 (roughly Mpc/h at low z), so tests can
// check exact bin arithmetic without a real distance-redshift relation.
type linearCosmology struct{ c float64 }

func (l linearCosmology) ComovingDistance(z float64) float64 { return l.c * z }
func (l linearCosmology) RedshiftAt(r float64) float64       { return r / l.c }

func TestCompute_EqualVolumeBins(t *testing.T) {
	cosmo := linearCosmology{c: 3000}
	f := Compute(nil, 10, 1000, 10, 1.0, cosmo)

	if len(f.REdges) != 11 {
		t.Fatalf("len(REdges) = %d, want 11", len(f.REdges))
	}

	vol := func(i int) float64 {
		r0, r1 := f.REdges[i], f.REdges[i+1]
		return r1*r1*r1 - r0*r0*r0
	}
	ref := vol(0)
	for i := 1; i < 10; i++ {
		v := vol(i)
		if math.Abs(v-ref)/ref > 1e-9 {
			t.Errorf("shell %d volume differs from shell 0 by more than 1e-9 relative: %v vs %v", i, v, ref)
		}
	}
}

func TestCompute_NofZAndFofZ(t *testing.T) {
	cosmo := linearCosmology{c: 3000}
	// Uniform comoving density: sample redshifts uniformly in r^3 so every
	// equal-volume bin gets roughly the same count.
	rMin, rMax := 10.0, 1000.0
	n := 20000
	zs := make([]float64, n)
	r3Lo, r3Hi := rMin*rMin*rMin, rMax*rMax*rMax
	for i := 0; i < n; i++ {
		frac := (float64(i) + 0.5) / float64(n)
		r := math.Cbrt(r3Lo + frac*(r3Hi-r3Lo))
		zs[i] = cosmo.RedshiftAt(r)
	}

	f := Compute(zs, rMin, rMax, 10, 1.0, cosmo)

	total := 0
	for _, b := range f.Bins {
		total += b.Count
	}
	if total != n {
		t.Errorf("sum of bin counts = %d, want %d", total, n)
	}

	for i, b := range f.Bins {
		if math.Abs(b.FofZ-1.0) > 0.05 {
			t.Errorf("bin %d: f(z) = %v, want close to 1 for uniform density", i, b.FofZ)
		}
	}
}

func TestCompute_DropsOutOfRangeRedshifts(t *testing.T) {
	cosmo := linearCosmology{c: 3000}
	rMin, rMax := 10.0, 1000.0
	inRange := cosmo.RedshiftAt(500)
	zs := []float64{-1, cosmo.RedshiftAt(1), inRange, inRange, cosmo.RedshiftAt(2000)}

	f := Compute(zs, rMin, rMax, 5, 1.0, cosmo)
	total := 0
	for _, b := range f.Bins {
		total += b.Count
	}
	if total != 2 {
		t.Errorf("total in-range count = %d, want 2", total)
	}
}

func TestLocateBin_Monotonic(t *testing.T) {
	edges := []float64{0, 1, 2, 3, 4}
	cases := []struct {
		z    float64
		want int
	}{
		{-0.1, -1}, {0, 0}, {0.5, 0}, {1, 1}, {3.9, 3}, {4, 3}, {4.1, -1},
	}
	for _, c := range cases {
		if got := locateBin(edges, c.z); got != c.want {
			t.Errorf("locateBin(%v) = %d, want %d", c.z, got, c.want)
		}
	}
}

func TestZValuesAndFValues_MatchBinLength(t *testing.T) {
	cosmo := linearCosmology{c: 3000}
	f := Compute([]float64{cosmo.RedshiftAt(100)}, 10, 1000, 6, 1.0, cosmo)
	if len(f.ZValues()) != 6 || len(f.FValues()) != 6 {
		t.Fatalf("ZValues/FValues length mismatch: %d/%d, want 6", len(f.ZValues()), len(f.FValues()))
	}
}
