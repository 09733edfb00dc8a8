package skygeom

import "testing"

// linearCosmology is a trivial stand-in for the external cosmology
// service: comoving distance is proportional to redshift. Good enough to
// exercise the round-trip algebra without pulling in real cosmology.
type linearCosmology struct{ H0 float64 }

func (c linearCosmology) ComovingDistance(z float64) float64 { return z * c.H0 }
func (c linearCosmology) RedshiftAt(r float64) float64       { return r / c.H0 }

func TestRadecZRoundTrip(t *testing.T) {
	cosmo := linearCosmology{H0: 3000}
	cases := []struct{ ra, dec, z float64 }{
		{0, 0, 0.1},
		{90, 45, 0.5},
		{359, -89, 1.2},
		{180, 0, 0.01},
	}
	for _, c := range cases {
		x, y, z3 := RadecZToXYZ(c.ra, c.dec, c.z, cosmo)
		ra2, dec2, z2 := XYZToRadecZ(x, y, z3, cosmo)
		if abs(ra2-c.ra) > 1e-6 {
			t.Errorf("RA round-trip: got %v want %v", ra2, c.ra)
		}
		if abs(dec2-c.dec) > 1e-6 {
			t.Errorf("Dec round-trip: got %v want %v", dec2, c.dec)
		}
		if abs(z2-c.z) > 1e-6 {
			t.Errorf("z round-trip: got %v want %v", z2, c.z)
		}
	}
}

func TestXYZToRadecZ_ClampsRAIntoRange(t *testing.T) {
	cosmo := linearCosmology{H0: 3000}
	// A point with negative atan2 result (third quadrant).
	_, _, _ = RadecZToXYZ(0, 0, 0, cosmo)
	ra, _, _ := XYZToRadecZ(-1, -1, 0, cosmo)
	if ra < 0 || ra >= 360 {
		t.Errorf("RA = %v, want in [0, 360)", ra)
	}
}

func TestObserverBoxFrameShift_IsInverse(t *testing.T) {
	const L = 500.0
	x, y, z := 123.4, -50.0, 0.0
	bx, by, bz := ObserverToBox(x, y, z, L)
	ox, oy, oz := BoxToObserver(bx, by, bz, L)
	if abs(ox-x) > 1e-9 || abs(oy-y) > 1e-9 || abs(oz-z) > 1e-9 {
		t.Errorf("frame shift not inverse: got (%v,%v,%v) want (%v,%v,%v)", ox, oy, oz, x, y, z)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
