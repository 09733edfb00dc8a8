// Package skygeom implements the Sky Geometry component (spec §4.B):
// (RA, Dec, z) <-> Cartesian conversion, periodic-box coordinate wraps,
// and the observer-frame <-> box-frame shift used before/after
// tessellation.
package skygeom

import "math"

// Cosmology is the external cosmology-service contract (spec §1): it
// supplies comoving distance and its inverse. The pipeline never computes
// these itself.
type Cosmology interface {
	ComovingDistance(z float64) float64
	RedshiftAt(r float64) float64
}

// RadecZToXYZ converts (RA in degrees, Dec in degrees, redshift) to
// Cartesian coordinates using the physics convention
//
//	phi = RA * pi/180, theta = pi/2 - Dec * pi/180, r = cosmology.ComovingDistance(z)
//	x = r sin(theta) cos(phi), y = r sin(theta) sin(phi), z = r cos(theta)
func RadecZToXYZ(raDeg, decDeg, z float64, cosmo Cosmology) (x, y, z3 float64) {
	r := cosmo.ComovingDistance(z)
	phi := raDeg * math.Pi / 180.0
	theta := math.Pi/2 - decDeg*math.Pi/180.0
	sinTheta, cosTheta := math.Sincos(theta)
	sinPhi, cosPhi := math.Sincos(phi)
	x = r * sinTheta * cosPhi
	y = r * sinTheta * sinPhi
	z3 = r * cosTheta
	return x, y, z3
}

// XYZToRadecZ inverts RadecZToXYZ. RA is clamped into [0, 360).
func XYZToRadecZ(x, y, z float64, cosmo Cosmology) (raDeg, decDeg, redshift float64) {
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 {
		return 0, 90, cosmo.RedshiftAt(0)
	}
	decDeg = 90.0 - math.Acos(z/r)*180.0/math.Pi
	raDeg = math.Atan2(y, x) * 180.0 / math.Pi
	if raDeg < 0 {
		raDeg += 360.0
	}
	redshift = cosmo.RedshiftAt(r)
	return raDeg, decDeg, redshift
}

// ObserverToBox shifts observer-frame coordinates ([-L/2, L/2)) into
// box-frame coordinates ([0, L)) by adding L/2 to every axis (spec §4.B).
func ObserverToBox(x, y, z, L float64) (float64, float64, float64) {
	h := L / 2
	return x + h, y + h, z + h
}

// BoxToObserver inverts ObserverToBox by subtracting L/2 from every axis.
func BoxToObserver(x, y, z, L float64) (float64, float64, float64) {
	h := L / 2
	return x - h, y - h, z - h
}
