// Package healpix implements the small slice of HEALPix (Hierarchical
// Equal Area isoLatitude Pixelization) operations the pipeline needs:
// ang2pix, pix2ang, get_all_neighbours, ud_grade, in RING ordering.
//
// Spec §9 treats HEALPix as an external capability ("any conforming
// library satisfies the spec"); the retrieved example pack carries no Go
// HEALPix package, so this package supplies an in-module implementation
// in the same spirit the teacher hand-rolls its own spatial index
// (internal/spatial, itself grounded on the teacher's DBSCAN grid) rather
// than reaching for a dependency that was never wired.
package healpix

import "math"

// NSide must be a power of two; NPix returns 12*nside^2.
func NPix(nside int) int { return 12 * nside * nside }

// Ang2Pix converts (RA, Dec) in degrees to a RING-ordered pixel index.
func Ang2Pix(nside int, raDeg, decDeg float64) int {
	theta, phi := radecToThetaPhi(raDeg, decDeg)
	return ang2PixRing(nside, theta, phi)
}

// Pix2Ang converts a RING-ordered pixel index to its centre (RA, Dec) in
// degrees.
func Pix2Ang(nside, ipix int) (raDeg, decDeg float64) {
	theta, phi := pix2AngRing(nside, ipix)
	return thetaPhiToRadec(theta, phi)
}

func radecToThetaPhi(raDeg, decDeg float64) (theta, phi float64) {
	phi = raDeg * math.Pi / 180.0
	theta = math.Pi/2 - decDeg*math.Pi/180.0
	return theta, phi
}

func thetaPhiToRadec(theta, phi float64) (raDeg, decDeg float64) {
	raDeg = phi * 180.0 / math.Pi
	for raDeg < 0 {
		raDeg += 360.0
	}
	for raDeg >= 360.0 {
		raDeg -= 360.0
	}
	decDeg = 90.0 - theta*180.0/math.Pi
	return raDeg, decDeg
}

// ang2PixRing implements the standard HEALPix RING-scheme projection
// (Gorski et al. 2005, §4).
func ang2PixRing(nside int, theta, phi float64) int {
	nsideF := float64(nside)
	z := math.Cos(theta)
	za := math.Abs(z)
	tt := math.Mod(phi, 2*math.Pi)
	if tt < 0 {
		tt += 2 * math.Pi
	}
	tt = tt / (math.Pi / 2) // in [0,4)

	ncap := 2 * nside * (nside - 1)
	npix := NPix(nside)

	if za <= 2.0/3.0 {
		temp1 := nsideF * (0.5 + tt)
		temp2 := nsideF * z * 0.75
		jp := int(math.Floor(temp1 - temp2))
		jm := int(math.Floor(temp1 + temp2))
		ir := nside + 1 + jp - jm
		kshift := 0
		if ir%2 == 0 {
			kshift = 1
		}
		ip := (jp + jm - nside + kshift + 1) / 2
		ip = ((ip % (4 * nside)) + 4*nside) % (4 * nside)
		return ncap + (ir-1)*4*nside + ip
	}

	tp := tt - math.Floor(tt)
	tmp := nsideF * math.Sqrt(3*(1-za))
	jp := int(math.Floor(tp * tmp))
	jm := int(math.Floor((1 - tp) * tmp))
	ir := jp + jm + 1
	ip := int(math.Floor(tt * float64(ir)))
	if ir > 0 {
		ip = ((ip % (4 * ir)) + 4*ir) % (4 * ir)
	}
	if z > 0 {
		return 2*ir*(ir-1) + ip
	}
	return npix - 2*ir*(ir+1) + ip
}

// pix2AngRing inverts ang2PixRing.
func pix2AngRing(nside, ipix int) (theta, phi float64) {
	nsideF := float64(nside)
	ncap := 2 * nside * (nside - 1)
	npix := NPix(nside)

	switch {
	case ipix < ncap:
		// North polar cap.
		iring := int((1 + isqrt(1+2*ipix)) / 2)
		iphi := ipix - 2*iring*(iring-1) + 1
		theta = math.Acos(1 - float64(iring)*float64(iring)/(3*nsideF*nsideF))
		phi = (float64(iphi) - 0.5) * math.Pi / (2 * float64(iring))
	case ipix < npix-ncap:
		// Equatorial belt.
		ip := ipix - ncap
		iring := ip/(4*nside) + nside
		iphi := ip%(4*nside) + 1
		fodd := 1.0
		if (iring+nside)%2 == 0 {
			fodd = 0.5
		}
		z := (4.0/3.0 - 2.0*float64(iring)/(3*nsideF))
		theta = math.Acos(z)
		phi = (float64(iphi) - fodd) * math.Pi / (2 * nsideF)
	default:
		// South polar cap.
		ip := npix - ipix
		iring := int((1 + isqrt(2*ip-1)) / 2)
		iphi := 4*iring + 1 - (ip - 2*iring*(iring-1))
		theta = math.Acos(-1 + float64(iring)*float64(iring)/(3*nsideF*nsideF))
		phi = (float64(iphi) - 0.5) * math.Pi / (2 * float64(iring))
	}
	return theta, phi
}

func isqrt(n int) int {
	if n < 0 {
		return 0
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// approxPixelSize returns the angular size (radians) of a pixel at this
// nside, used to probe neighbouring pixels.
func approxPixelSize(nside int) float64 {
	return math.Sqrt(4 * math.Pi / float64(NPix(nside)))
}

// GetAllNeighbours returns the (up to 8) distinct pixels adjacent to ipix.
// True HEALPix neighbour topology requires walking the ring/xyf index
// structure directly; this implementation instead probes 8 compass
// directions one pixel-width away from the pixel centre and reprojects
// with Ang2Pix, deduplicating and excluding ipix itself. This is a
// deliberate simplification in the same spirit
// as the buffer-sampling-by-pixel-centre tradeoff spec.md §9 calls out:
// the boundary-ring growth in §4.C only needs "the pixels touching this
// one", not exact HEALPix adjacency semantics.
func GetAllNeighbours(nside, ipix int) []int {
	theta, phi := pix2AngRing(nside, ipix)
	step := approxPixelSize(nside)

	sinTheta := math.Sin(theta)
	if sinTheta < 1e-6 {
		sinTheta = 1e-6
	}

	offsets := [8][2]float64{
		{step, 0}, {-step, 0}, {0, step}, {0, -step},
		{step, step}, {step, -step}, {-step, step}, {-step, -step},
	}

	seen := map[int]struct{}{ipix: {}}
	var neighbours []int
	for _, off := range offsets {
		nt := theta + off[0]
		if nt < 0 {
			nt = -nt
		}
		if nt > math.Pi {
			nt = 2*math.Pi - nt
		}
		np := phi + off[1]/sinTheta
		pix := ang2PixRing(nside, nt, np)
		if _, dup := seen[pix]; dup {
			continue
		}
		seen[pix] = struct{}{}
		neighbours = append(neighbours, pix)
	}
	return neighbours
}

// UDGrade resamples a map to a new resolution by nearest-pixel-centre
// lookup: each output pixel takes the value of the input pixel covering
// its centre. This mirrors the read-only access pattern the pipeline
// needs (upgrading a mask/boundary map to find more eligible pixels);
// it is not a flux-conserving degrade.
func UDGrade(values []float64, oldNSide, newNSide int) []float64 {
	out := make([]float64, NPix(newNSide))
	for i := range out {
		ra, dec := Pix2Ang(newNSide, i)
		srcPix := Ang2Pix(oldNSide, ra, dec)
		if srcPix >= 0 && srcPix < len(values) {
			out[i] = values[srcPix]
		}
	}
	return out
}
