// Package selection implements the Selection Function component (spec
// §4.D): equal-comoving-volume radial bins and the resulting n(z)/f(z).
package selection

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/HAWinther/revolver-go/internal/skygeom"
)

// DefaultBins is the default number of radial bins.
const DefaultBins = 15

// Bin is one radial selection-function bin.
type Bin struct {
	ZLo, ZHi   float64 // bin edges in redshift
	ZMean      float64 // mean tracer redshift in the bin
	Count      int     // raw tracer count
	ShellVol   float64 // f_sky * comoving shell volume
	NofZ       float64 // Count / ShellVol
	FofZ       float64 // NofZ normalized by overall tracer density
}

// Function is the full selection function: n_bins+1 radial edges and
// n_bins populated bins.
type Function struct {
	REdges []float64 // n_bins+1 comoving-distance bin edges
	Bins   []Bin
}

// Compute partitions [rMin, rMax] into nBins shells of equal comoving
// volume, histograms tracer redshifts into them, and returns n(z)/f(z)
// (spec §4.D). fSky scales shell volume to the surveyed solid angle.
func Compute(tracerRedshifts []float64, rMin, rMax float64, nBins int, fSky float64, cosmo skygeom.Cosmology) *Function {
	if nBins <= 0 {
		nBins = DefaultBins
	}

	redges := make([]float64, nBins+1)
	zedges := make([]float64, nBins+1)
	r3Lo, r3Hi := rMin*rMin*rMin, rMax*rMax*rMax
	for i := 0; i <= nBins; i++ {
		r3 := r3Lo + float64(i)*(r3Hi-r3Lo)/float64(nBins)
		r := math.Cbrt(r3)
		redges[i] = r
		zedges[i] = cosmo.RedshiftAt(r)
	}

	zsByBin := make([][]float64, nBins)
	for _, z := range tracerRedshifts {
		bin := locateBin(zedges, z)
		if bin < 0 {
			continue // outside redshift range: dropped silently per spec §7
		}
		zsByBin[bin] = append(zsByBin[bin], z)
	}

	nTotal := len(tracerRedshifts)
	totalVol := fSky * 4.0 / 3.0 * math.Pi * (r3Hi - r3Lo)
	meanDensity := float64(nTotal) / totalVol

	f := &Function{REdges: redges, Bins: make([]Bin, nBins)}
	shellVol := fSky * 4.0 / 3.0 * math.Pi * (r3Hi - r3Lo) / float64(nBins)
	for i := 0; i < nBins; i++ {
		count := len(zsByBin[i])
		zmean := zedges[i+1] // fallback when a bin is empty
		if count > 0 {
			zmean = stat.Mean(zsByBin[i], nil)
		}
		nofz := float64(count) / shellVol
		var fofz float64
		if meanDensity > 0 {
			fofz = nofz / meanDensity
		}
		f.Bins[i] = Bin{
			ZLo:      zedges[i],
			ZHi:      zedges[i+1],
			ZMean:    zmean,
			Count:    count,
			ShellVol: shellVol,
			NofZ:     nofz,
			FofZ:     fofz,
		}
	}
	return f
}

func locateBin(edges []float64, z float64) int {
	if z < edges[0] || z > edges[len(edges)-1] {
		return -1
	}
	// edges are monotonic in z since comoving distance is monotonic in z.
	lo, hi := 0, len(edges)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if edges[mid] <= z {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// ZValues returns the bin-mean redshifts, for building a reweighting
// interpolant.
func (f *Function) ZValues() []float64 {
	out := make([]float64, len(f.Bins))
	for i, b := range f.Bins {
		out[i] = b.ZMean
	}
	return out
}

// FValues returns the normalized f(z) per bin.
func (f *Function) FValues() []float64 {
	out := make([]float64, len(f.Bins))
	for i, b := range f.Bins {
		out[i] = b.FofZ
	}
	return out
}
