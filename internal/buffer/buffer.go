// Package buffer implements the Buffer Synthesis component (spec §4.E):
// high-z and low-z redshift caps, the boundary collar, and the interior
// guard grid that stabilize an unbounded Voronoi tessellation over a
// bounded survey or box volume.
package buffer

import (
	"math"
	"math/rand"

	"github.com/HAWinther/revolver-go/internal/healpix"
	"github.com/HAWinther/revolver-go/internal/monitoring"
	"github.com/HAWinther/revolver-go/internal/skygeom"
	"github.com/HAWinther/revolver-go/internal/spatial"
	"github.com/HAWinther/revolver-go/internal/tracer"
)

// DefaultEta is the default buffer-to-tracer density ratio eta (spec §4.E).
const DefaultEta = 10.0

// GuardSentinelRA and GuardSentinelDec mark guard-grid buffer particles,
// which carry no meaningful sky position (spec §4.E).
const (
	GuardSentinelRA  = -60.0
	GuardSentinelDec = -60.0
)

// Params collects the buffer-synthesis tunables.
type Params struct {
	Eta        float64 // buffer-to-tracer density ratio, default 10
	RhoTracer  float64 // tracer number density, tracers / volume
	ZMin, ZMax float64 // survey redshift bounds requested by the user
	Mask       *healpix.Mask
	Cosmo      skygeom.Cosmology
	Rand       *rand.Rand // injected for deterministic tests
}

func (p *Params) eta() float64 {
	if p.Eta > 0 {
		return p.Eta
	}
	return DefaultEta
}

func (p *Params) rng() *rand.Rand {
	if p.Rand != nil {
		return p.Rand
	}
	return rand.New(rand.NewSource(1))
}

// spacing returns the mean inter-particle spacing s = rho^(-1/3).
func spacing(rho float64) float64 {
	if rho <= 0 {
		return 0
	}
	return math.Pow(rho, -1.0/3.0)
}

// Result carries the radii bracketing the placed caps, needed by the
// boundary collar and downstream reporting.
type Result struct {
	RNear, RFar float64
	NHighCap    int
	NLowCap     int
	NBoundary   int
	NGuards     int
}

// eligiblePixels returns the indices of pixels whose value exceeds zero
// (or, for a full-sky synthetic mask, all pixels), upgrading resolution
// until at least minCount pixels are eligible (spec §4.E).
func eligiblePixels(mask *healpix.Mask, minCount int) (*healpix.Mask, []int) {
	m := mask
	for {
		var eligible []int
		for i, v := range m.Values {
			if v > 0 {
				eligible = append(eligible, i)
			}
		}
		if len(eligible) >= minCount || m.NSide >= 1<<14 {
			return m, eligible
		}
		m = m.UpgradeTo(m.NSide * 2)
	}
}

// sampleShell places n points with radii in [rLo, rHi) (drawn as
// r = (rLo^3 + U*(rHi^3-rLo^3))^(1/3)) and angles at randomly chosen
// eligible-pixel centres, appending each as a buffer particle to t.
func sampleShell(t *tracer.Table, mask *healpix.Mask, n int, rLo, rHi float64, rng *rand.Rand) {
	if n <= 0 {
		return
	}
	m, eligible := eligiblePixels(mask, n)
	if len(eligible) == 0 {
		return
	}
	r3Lo, r3Hi := rLo*rLo*rLo, rHi*rHi*rHi
	for i := 0; i < n; i++ {
		u := rng.Float64()
		r := math.Cbrt(r3Lo + u*(r3Hi-r3Lo))
		pix := eligible[rng.Intn(len(eligible))]
		ra, dec := healpix.Pix2Ang(m.NSide, pix)
		x, y, z := skygeom.RadecZToXYZ(ra, dec, 0, constDistanceCosmology{r})
		t.AppendBuffer(x, y, z, ra, dec)
	}
}

// constDistanceCosmology is a throwaway Cosmology whose comoving distance
// is fixed, letting sampleShell reuse RadecZToXYZ's angle/radius algebra
// without threading a real cosmology through for a z=0 placeholder.
type constDistanceCosmology struct{ r float64 }

func (c constDistanceCosmology) ComovingDistance(float64) float64 { return c.r }
func (c constDistanceCosmology) RedshiftAt(float64) float64       { return 0 }

// HighZCap synthesizes the outer redshift cap (spec §4.E step 1).
func HighZCap(t *tracer.Table, p *Params, tracerZMax float64) (rFar float64) {
	s := spacing(p.RhoTracer)
	eta := p.eta()
	zHigh := math.Max(tracerZMax, p.ZMax)
	rLo := p.Cosmo.ComovingDistance(zHigh) + s*math.Pow(eta, -1.0/3.0)
	rHi := rLo + s
	fSky := p.Mask.FSky()
	shellVol := fSky * 4.0 / 3.0 * math.Pi * (rHi*rHi*rHi - rLo*rLo*rLo)
	n := int(math.Ceil(p.RhoTracer * eta * shellVol))
	sampleShell(t, p.Mask, n, rLo, rHi, p.rng())
	monitoring.Diagf("buffer: high-z cap placed %d points in [%.3f, %.3f)", n, rLo, rHi)
	return rHi
}

// LowZCap synthesizes the inner redshift cap (spec §4.E step 2). It is a
// no-op when the survey reaches the origin.
func LowZCap(t *tracer.Table, p *Params, tracerZMin float64) (rNear float64) {
	zLow := math.Min(tracerZMin, p.ZMin)
	if zLow <= 0 {
		return 0
	}
	s := spacing(p.RhoTracer)
	eta := p.eta()
	rHi := p.Cosmo.ComovingDistance(zLow) - s*math.Pow(eta, -1.0/3.0)
	rLo := rHi - s
	if rLo < 0 {
		rLo = 0
	}
	if rHi < 0 {
		rHi = 0
	}
	fSky := p.Mask.FSky()
	shellVol := fSky * 4.0 / 3.0 * math.Pi * (rHi*rHi*rHi - rLo*rLo*rLo)
	n := int(math.Ceil(p.RhoTracer * eta * shellVol))
	sampleShell(t, p.Mask, n, rLo, rHi, p.rng())
	monitoring.Diagf("buffer: low-z cap placed %d points in [%.3f, %.3f)", n, rLo, rHi)
	return rLo
}

// BoundaryCollar synthesizes the angular-boundary buffer layer (spec §4.E
// step 3). It is a no-op for a full-sky mask.
func BoundaryCollar(t *tracer.Table, p *Params, boundary *healpix.Boundary, rNear, rFar float64) {
	fSkyBound := boundary.FSky
	if fSkyBound >= 1 {
		return
	}
	shellVol := fSkyBound * 4.0 / 3.0 * (rFar*rFar*rFar - rNear*rNear*rNear) * math.Pi
	eta := p.eta()
	n := int(math.Ceil(p.RhoTracer * eta * shellVol))
	if n <= 0 {
		return
	}
	boundaryMask := &healpix.Mask{NSide: boundary.NSide, Values: flagsToValues(boundary.Flag)}
	sampleShell(t, boundaryMask, n, rNear, rFar, p.rng())
	monitoring.Diagf("buffer: boundary collar placed %d points", n)
}

func flagsToValues(flag []int) []float64 {
	out := make([]float64, len(flag))
	for i, f := range flag {
		out[i] = float64(f)
	}
	return out
}

// GuardGrid builds the minimal enclosing cube, emplaces a 20x20x20
// candidate grid, and keeps only candidates far enough from every
// existing point (spec §4.E step 4). It returns the cube side length L
// and appends surviving guards (shifted back to observer coordinates) to
// t as buffer particles.
func GuardGrid(t *tracer.Table) (L float64) {
	const gridN = 20

	maxAbs := 0.0
	for i := 0; i < t.NTotal(); i++ {
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(t.X[i]), math.Max(math.Abs(t.Y[i]), math.Abs(t.Z[i]))))
	}
	L = 2*maxAbs + 1

	boxPoints := make([][3]float64, t.NTotal())
	for i := 0; i < t.NTotal(); i++ {
		boxPoints[i] = [3]float64{t.X[i] + L/2, t.Y[i] + L/2, t.Z[i] + L/2}
	}

	threshold := (L - 0.2) / gridN
	idx := spatial.NewGridIndex(threshold, L)
	idx.Build(boxPoints)

	step := (L - 0.2) / gridN
	count := 0
	for ix := 0; ix < gridN; ix++ {
		for iy := 0; iy < gridN; iy++ {
			for iz := 0; iz < gridN; iz++ {
				cx := 0.1 + float64(ix)*step
				cy := 0.1 + float64(iy)*step
				cz := 0.1 + float64(iz)*step
				if cx > L-0.1 || cy > L-0.1 || cz > L-0.1 {
					continue
				}
				p := [3]float64{cx, cy, cz}
				if idx.NearestDistance(p) < threshold {
					continue
				}
				x, y, z := skygeom.BoxToObserver(cx, cy, cz, L)
				t.AppendBuffer(x, y, z, GuardSentinelRA, GuardSentinelDec)
				count++
			}
		}
	}
	monitoring.Diagf("buffer: guard grid kept %d/%d candidates, L=%.3f", count, gridN*gridN*gridN, L)
	return L
}

// Synthesize runs all four buffer classes in spec order and shifts the
// whole table into box coordinates, returning the enclosing cube side and
// a summary of how many points were placed in each class.
func Synthesize(t *tracer.Table, p *Params, boundary *healpix.Boundary, tracerZMin, tracerZMax float64) (L float64, res Result) {
	before := t.NMocks
	rFar := HighZCap(t, p, tracerZMax)
	res.NHighCap = t.NMocks - before

	before = t.NMocks
	rNear := LowZCap(t, p, tracerZMin)
	res.NLowCap = t.NMocks - before
	res.RNear, res.RFar = rNear, rFar

	if boundary != nil {
		before = t.NMocks
		BoundaryCollar(t, p, boundary, rNear, rFar)
		res.NBoundary = t.NMocks - before
	}

	before = t.NMocks
	L = GuardGrid(t)
	res.NGuards = t.NMocks - before

	for i := 0; i < t.NTotal(); i++ {
		t.X[i], t.Y[i], t.Z[i] = skygeom.ObserverToBox(t.X[i], t.Y[i], t.Z[i], L)
	}
	monitoring.Opsf("buffer: synthesized %d+%d+%d+%d=%d buffers, box side L=%.3f",
		res.NHighCap, res.NLowCap, res.NBoundary, res.NGuards, t.NMocks, L)
	return L, res
}
