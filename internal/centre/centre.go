// Package centre implements the Centre Extractor component (spec §4.I):
// the void circumcentre (geometric), void barycentre (volume-weighted),
// cluster centre, and the derived shape fields common to both.
package centre

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/HAWinther/revolver-go/internal/skygeom"
)

// EdgeFlagOK, EdgeFlagEdge, and EdgeFlagDegenerate are the three values
// the edge_flag attribute can take (spec §3, §4.I).
const (
	EdgeFlagOK         = 0
	EdgeFlagEdge       = 1
	EdgeFlagDegenerate = 2
)

// Adjacency is the tessellator's per-tracer neighbour list (the `.adj`
// file, spec §3).
type Adjacency map[int][]int

// Position is a Cartesian point.
type Position struct{ X, Y, Z float64 }

// CircumcentreResult is the outcome of VoidCircumcentre.
type CircumcentreResult struct {
	Position Position
	EdgeFlag int
}

// VoidCircumcentre finds the three mutually-adjacent lowest-density
// neighbours of the core tracer and solves for the circumcentre of the
// resulting tetrahedron (spec §4.I steps 1-4).
func VoidCircumcentre(core int, adj Adjacency, density []float64, pos []Position) CircumcentreResult {
	a1 := adj[core]
	v1, ok := argMinDensity(a1, density)
	if !ok {
		return CircumcentreResult{EdgeFlag: EdgeFlagDegenerate}
	}

	m := intersect(a1, adj[v1])
	v2, ok := argMinDensity(m, density)
	if !ok {
		return CircumcentreResult{EdgeFlag: EdgeFlagDegenerate}
	}

	fSet := intersect(m, adj[v2])
	v3, ok := argMinDensity(fSet, density)
	if !ok {
		return CircumcentreResult{EdgeFlag: EdgeFlagDegenerate}
	}

	p := [4]Position{pos[core], pos[v1], pos[v2], pos[v3]}
	c := circumcentre(p)
	return CircumcentreResult{Position: c, EdgeFlag: EdgeFlagOK}
}

func argMinDensity(candidates []int, density []float64) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if density[c] < density[best] {
			best = c
		}
	}
	return best, true
}

// intersect returns the elements common to both slices.
func intersect(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	var out []int
	for _, x := range a {
		if _, ok := set[x]; ok {
			out = append(out, x)
		}
	}
	return out
}

// circumcentre solves the bordered Gram system from spec §4.I step 4:
//
//	[2 P Pᵀ | 1; 1ᵀ | 0] [lambda; mu] = [diag(P Pᵀ); 1]
//	circumcentre = lambdaᵀ P
func circumcentre(p [4]Position) Position {
	n := 4
	rows := [4][3]float64{
		{p[0].X, p[0].Y, p[0].Z},
		{p[1].X, p[1].Y, p[1].Z},
		{p[2].X, p[2].Y, p[2].Z},
		{p[3].X, p[3].Y, p[3].Z},
	}

	a := mat.NewDense(n+1, n+1, nil)
	b := mat.NewVecDense(n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dot := rows[i][0]*rows[j][0] + rows[i][1]*rows[j][1] + rows[i][2]*rows[j][2]
			a.Set(i, j, 2*dot)
		}
		a.Set(i, n, 1)
		a.Set(n, i, 1)
		selfDot := rows[i][0]*rows[i][0] + rows[i][1]*rows[i][1] + rows[i][2]*rows[i][2]
		b.SetVec(i, selfDot)
	}
	a.Set(n, n, 0)
	b.SetVec(n, 1)

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		// Degenerate (coplanar/collinear) configuration: fall back to the
		// unweighted centroid rather than propagating a solver error into
		// a geometric position.
		return Position{
			X: (rows[0][0] + rows[1][0] + rows[2][0] + rows[3][0]) / 4,
			Y: (rows[0][1] + rows[1][1] + rows[2][1] + rows[3][1]) / 4,
			Z: (rows[0][2] + rows[1][2] + rows[2][2] + rows[3][2]) / 4,
		}
	}

	var cx, cy, cz float64
	for i := 0; i < n; i++ {
		lambda := x.AtVec(i)
		cx += lambda * rows[i][0]
		cy += lambda * rows[i][1]
		cz += lambda * rows[i][2]
	}
	return Position{X: cx, Y: cy, Z: cz}
}

// UnwrapForPeriodic shifts each vertex whose coordinate difference from
// the core tracer exceeds L/2 by the appropriate multiple of L, as spec
// §4.I step 5 requires before solving in box mode.
func UnwrapForPeriodic(core Position, others []Position, L float64) []Position {
	out := make([]Position, len(others))
	adjustAxis := func(c, v float64) float64 {
		d := v - c
		if d > L/2 {
			return v - L
		}
		if d < -L/2 {
			return v + L
		}
		return v
	}
	for i, o := range others {
		out[i] = Position{
			X: adjustAxis(core.X, o.X),
			Y: adjustAxis(core.Y, o.Y),
			Z: adjustAxis(core.Z, o.Z),
		}
	}
	return out
}

// WrapPosition wraps a single point into [0, L) on every axis.
func WrapPosition(p Position, L float64) Position {
	wrap := func(v float64) float64 {
		for v < 0 {
			v += L
		}
		for v >= L {
			v -= L
		}
		return v
	}
	return Position{X: wrap(p.X), Y: wrap(p.Y), Z: wrap(p.Z)}
}

// SurveySkyResult is the outcome of converting a box-frame centre into
// observer-frame sky coordinates (spec §4.I step 6).
type SurveySkyResult struct {
	RA, Dec, Redshift, R float64
	EdgeFlag             int
}

// ToSurveySky converts a box-frame centre to sky coordinates and
// validates it against the survey's radial and angular footprint. maskAt
// should return the mask completeness at (RA, Dec); it returns 0 outside
// the surveyed footprint.
func ToSurveySky(centre Position, L, rNear, rFar float64, cosmo skygeom.Cosmology, maskAt func(ra, dec float64) float64) SurveySkyResult {
	ox, oy, oz := skygeom.BoxToObserver(centre.X, centre.Y, centre.Z, L)
	ra, dec, z := skygeom.XYZToRadecZ(ox, oy, oz, cosmo)
	r := math.Sqrt(ox*ox + oy*oy + oz*oz)

	if r < rNear || r > rFar || maskAt(ra, dec) <= 0 {
		return SurveySkyResult{EdgeFlag: EdgeFlagDegenerate}
	}
	return SurveySkyResult{RA: ra, Dec: dec, Redshift: z, R: r, EdgeFlag: EdgeFlagOK}
}

// VoidBarycentre computes the volume-weighted average of member-tracer
// positions, in a frame centred on the core tracer to handle periodic
// wrap additively per axis (spec §4.I).
func VoidBarycentre(core Position, members []Position, weights []float64, L float64) Position {
	shifted := UnwrapForPeriodic(core, members, L)
	var wx, wy, wz, wsum float64
	for i, p := range shifted {
		w := weights[i]
		wx += w * (p.X - core.X)
		wy += w * (p.Y - core.Y)
		wz += w * (p.Z - core.Z)
		wsum += w
	}
	if wsum == 0 {
		return WrapPosition(core, L)
	}
	return WrapPosition(Position{X: core.X + wx/wsum, Y: core.Y + wy/wsum, Z: core.Z + wz/wsum}, L)
}

// ClusterCentre returns the position of the tracer named as core_particle
// (spec §4.I: "highest-density member of the seed zone").
func ClusterCentre(pos []Position, coreParticle int) Position {
	return pos[coreParticle]
}

// DerivedFields are the shape/geometry fields common to voids and
// clusters (spec §4.I, §3).
type DerivedFields struct {
	REff     float64
	ThetaEff float64 // degrees; survey mode only (0 in box mode)
	Lambda   float64
}

// VoidShapeExponent and ClusterShapeExponent are the p exponents in
// lambda = (rho_bar/rho_global - 1) * R_eff^p (spec §3).
const (
	VoidShapeExponent    = 1.2
	ClusterShapeExponent = 1.6
)

// ComputeDerivedFields implements spec §3's R_eff/theta_eff/lambda and
// §4.I's theta_eff = R_eff/r definition.
func ComputeDerivedFields(volumeTotal, rhoBar, rhoGlobal, r float64, shapeExponent float64, survey bool) DerivedFields {
	rEff := math.Cbrt(3 * volumeTotal / (4 * math.Pi))
	lambda := (rhoBar/rhoGlobal - 1) * math.Pow(rEff, shapeExponent)
	var theta float64
	if survey && r > 0 {
		theta = (rEff / r) * 180.0 / math.Pi
	}
	return DerivedFields{REff: rEff, ThetaEff: theta, Lambda: lambda}
}
