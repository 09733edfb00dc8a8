package centre

import (
	"math"
	"testing"
)

func TestCircumcentre_RegularTetrahedron(t *testing.T) {
	// A regular tetrahedron centred at the origin: its circumcentre is the
	// origin itself.
	p := [4]Position{
		{1, 1, 1},
		{1, -1, -1},
		{-1, 1, -1},
		{-1, -1, 1},
	}
	c := circumcentre(p)
	if math.Abs(c.X) > 1e-9 || math.Abs(c.Y) > 1e-9 || math.Abs(c.Z) > 1e-9 {
		t.Errorf("circumcentre = %+v, want (0,0,0)", c)
	}
}

func TestVoidCircumcentre_DegenerateWhenNoCommonNeighbour(t *testing.T) {
	adj := Adjacency{
		0: {1},
		1: {0},
	}
	density := []float64{1, 0.5}
	pos := []Position{{0, 0, 0}, {1, 0, 0}}
	res := VoidCircumcentre(0, adj, density, pos)
	if res.EdgeFlag != EdgeFlagDegenerate {
		t.Errorf("EdgeFlag = %d, want %d", res.EdgeFlag, EdgeFlagDegenerate)
	}
}

func TestVoidCircumcentre_WellDefinedBasin(t *testing.T) {
	// core=0 has neighbours {1,2,3}; pick the full mutually-adjacent clique
	// so every intersection step succeeds.
	adj := Adjacency{
		0: {1, 2, 3},
		1: {0, 2, 3},
		2: {0, 1, 3},
		3: {0, 1, 2},
	}
	density := []float64{1, 0.1, 0.2, 0.3}
	pos := []Position{
		{0, 0, 0},
		{1, 1, 1},
		{1, -1, -1},
		{-1, 1, -1},
	}
	res := VoidCircumcentre(0, adj, density, pos)
	if res.EdgeFlag != EdgeFlagOK {
		t.Fatalf("EdgeFlag = %d, want %d", res.EdgeFlag, EdgeFlagOK)
	}
}

func TestUnwrapForPeriodic_ShiftsAcrossBoundary(t *testing.T) {
	core := Position{X: 1, Y: 1, Z: 1}
	others := []Position{{X: 99, Y: 1, Z: 1}}
	out := UnwrapForPeriodic(core, others, 100)
	if math.Abs(out[0].X-(-1)) > 1e-9 {
		t.Errorf("unwrapped X = %v, want -1", out[0].X)
	}
}

func TestWrapPosition_WrapsIntoRange(t *testing.T) {
	p := WrapPosition(Position{X: -1, Y: 101, Z: 50}, 100)
	if p.X != 99 || p.Y != 1 || p.Z != 50 {
		t.Errorf("wrapped = %+v, want (99,1,50)", p)
	}
}

func TestVoidBarycentre_WeightedAverage(t *testing.T) {
	core := Position{X: 50, Y: 50, Z: 50}
	members := []Position{{40, 50, 50}, {60, 50, 50}}
	weights := []float64{1, 3}
	b := VoidBarycentre(core, members, weights, 100)
	// weighted mean relative to core: (1*(-10) + 3*(10))/4 = 5
	want := 55.0
	if math.Abs(b.X-want) > 1e-9 {
		t.Errorf("barycentre.X = %v, want %v", b.X, want)
	}
}

func TestClusterCentre_ReturnsCoreParticlePosition(t *testing.T) {
	pos := []Position{{1, 2, 3}, {4, 5, 6}}
	c := ClusterCentre(pos, 1)
	if c != (Position{4, 5, 6}) {
		t.Errorf("ClusterCentre = %+v, want (4,5,6)", c)
	}
}

func TestComputeDerivedFields_MatchesSphereVolumeFormula(t *testing.T) {
	vol := 4.0 / 3.0 * math.Pi * 1000.0 // R_eff should come out to 10
	d := ComputeDerivedFields(vol, 1, 1, 0, VoidShapeExponent, false)
	if math.Abs(d.REff-10) > 1e-6 {
		t.Errorf("REff = %v, want 10", d.REff)
	}
	if d.Lambda != 0 {
		t.Errorf("Lambda = %v, want 0 when rhoBar == rhoGlobal", d.Lambda)
	}
}

func TestComputeDerivedFields_ThetaEffOnlyInSurveyMode(t *testing.T) {
	d := ComputeDerivedFields(100, 1, 1, 500, VoidShapeExponent, false)
	if d.ThetaEff != 0 {
		t.Errorf("ThetaEff = %v, want 0 in box mode", d.ThetaEff)
	}
	d2 := ComputeDerivedFields(100, 1, 1, 500, VoidShapeExponent, true)
	if d2.ThetaEff <= 0 {
		t.Errorf("ThetaEff = %v, want > 0 in survey mode", d2.ThetaEff)
	}
}
