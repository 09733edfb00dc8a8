package reweight

import (
	"math"
	"testing"

	"github.com/HAWinther/revolver-go/internal/healpix"
)

func TestApply_ScalesNonEdgeVolumes(t *testing.T) {
	vols := []float64{2, 4, EdgeRawValue, 8}
	r := &Reweighter{}
	res, err := r.Apply(vols, Params{RhoTracer: 1e-3, L: 100, NTotal: 4})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	scale := 1e-3 * 100 * 100 * 100 / 4
	if math.Abs(res.Volumes[0]-2*scale) > 1e-9 {
		t.Errorf("Volumes[0] = %v, want %v", res.Volumes[0], 2*scale)
	}
	if !res.EdgeMask[2] {
		t.Error("expected cell 2 to be flagged as edge")
	}
	if res.NNonEdge != 3 {
		t.Errorf("NNonEdge = %d, want 3", res.NNonEdge)
	}
}

func TestApply_FatalOnZeroNonEdgeVolume(t *testing.T) {
	vols := []float64{0, 1}
	r := &Reweighter{}
	_, err := r.Apply(vols, Params{RhoTracer: 1, L: 1, NTotal: 2})
	if err == nil {
		t.Fatal("expected an error when a non-edge cell reweights to zero")
	}
}

func TestApply_AngularWeights(t *testing.T) {
	mask := healpix.NewMask(8)
	for i := range mask.Values {
		mask.Values[i] = 0.5
	}
	vols := []float64{2, 4}
	r := &Reweighter{}
	res, err := r.Apply(vols, Params{
		RhoTracer: 1, L: 1, NTotal: 2,
		ApplyAngularWeights: true,
		Mask:                mask,
		TracerRA:            []float64{10, 20},
		TracerDec:           []float64{5, -5},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// scale = RhoTracer*L^3/NTotal = 0.5, then the 0.5 mask weight.
	if math.Abs(res.Volumes[0]-0.5) > 1e-9 || math.Abs(res.Volumes[1]-1) > 1e-9 {
		t.Errorf("Volumes = %v, want [0.5 1]", res.Volumes)
	}
}

func TestApply_ZWeights(t *testing.T) {
	z := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	f := []float64{1, 1, 1, 1, 1}
	vols := []float64{10, 20}
	r := &Reweighter{}
	res, err := r.Apply(vols, Params{
		RhoTracer: 1, L: 1, NTotal: 2,
		ApplyZWeights: true,
		SelectionZ:    z,
		SelectionF:    f,
		TracerZ:       []float64{0.2, 0.35},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// scale = RhoTracer*L^3/NTotal = 0.5; a flat f(z)=1 leaves it unchanged.
	if math.Abs(res.Volumes[0]-5) > 0.05 || math.Abs(res.Volumes[1]-10) > 0.05 {
		t.Errorf("Volumes = %v, want close to [5 10] for a flat f(z)=1", res.Volumes)
	}
}

func TestClusterVolumes_ResetsEdgeCellsToPlainSentinel(t *testing.T) {
	vols := []float64{1, EdgeRawValue, 3}
	mask := []bool{false, true, false}
	out := ClusterVolumes(vols, mask)
	if out[1] != EdgeSentinel {
		t.Errorf("out[1] = %v, want %v", out[1], EdgeSentinel)
	}
	if out[0] != 1 || out[2] != 3 {
		t.Errorf("non-edge cells altered: %v", out)
	}
}

func TestSavitzkyGolay_PreservesLinearTrend(t *testing.T) {
	n := 200
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = 2.0 + 0.5*float64(i)
	}
	smoothed := SavitzkyGolay(ys, 21, 3)
	for i := 30; i < n-30; i++ {
		if math.Abs(smoothed[i]-ys[i]) > 1e-6 {
			t.Errorf("smoothed[%d] = %v, want %v (SG should reproduce a polynomial of degree <= order exactly)", i, smoothed[i], ys[i])
		}
	}
}

func TestSavitzkyGolay_SmoothsNoise(t *testing.T) {
	n := 300
	ys := make([]float64, n)
	for i := range ys {
		noise := 0.0
		if i%2 == 0 {
			noise = 1
		} else {
			noise = -1
		}
		ys[i] = 10 + noise
	}
	smoothed := SavitzkyGolay(ys, 101, 3)
	var variance float64
	for i := 50; i < n-50; i++ {
		variance += (smoothed[i] - 10) * (smoothed[i] - 10)
	}
	if variance > float64(n) {
		t.Errorf("smoothed output did not reduce high-frequency noise: variance sum=%v", variance)
	}
}
