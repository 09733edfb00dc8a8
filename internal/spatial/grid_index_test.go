package spatial

import (
	"math"
	"testing"
)

func TestGridIndex_NearestDistance(t *testing.T) {
	idx := NewGridIndex(1.0, 0)
	idx.Build([][3]float64{{0, 0, 0}, {5, 5, 5}})

	if d := idx.NearestDistance([3]float64{0.1, 0, 0}); math.Abs(d-0.1) > 1e-9 {
		t.Errorf("NearestDistance = %v, want ~0.1", d)
	}
	if d := idx.NearestDistance([3]float64{100, 100, 100}); d <= 1 {
		t.Errorf("NearestDistance = %v, want a large distance", d)
	}
}

func TestGridIndex_EmptyIndex(t *testing.T) {
	idx := NewGridIndex(1.0, 0)
	idx.Build(nil)
	if d := idx.NearestDistance([3]float64{0, 0, 0}); !math.IsInf(d, 1) {
		t.Errorf("NearestDistance on empty index = %v, want +Inf", d)
	}
}

func TestGridIndex_PeriodicWrap(t *testing.T) {
	const L = 10.0
	idx := NewGridIndex(1.0, L)
	// A point sitting just across the boundary from (0.1, 0.1, 0.1).
	idx.Build([][3]float64{{9.9, 9.9, 9.9}})

	d := idx.NearestDistance([3]float64{0.1, 0.1, 0.1})
	want := math.Sqrt(3 * 0.2 * 0.2)
	if math.Abs(d-want) > 1e-9 {
		t.Errorf("NearestDistance with wrap = %v, want %v", d, want)
	}
}
