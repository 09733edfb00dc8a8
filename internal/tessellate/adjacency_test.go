package tessellate

import (
	"path/filepath"
	"sort"
	"testing"
)

func TestReadWriteAdjacency_SymmetrizesOneDirectionEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.adj")
	// Only the i<j direction is written: 0-1, 0-2, 1-2.
	edges := map[int][]int{
		0: {1, 2},
		1: {2},
	}
	if err := WriteAdjacency(path, 3, edges); err != nil {
		t.Fatalf("WriteAdjacency: %v", err)
	}

	adj, err := ReadAdjacency(path)
	if err != nil {
		t.Fatalf("ReadAdjacency: %v", err)
	}

	for _, tc := range []struct {
		id   int
		want []int
	}{
		{0, []int{1, 2}},
		{1, []int{0, 2}},
		{2, []int{0, 1}},
	} {
		got := append([]int(nil), adj[tc.id]...)
		sort.Ints(got)
		if len(got) != len(tc.want) {
			t.Fatalf("adj[%d] = %v, want %v", tc.id, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("adj[%d] = %v, want %v", tc.id, got, tc.want)
			}
		}
	}
}
