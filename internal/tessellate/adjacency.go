package tessellate

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// ReadAdjacency parses handle.adj: int32 N, then an int32 deg[N] array (a
// per-particle degree count the tessellator writes up front, ahead of and
// redundant with the per-particle degree read below; confirmed against
// python_tools/zobov.py's `nadj = np.fromfile(..., count=npfromadj)` read
// immediately after N), then for i = 0..N-1 an int32 degree k_i followed
// by k_i int32 neighbour indices (spec §4, "Adjacency file"). The file
// records only one direction per pair (i, j), i<j; the symmetric closure
// is materialized here so callers never need to check both directions.
func ReadAdjacency(path string) (map[int][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tessellate: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("tessellate: %s: read header: %w", path, err)
	}

	degArr := make([]int32, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, degArr); err != nil {
			return nil, fmt.Errorf("tessellate: %s: read deg[N] array: %w", path, err)
		}
	}

	adj := make(map[int][]int, n)
	for i := 0; i < int(n); i++ {
		var k int32
		if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
			return nil, fmt.Errorf("tessellate: %s: read degree for tracer %d: %w", path, i, err)
		}
		neigh := make([]int32, k)
		if k > 0 {
			if err := binary.Read(r, binary.LittleEndian, neigh); err != nil {
				return nil, fmt.Errorf("tessellate: %s: read neighbours for tracer %d: %w", path, i, err)
			}
		}
		for _, j := range neigh {
			adj[i] = append(adj[i], int(j))
			adj[int(j)] = append(adj[int(j)], i)
		}
	}
	return adj, nil
}

// WriteAdjacency inverts ReadAdjacency's one-direction-per-pair encoding,
// used by tests to build fixtures without shelling out to a tessellator.
func WriteAdjacency(path string, n int, edges map[int][]int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tessellate: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, int32(n)); err != nil {
		return fmt.Errorf("tessellate: %s: write header: %w", path, err)
	}
	degArr := make([]int32, n)
	for i := 0; i < n; i++ {
		degArr[i] = int32(len(edges[i]))
	}
	if n > 0 {
		if err := binary.Write(w, binary.LittleEndian, degArr); err != nil {
			return fmt.Errorf("tessellate: %s: write deg[N] array: %w", path, err)
		}
	}
	for i := 0; i < n; i++ {
		neigh := edges[i]
		if err := binary.Write(w, binary.LittleEndian, int32(len(neigh))); err != nil {
			return fmt.Errorf("tessellate: %s: write degree: %w", path, err)
		}
		for _, j := range neigh {
			if err := binary.Write(w, binary.LittleEndian, int32(j)); err != nil {
				return fmt.Errorf("tessellate: %s: write neighbour: %w", path, err)
			}
		}
	}
	return w.Flush()
}
