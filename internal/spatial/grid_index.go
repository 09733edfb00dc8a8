// Package spatial provides a regular-grid nearest-neighbour index over
// three-dimensional points, used by buffer synthesis (§4.E) to reject
// guard-grid candidates that fall too close to an existing tracer or
// buffer point.
package spatial

import "math"

// EstimatedPointsPerCell sizes the initial bucket map.
const EstimatedPointsPerCell = 4

// GridIndex buckets points into fixed-size cubic cells for O(1)-amortised
// nearest-neighbour queries within a bounded radius. It optionally wraps
// queries with a periodic period P (box mode); P == 0 disables wrapping.
type GridIndex struct {
	CellSize float64
	Period   float64 // 0 disables periodic wrap
	grid     map[int64][]int
	points   [][3]float64
}

// NewGridIndex creates an index with the given cell size. Period, if
// non-zero, is the periodic box side used to wrap coordinate differences
// (mirrors the PBC handling required by §4.E's guard-grid KD-tree).
func NewGridIndex(cellSize, period float64) *GridIndex {
	return &GridIndex{CellSize: cellSize, Period: period, grid: make(map[int64][]int)}
}

// Build populates the index from a set of points.
func (g *GridIndex) Build(points [][3]float64) {
	g.points = points
	g.grid = make(map[int64][]int, len(points)/EstimatedPointsPerCell+1)
	for i, p := range points {
		cid := g.cellID(p[0], p[1], p[2])
		g.grid[cid] = append(g.grid[cid], i)
	}
}

// cellID packs three signed cell coordinates into one key via nested
// Szudzik pairing (zig-zag encoded to handle negatives).
func (g *GridIndex) cellID(x, y, z float64) int64 {
	cx := szudzikZigzag(int64(math.Floor(x / g.CellSize)))
	cy := szudzikZigzag(int64(math.Floor(y / g.CellSize)))
	cz := szudzikZigzag(int64(math.Floor(z / g.CellSize)))
	return szudzikPair(szudzikPair(cx, cy), cz)
}

func szudzikZigzag(v int64) int64 {
	if v >= 0 {
		return 2 * v
	}
	return -2*v - 1
}

func szudzikPair(a, b int64) int64 {
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// wrapDelta returns d adjusted into (-Period/2, Period/2] when periodic
// wrapping is enabled; otherwise it returns d unchanged.
func (g *GridIndex) wrapDelta(d float64) float64 {
	if g.Period <= 0 {
		return d
	}
	for d > g.Period/2 {
		d -= g.Period
	}
	for d <= -g.Period/2 {
		d += g.Period
	}
	return d
}

// numCellsPerAxis returns the number of cells spanning one period, or 0
// when periodic wrapping is disabled.
func (g *GridIndex) numCellsPerAxis() int64 {
	if g.Period <= 0 {
		return 0
	}
	n := int64(math.Ceil(g.Period / g.CellSize))
	if n < 1 {
		n = 1
	}
	return n
}

// wrapCell folds a signed cell coordinate back into [0, n) when periodic
// wrapping is enabled (n > 0); otherwise it returns c unchanged.
func wrapCell(c, n int64) int64 {
	if n <= 0 {
		return c
	}
	c %= n
	if c < 0 {
		c += n
	}
	return c
}

// NearestDistance returns the Euclidean distance from p to the closest
// indexed point, searching the 3x3x3 neighbourhood of cells around p. The
// neighbourhood's cell offsets are wrapped modulo the per-axis cell count
// before the bucket lookup when periodic wrapping is enabled, so a query
// near one box face finds points bucketed near the opposite face (§4.E's
// "KD-tree with periodic wrap of period L"). Points outside that
// neighbourhood are not considered: returns +Inf if the index is empty or
// no indexed point lies in the 3x3x3 cells around p.
func (g *GridIndex) NearestDistance(p [3]float64) float64 {
	best := math.Inf(1)
	cx := int64(math.Floor(p[0] / g.CellSize))
	cy := int64(math.Floor(p[1] / g.CellSize))
	cz := int64(math.Floor(p[2] / g.CellSize))
	n := g.numCellsPerAxis()

	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				ncx := wrapCell(cx+dx, n)
				ncy := wrapCell(cy+dy, n)
				ncz := wrapCell(cz+dz, n)
				cid := szudzikPair(szudzikPair(szudzikZigzag(ncx), szudzikZigzag(ncy)), szudzikZigzag(ncz))
				for _, idx := range g.grid[cid] {
					q := g.points[idx]
					ddx := g.wrapDelta(q[0] - p[0])
					ddy := g.wrapDelta(q[1] - p[1])
					ddz := g.wrapDelta(q[2] - p[2])
					d2 := ddx*ddx + ddy*ddy + ddz*ddz
					if d2 < best {
						best = d2
					}
				}
			}
		}
	}
	if math.IsInf(best, 1) {
		return best
	}
	return math.Sqrt(best)
}
