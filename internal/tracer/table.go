// Package tracer implements the Tracer Store (spec §4.A): the in-memory
// tracer table and its binary tessellation-input serialization.
package tracer

import "fmt"

// Table is an ordered, struct-of-arrays tracer table: N_tracers real
// tracers followed by N_mocks buffer particles (spec §3). Box coordinates
// live in [0, L); observer coordinates live in [-L/2, L/2).
//
// Survey mode populates RA/Dec/Z alongside X/Y/Z; box mode leaves them
// empty. Buffer particles carry Redshift = -1 as a sentinel (spec §3) and, for
// guards, RA = Dec = -60.
type Table struct {
	X, Y, Z []float64

	// Survey-mode sky coordinates, parallel to X/Y/Z. Empty in box mode.
	RA, Dec, Redshift []float64

	NTracers int // count of real tracers, always a prefix of the arrays
	NMocks   int // count of synthetic buffer particles appended after NTracers
}

// NTotal returns N_tracers + N_mocks.
func (t *Table) NTotal() int { return t.NTracers + t.NMocks }

// Survey reports whether this table carries sky coordinates.
func (t *Table) Survey() bool { return len(t.RA) > 0 }

// NewBoxTable creates an empty table for box-mode (Cartesian-only) tracers.
func NewBoxTable() *Table {
	return &Table{}
}

// NewSurveyTable creates an empty table with sky-coordinate arrays enabled.
func NewSurveyTable() *Table {
	return &Table{RA: []float64{}, Dec: []float64{}, Redshift: []float64{}}
}

// AppendTracer appends one real tracer. It must be called before any
// AppendBuffer call; buffer insertion fixes NTracers per spec §3.
func (t *Table) AppendTracer(x, y, z float64) {
	t.X = append(t.X, x)
	t.Y = append(t.Y, y)
	t.Z = append(t.Z, z)
	t.NTracers++
}

// AppendSurveyTracer appends one real tracer with sky coordinates.
func (t *Table) AppendSurveyTracer(x, y, z, ra, dec, redshift float64) {
	t.AppendTracer(x, y, z)
	t.RA = append(t.RA, ra)
	t.Dec = append(t.Dec, dec)
	t.Redshift = append(t.Redshift, redshift)
}

// AppendBuffer appends one synthetic buffer particle (cap, boundary, or
// guard). Redshift is always the -1 sentinel (spec §3).
func (t *Table) AppendBuffer(x, y, z, ra, dec float64) {
	t.X = append(t.X, x)
	t.Y = append(t.Y, y)
	t.Z = append(t.Z, z)
	if t.Survey() {
		t.RA = append(t.RA, ra)
		t.Dec = append(t.Dec, dec)
		t.Redshift = append(t.Redshift, -1)
	}
	t.NMocks++
}

// WrapPeriodic maps every coordinate into [0, L) by adding or subtracting L
// once (spec §4.A). Box mode only.
func (t *Table) WrapPeriodic(L float64) {
	wrap := func(xs []float64) {
		for i, v := range xs {
			if v < 0 {
				xs[i] = v + L
			} else if v >= L {
				xs[i] = v - L
			}
		}
	}
	wrap(t.X)
	wrap(t.Y)
	wrap(t.Z)
}

// DedupeExact removes tracer rows (within the real-tracer prefix) that are
// equal on every stored column, keeping the first occurrence. It returns
// the number of rows removed. Survey mode only (spec §4.A); it is an error
// to call this after buffers have been appended.
func (t *Table) DedupeExact() (int, error) {
	if t.NMocks != 0 {
		return 0, fmt.Errorf("tracer: DedupeExact called after buffer insertion (NMocks=%d)", t.NMocks)
	}

	type key struct{ x, y, z, ra, dec, zr float64 }
	seen := make(map[key]struct{}, t.NTracers)

	keepX := t.X[:0:0]
	keepY := t.Y[:0:0]
	keepZ := t.Z[:0:0]
	var keepRA, keepDec, keepZr []float64
	survey := t.Survey()
	if survey {
		keepRA = t.RA[:0:0]
		keepDec = t.Dec[:0:0]
		keepZr = t.Redshift[:0:0]
	}

	removed := 0
	for i := 0; i < t.NTracers; i++ {
		var k key
		if survey {
			k = key{t.X[i], t.Y[i], t.Z[i], t.RA[i], t.Dec[i], t.Redshift[i]}
		} else {
			k = key{x: t.X[i], y: t.Y[i], z: t.Z[i]}
		}
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		keepX = append(keepX, t.X[i])
		keepY = append(keepY, t.Y[i])
		keepZ = append(keepZ, t.Z[i])
		if survey {
			keepRA = append(keepRA, t.RA[i])
			keepDec = append(keepDec, t.Dec[i])
			keepZr = append(keepZr, t.Redshift[i])
		}
	}

	t.X, t.Y, t.Z = keepX, keepY, keepZ
	if survey {
		t.RA, t.Dec, t.Redshift = keepRA, keepDec, keepZr
	}
	t.NTracers -= removed
	return removed, nil
}
