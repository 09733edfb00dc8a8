package healpix

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/HAWinther/revolver-go/internal/monitoring"
)

// Mask is a RING-ordered completeness map in [0,1] per pixel, implementing
// the Mask & Boundary component (spec §4.C). Its flat Values slice mirrors
// the teacher's BackgroundGrid.Cells layout (internal/lidar/arena.go): one
// value per index, no per-pixel allocation.
type Mask struct {
	NSide  int
	Values []float64
}

// NewMask allocates an all-zero mask at the given resolution.
func NewMask(nside int) *Mask {
	return &Mask{NSide: nside, Values: make([]float64, NPix(nside))}
}

// FSky returns the effective sky fraction: (sum of mask values) / N_pix.
func (m *Mask) FSky() float64 {
	if len(m.Values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.Values {
		sum += v
	}
	return sum / float64(len(m.Values))
}

// At returns the completeness value for the pixel containing (RA, Dec).
func (m *Mask) At(raDeg, decDeg float64) float64 {
	pix := Ang2Pix(m.NSide, raDeg, decDeg)
	return m.Values[pix]
}

// SynthesizeMask bins tracer (RA, Dec) pairs into HEALPix pixels at the
// given resolution (default 64), sets occupied pixels to 1, and returns
// the mask plus its effective f_sky (spec §4.C, recoverable-config:
// missing mask file -> synthesize approximate mask).
func SynthesizeMask(raDeg, decDeg []float64, nside int) (*Mask, float64) {
	m := NewMask(nside)
	for i := range raDeg {
		pix := Ang2Pix(nside, raDeg[i], decDeg[i])
		m.Values[pix] = 1
	}
	fsky := m.FSky()
	monitoring.Diagf("mask: synthesized nside=%d, f_sky=%.6f", nside, fsky)
	return m, fsky
}

// WriteText writes the mask as plain text: nside, then one value per line
// in pixel order. `WriteMaskFITS` is the production format per spec §6;
// this text form is kept for sample-info-style round trips and tests,
// analogous to how the teacher persists BackgroundGrid snapshots as
// JSON+blob rather than the raw sensor wire format.
func (m *Mask) WriteText(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("healpix: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "%d\n", m.NSide); err != nil {
		return err
	}
	for _, v := range m.Values {
		if _, err := fmt.Fprintf(w, "%.17g\n", v); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadMaskText inverts WriteText.
func ReadMaskText(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("healpix: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewScanner(f)
	if !r.Scan() {
		return nil, fmt.Errorf("healpix: %s: missing header", path)
	}
	var nside int
	if _, err := fmt.Sscanf(r.Text(), "%d", &nside); err != nil {
		return nil, fmt.Errorf("healpix: %s: bad header: %w", path, err)
	}
	m := NewMask(nside)
	for i := 0; i < len(m.Values); i++ {
		if !r.Scan() {
			return nil, fmt.Errorf("healpix: %s: truncated map (got %d of %d values)", path, i, len(m.Values))
		}
		var v float64
		if _, err := fmt.Sscanf(r.Text(), "%g", &v); err != nil {
			return nil, fmt.Errorf("healpix: %s: bad value at pixel %d: %w", path, i, err)
		}
		m.Values[i] = v
	}
	return m, nil
}

// UpgradeTo returns a copy of m resampled to newNSide via UDGrade.
func (m *Mask) UpgradeTo(newNSide int) *Mask {
	return &Mask{NSide: newNSide, Values: UDGrade(m.Values, m.NSide, newNSide)}
}

// boundaryRingCount returns ceil(2 + nside/128), the ad hoc iteration
// count from spec.md §4.C, preserved verbatim per §9.
func boundaryRingCount(nside int) int {
	return int(math.Ceil(2 + float64(nside)/128.0))
}

// Boundary is the derived HEALPix map of outer-collar pixels (spec §4.C):
// 1 outside the mask but within the boundary thickness of a filled pixel,
// 0 elsewhere.
type Boundary struct {
	NSide int
	Flag  []int // 0 or 1 per pixel
	FSky  float64
}

// FindBoundary computes the boundary collar from a mask, per spec §4.C.
// The mask is upgraded to n_side=512 before the ring growth if it is
// coarser than that, then the flag map is downgraded to n_side=128
// whenever the working resolution exceeds 128.
func FindBoundary(mask *Mask, completenessLimit float64) *Boundary {
	const workingNSide = 512
	const finalNSide = 128

	work := mask
	if mask.NSide < workingNSide {
		work = mask.UpgradeTo(workingNSide)
	}

	nside := work.NSide
	npix := NPix(nside)
	filled := make([]bool, npix)
	for i, v := range work.Values {
		filled[i] = v > completenessLimit
	}

	flag := make([]int, npix)
	rings := boundaryRingCount(nside)

	// iteration k=0: seed set = filled pixels; mark unfilled neighbours
	// flag=2 (will be reset to 0 at the end -- the "closest ring" is
	// excluded per spec, yielding a collar that doesn't touch the mask).
	frontier := make([]int, 0, npix/4)
	for i, f := range filled {
		if f {
			frontier = append(frontier, i)
		}
	}

	for k := 0; k < rings; k++ {
		next := make([]int, 0, len(frontier))
		for _, pix := range frontier {
			for _, nb := range GetAllNeighbours(nside, pix) {
				if filled[nb] || flag[nb] != 0 {
					continue
				}
				if k == 0 {
					flag[nb] = 2
				} else {
					flag[nb] = 1
				}
				next = append(next, nb)
			}
		}
		frontier = next
	}

	for i, f := range flag {
		if f == 2 {
			flag[i] = 0
		}
	}

	b := &Boundary{NSide: nside, Flag: flag, FSky: work.FSky()}
	if nside > finalNSide {
		b = b.downgradeFlagsTo(finalNSide)
	}
	monitoring.Diagf("boundary: nside=%d rings=%d", b.NSide, rings)
	return b
}

// downgradeFlagsTo resamples the boundary flag map, treating any
// nonzero-covering pixel as flagged.
func (b *Boundary) downgradeFlagsTo(newNSide int) *Boundary {
	asFloat := make([]float64, len(b.Flag))
	for i, f := range b.Flag {
		asFloat[i] = float64(f)
	}
	down := UDGrade(asFloat, b.NSide, newNSide)
	flag := make([]int, len(down))
	for i, v := range down {
		if v > 0 {
			flag[i] = 1
		}
	}
	return &Boundary{NSide: newNSide, Flag: flag, FSky: b.FSky}
}

// Pixels returns the list of boundary pixel indices (flag == 1).
func (b *Boundary) Pixels() []int {
	var out []int
	for i, f := range b.Flag {
		if f == 1 {
			out = append(out, i)
		}
	}
	return out
}
