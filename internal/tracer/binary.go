package tracer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WriteBinary serializes the table to the tessellation-input format
// (spec §6, handle_pos.dat): little-endian int32 N_total, then float64
// arrays x[N], y[N], z[N], and — in survey mode — RA[N], Dec[N], z[N].
func (t *Table) WriteBinary(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tracer: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := int32(t.NTotal())
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return fmt.Errorf("tracer: write header: %w", err)
	}
	for _, col := range [][]float64{t.X, t.Y, t.Z} {
		if err := writeFloat64Column(w, col); err != nil {
			return err
		}
	}
	if t.Survey() {
		for _, col := range [][]float64{t.RA, t.Dec, t.Redshift} {
			if err := writeFloat64Column(w, col); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writeFloat64Column(w io.Writer, col []float64) error {
	if err := binary.Write(w, binary.LittleEndian, col); err != nil {
		return fmt.Errorf("tracer: write column: %w", err)
	}
	return nil
}

// ReadBinary inverts WriteBinary exactly. survey selects whether RA/Dec/z
// columns are expected after x/y/z. A header N mismatch against
// expectedN (if non-negative) is fatal, per spec §7 fatal-consistency.
func ReadBinary(path string, survey bool, expectedN int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracer: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("tracer: read header: %w", err)
	}
	if expectedN >= 0 && int(n) != expectedN {
		return nil, fmt.Errorf("tracer: N mismatch: header=%d expected=%d", n, expectedN)
	}

	t := &Table{NTracers: int(n)}
	t.X, err = readFloat64Column(r, int(n))
	if err != nil {
		return nil, err
	}
	t.Y, err = readFloat64Column(r, int(n))
	if err != nil {
		return nil, err
	}
	t.Z, err = readFloat64Column(r, int(n))
	if err != nil {
		return nil, err
	}
	if survey {
		t.RA, err = readFloat64Column(r, int(n))
		if err != nil {
			return nil, err
		}
		t.Dec, err = readFloat64Column(r, int(n))
		if err != nil {
			return nil, err
		}
		t.Redshift, err = readFloat64Column(r, int(n))
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func readFloat64Column(r io.Reader, n int) ([]float64, error) {
	col := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, col); err != nil {
		return nil, fmt.Errorf("tracer: read column: %w", err)
	}
	return col, nil
}
