package tracer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// LoadBinaryTabular reads a binary-tabular tracer catalogue (spec §4.A's
// "binary tabular" input format, the Go-native counterpart of the
// original tool's `.npy` ingest path): little-endian int32 nRows, int32
// nCols, then nRows*nCols float64 values in row-major order. posnCols
// selects the three position columns out of the nCols stored per row,
// exactly as for the text loader.
func LoadBinaryTabular(path string, posnCols [3]int, mode Mode) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracer: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var nRows, nCols int32
	if err := binary.Read(r, binary.LittleEndian, &nRows); err != nil {
		return nil, fmt.Errorf("tracer: %s: read row count: %w", path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nCols); err != nil {
		return nil, fmt.Errorf("tracer: %s: read column count: %w", path, err)
	}
	if nCols < 3 {
		return nil, fmt.Errorf("tracer: %s: expected >=3 position columns, got %d", path, nCols)
	}
	for i, col := range posnCols {
		if col < 0 || col >= int(nCols) {
			return nil, fmt.Errorf("tracer: %s: posn_cols[%d]=%d out of range for %d columns", path, i, col, nCols)
		}
	}

	t := newTableForMode(mode)
	row := make([]float64, nCols)
	for i := 0; i < int(nRows); i++ {
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("tracer: %s: read row %d: %w", path, i, err)
		}
		appendRow(t, mode, row[posnCols[0]], row[posnCols[1]], row[posnCols[2]])
	}
	return t, nil
}
