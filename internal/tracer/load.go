package tracer

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mode selects the coordinate schema expected from an input file.
type Mode int

const (
	// ModeBox expects whitespace-separated x y z columns.
	ModeBox Mode = iota
	// ModeSurvey expects whitespace-separated RA Dec z columns.
	ModeSurvey
)

// Format selects the on-disk catalogue encoding (spec §4.A: "reads plain
// text, binary tabular, or FITS").
type Format int

const (
	FormatText Format = iota
	FormatBinaryTabular
	FormatFITS
)

// DefaultPosnCols is the identity column selection: the first three
// columns of each row are the position columns.
var DefaultPosnCols = [3]int{0, 1, 2}

// Load dispatches to the format-specific loader. posnCols selects which
// three columns of a multi-column text or binary-tabular row hold the
// position data (spec §4.A's `posn_cols` parameter); it is ignored for
// FITS, whose RA/DEC/Z columns are addressed by name. Rows with fewer
// than 3 position columns are rejected.
func Load(path string, format Format, posnCols [3]int, mode Mode) (*Table, error) {
	switch format {
	case FormatFITS:
		return LoadFITS(path)
	case FormatBinaryTabular:
		return LoadBinaryTabular(path, posnCols, mode)
	default:
		return LoadTextCols(path, posnCols, mode)
	}
}

// LoadText reads a plain-text tracer catalogue using the default (first
// three columns) position selection. Box mode reads (x, y, z); survey
// mode reads (RA, Dec, z) and defers Cartesian conversion to the caller
// (the Sky Geometry component owns that transform).
func LoadText(path string, mode Mode) (*Table, error) {
	return LoadTextCols(path, DefaultPosnCols, mode)
}

// LoadTextCols reads a plain-text tracer catalogue: one row per tracer,
// whitespace-separated columns, selecting posnCols as the position
// columns (spec §4.A). Rows with fewer than 3 position columns are
// rejected (fatal-input).
func LoadTextCols(path string, posnCols [3]int, mode Mode) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracer: open %s: %w", path, err)
	}
	defer f.Close()

	t := newTableForMode(mode)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("tracer: %s:%d: expected >=3 position columns, got %d", path, lineNo, len(fields))
		}
		a, b, c, err := selectPosnCols(fields, posnCols)
		if err != nil {
			return nil, fmt.Errorf("tracer: %s:%d: %w", path, lineNo, err)
		}
		appendRow(t, mode, a, b, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tracer: scan %s: %w", path, err)
	}
	return t, nil
}

func selectPosnCols(fields []string, posnCols [3]int) (a, b, c float64, err error) {
	vals := make([]float64, 3)
	for i, col := range posnCols {
		if col < 0 || col >= len(fields) {
			return 0, 0, 0, fmt.Errorf("posn_cols[%d]=%d out of range for %d columns", i, col, len(fields))
		}
		v, perr := strconv.ParseFloat(fields[col], 64)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("non-numeric position column %d", col)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

func newTableForMode(mode Mode) *Table {
	if mode == ModeSurvey {
		return NewSurveyTable()
	}
	return NewBoxTable()
}

func appendRow(t *Table, mode Mode, a, b, c float64) {
	if mode == ModeSurvey {
		// Cartesian columns are filled in later by the sky-geometry
		// conversion step; store sky coordinates now.
		t.AppendSurveyTracer(0, 0, 0, a, b, c)
	} else {
		t.AppendTracer(a, b, c)
	}
}
