package tracer

import (
	"fmt"

	"github.com/astrogo/fits"
)

// fitsRow is the survey-schema binary-table row (spec §4.A's "FITS
// (survey schema: RA, DEC, Z)"), mirroring the original tool's
// `fits.open(tracer_file)[1].data` column access by RA/DEC/Z name.
type fitsRow struct {
	RA  float64 `fits:"RA"`
	Dec float64 `fits:"DEC"`
	Z   float64 `fits:"Z"`
}

// LoadFITS reads a FITS binary-table tracer catalogue. The table lives in
// the first extension HDU (index 1); RA, DEC, Z columns are read by name
// into a survey-mode table. posn_cols does not apply to FITS input: the
// schema is fixed by column name, the same way the original tool's
// "boss_like" path ignores posn_cols.
func LoadFITS(path string) (*Table, error) {
	f, err := fits.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracer: open %s: %w", path, err)
	}
	defer f.Close()

	hdus := f.HDUs()
	if len(hdus) < 2 {
		return nil, fmt.Errorf("tracer: %s: expected a binary table in HDU 1", path)
	}
	table, ok := hdus[1].(*fits.Table)
	if !ok {
		return nil, fmt.Errorf("tracer: %s: HDU 1 is not a binary table", path)
	}

	var rows []fitsRow
	if err := table.Read(&rows); err != nil {
		return nil, fmt.Errorf("tracer: %s: read RA/DEC/Z columns: %w", path, err)
	}

	t := NewSurveyTable()
	for _, r := range rows {
		t.AppendSurveyTracer(0, 0, 0, r.RA, r.Dec, r.Z)
	}
	return t, nil
}
