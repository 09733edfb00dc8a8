package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SampleInfo is the plain key=value record written before tessellation
// and re-read to resume post-processing without reloading tracers (spec
// §6). It is also used, per SPEC_FULL.md's supplemented-features note,
// to validate a tessellate run's N_tracers/N_mocks against the tracer
// table before watershed post-processing proceeds.
type SampleInfo struct {
	Handle     string
	Survey     bool
	NTracers   int
	NMocks     int
	BoxSide    float64
	RNear      float64
	RFar       float64
	RunID      string
}

// Write serializes s as key=value lines.
func (s SampleInfo) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pipeline: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	kv := [][2]string{
		{"handle", s.Handle},
		{"survey", strconv.FormatBool(s.Survey)},
		{"n_tracers", strconv.Itoa(s.NTracers)},
		{"n_mocks", strconv.Itoa(s.NMocks)},
		{"box_side", strconv.FormatFloat(s.BoxSide, 'g', -1, 64)},
		{"r_near", strconv.FormatFloat(s.RNear, 'g', -1, 64)},
		{"r_far", strconv.FormatFloat(s.RFar, 'g', -1, 64)},
		{"run_id", s.RunID},
	}
	for _, p := range kv {
		if _, err := fmt.Fprintf(w, "%s=%s\n", p[0], p[1]); err != nil {
			return fmt.Errorf("pipeline: write %s: %w", path, err)
		}
	}
	return w.Flush()
}

// ReadSampleInfo inverts Write.
func ReadSampleInfo(path string) (SampleInfo, error) {
	var s SampleInfo
	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("pipeline: open %s: %w", path, err)
	}
	defer f.Close()

	values := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return s, fmt.Errorf("pipeline: %s: malformed line %q", path, line)
		}
		values[k] = v
	}
	if err := sc.Err(); err != nil {
		return s, fmt.Errorf("pipeline: reading %s: %w", path, err)
	}

	s.Handle = values["handle"]
	s.RunID = values["run_id"]
	s.Survey, err = strconv.ParseBool(values["survey"])
	if err != nil {
		return s, fmt.Errorf("pipeline: %s: bad survey value: %w", path, err)
	}
	if s.NTracers, err = strconv.Atoi(values["n_tracers"]); err != nil {
		return s, fmt.Errorf("pipeline: %s: bad n_tracers value: %w", path, err)
	}
	if s.NMocks, err = strconv.Atoi(values["n_mocks"]); err != nil {
		return s, fmt.Errorf("pipeline: %s: bad n_mocks value: %w", path, err)
	}
	if s.BoxSide, err = strconv.ParseFloat(values["box_side"], 64); err != nil {
		return s, fmt.Errorf("pipeline: %s: bad box_side value: %w", path, err)
	}
	if s.RNear, err = strconv.ParseFloat(values["r_near"], 64); err != nil {
		return s, fmt.Errorf("pipeline: %s: bad r_near value: %w", path, err)
	}
	if s.RFar, err = strconv.ParseFloat(values["r_far"], 64); err != nil {
		return s, fmt.Errorf("pipeline: %s: bad r_far value: %w", path, err)
	}
	return s, nil
}

// ValidateAgainstTable is the fatal-consistency check (spec §7): a
// tessellate run's recorded N_tracers/N_mocks must match the tracer
// table before watershed post-processing proceeds.
func (s SampleInfo) ValidateAgainstTable(nTracers, nMocks int) error {
	if s.NTracers != nTracers || s.NMocks != nMocks {
		return fmt.Errorf("pipeline: sample-info mismatch: file has N_tracers=%d N_mocks=%d, table has %d/%d",
			s.NTracers, s.NMocks, nTracers, nMocks)
	}
	return nil
}
