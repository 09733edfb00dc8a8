package watershed

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseListfile reads a `.txt` listfile: one row per candidate zone with
// columns {zone_id, edge_flag, core_particle, core_density, zone_volume,
// zone_num_parts, ..., density_ratio_at_last_merge} (spec §4.H). Extra
// columns between zone_num_parts and the final column are tolerated and
// ignored, matching the original tool's practice of appending diagnostic
// columns over time.
func ParseListfile(path string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("watershed: open %s: %w", path, err)
	}
	defer f.Close()

	var candidates []Candidate
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			return nil, fmt.Errorf("watershed: %s:%d: expected at least 6 columns, got %d", path, lineNo, len(fields))
		}
		c, err := parseListRow(fields)
		if err != nil {
			return nil, fmt.Errorf("watershed: %s:%d: %w", path, lineNo, err)
		}
		candidates = append(candidates, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("watershed: reading %s: %w", path, err)
	}
	return candidates, nil
}

func parseListRow(fields []string) (Candidate, error) {
	var c Candidate
	var err error
	if c.ZoneID, err = strconv.Atoi(fields[0]); err != nil {
		return c, fmt.Errorf("zone_id: %w", err)
	}
	if c.EdgeFlag, err = strconv.Atoi(fields[1]); err != nil {
		return c, fmt.Errorf("edge_flag: %w", err)
	}
	if c.CoreParticle, err = strconv.Atoi(fields[2]); err != nil {
		return c, fmt.Errorf("core_particle: %w", err)
	}
	if c.CoreDensity, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return c, fmt.Errorf("core_density: %w", err)
	}
	if c.ZoneVolume, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return c, fmt.Errorf("zone_volume: %w", err)
	}
	if c.ZoneNumParts, err = strconv.Atoi(fields[5]); err != nil {
		return c, fmt.Errorf("zone_num_parts: %w", err)
	}
	last := fields[len(fields)-1]
	if c.LastMergeRatio, err = strconv.ParseFloat(last, 64); err != nil {
		return c, fmt.Errorf("density_ratio_at_last_merge: %w", err)
	}
	return c, nil
}

// ParseHierarchy reads a `.void` hierarchy file and attaches each
// candidate's merge steps and r_stop to the matching entry in candidates
// (matched by ZoneID == seed), per the nested descriptor format in spec
// §4.H: first line N_candidates, then one line per seed of
// `[seed, n1, r1, z_{1,1..n1}, n2, r2, ..., 0, r_stop]`.
func ParseHierarchy(path string, candidates []Candidate) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("watershed: open %s: %w", path, err)
	}
	defer f.Close()

	byZone := make(map[int]int, len(candidates))
	for i, c := range candidates {
		byZone[c.ZoneID] = i
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	if !sc.Scan() {
		return fmt.Errorf("watershed: %s: missing N_candidates header", path)
	}
	nCandidates, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		return fmt.Errorf("watershed: %s: bad N_candidates header: %w", path, err)
	}

	count := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		tokens, err := parseFloatFields(line)
		if err != nil {
			return fmt.Errorf("watershed: %s: line %d: %w", path, count+2, err)
		}
		seed, steps, rStop, err := parseHierarchyLine(tokens)
		if err != nil {
			return fmt.Errorf("watershed: %s: line %d: %w", path, count+2, err)
		}
		if idx, ok := byZone[seed]; ok {
			candidates[idx].Steps = steps
			candidates[idx].RStop = rStop
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("watershed: reading %s: %w", path, err)
	}
	if count != nCandidates {
		return fmt.Errorf("watershed: %s: header says %d candidates, found %d", path, nCandidates, count)
	}
	return nil
}

func parseFloatFields(line string) ([]float64, error) {
	fields := strings.Fields(line)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("token %d (%q): %w", i, f, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseHierarchyLine decodes one nested descriptor:
// seed n1 r1 z1_1..z1_n1 n2 r2 z2_1..z2_n2 ... 0 r_stop.
func parseHierarchyLine(tokens []float64) (seed int, steps []MergeStep, rStop float64, err error) {
	if len(tokens) < 2 {
		return 0, nil, 0, fmt.Errorf("descriptor too short: %d tokens", len(tokens))
	}
	seed = int(tokens[0])
	i := 1
	for i < len(tokens) {
		n := int(tokens[i])
		i++
		if n == 0 {
			if i >= len(tokens) {
				return 0, nil, 0, fmt.Errorf("missing r_stop after terminating 0 count")
			}
			rStop = tokens[i]
			return seed, steps, rStop, nil
		}
		if i+1+n > len(tokens) {
			return 0, nil, 0, fmt.Errorf("merge step claims %d zones but only %d tokens remain", n, len(tokens)-i-1)
		}
		r := tokens[i]
		i++
		zones := make([]int, n)
		for k := 0; k < n; k++ {
			zones[k] = int(tokens[i])
			i++
		}
		steps = append(steps, MergeStep{N: n, R: r, Zones: zones})
	}
	return 0, nil, 0, fmt.Errorf("descriptor not terminated by a 0 count")
}

// ParseZoneFile reads a `.zone` file (first line = N, then one zone id per
// line in tracer order, confirmed against
// `original_source/python_tools/zobov.py`'s
// `np.loadtxt(zone_file, dtype='int', skiprows=1)`) and returns the
// inverse mapping zone id -> member tracer indices, which Process needs
// to aggregate member volumes.
func ParseZoneFile(path string) (zoneToTracers map[int][]int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("watershed: open %s: %w", path, err)
	}
	defer f.Close()

	zoneToTracers = make(map[int][]int)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	idx := 0
	header := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if header {
			header = false
			continue
		}
		zone, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("watershed: %s: line %d: %w", path, idx+1, err)
		}
		zoneToTracers[zone] = append(zoneToTracers[zone], idx)
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("watershed: reading %s: %w", path, err)
	}
	return zoneToTracers, nil
}
