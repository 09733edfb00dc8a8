package watershed

import (
	"bufio"
	"fmt"
	"os"
)

// WriteList emits the new `_list.txt` for the surviving structures (spec
// §4.H step 7): one row per structure, same column layout as the input
// listfile but restricted to the fields Process actually carries forward.
func WriteList(path string, structures []Structure) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("watershed: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, s := range structures {
		if _, err := fmt.Fprintf(w, "%d %d %d %.10g %.10g %d %.10g\n",
			s.ID, s.EdgeFlag, s.CoreParticle, s.CoreDensity, s.VolumeTotal, s.NPartsTotal, s.RStop); err != nil {
			return fmt.Errorf("watershed: write %s: %w", path, err)
		}
	}
	return w.Flush()
}

// WriteHierarchy emits the new `.void` hierarchy, prefixed with the
// surviving count (spec §4.H step 7). Under the dont_merge policy every
// surviving structure is its own terminal zone, so each line degenerates
// to `seed 0 r_stop`.
func WriteHierarchy(path string, structures []Structure) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("watershed: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "%d\n", len(structures)); err != nil {
		return err
	}
	for _, s := range structures {
		seed := s.MemberZones[0]
		if _, err := fmt.Fprintf(w, "%d 0 %.10g\n", seed, s.RStop); err != nil {
			return fmt.Errorf("watershed: write %s: %w", path, err)
		}
	}
	return w.Flush()
}
