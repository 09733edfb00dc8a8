package tessellate

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// ExecRunner invokes the real ZOBOV-family binaries via os/exec, the way
// the teacher's radar/commands.go shells out to external tools by path
// rather than linking them in-process. BinDir is prepended to each binary
// name; leave empty to resolve from $PATH.
type ExecRunner struct {
	BinDir string
}

func (r *ExecRunner) bin(name string) string {
	if r.BinDir == "" {
		return name
	}
	return r.BinDir + "/" + name
}

func (r *ExecRunner) RunIsolated(ctx context.Context, p IsolatedParams) error {
	cmd := exec.CommandContext(ctx, r.bin("vozisol"),
		p.PosnFile,
		p.Handle.Dir+"/"+p.Handle.Base,
		formatFloat(p.L),
		strconv.Itoa(p.NTracers),
		formatFloat(p.BoundBox),
	)
	return runAndWrap(cmd, "vozisol")
}

func (r *ExecRunner) RunDivided(ctx context.Context, p DividedParams) error {
	cmd := exec.CommandContext(ctx, r.bin("vozinit"),
		p.PosnFile,
		formatFloat(p.BufferFrac),
		formatFloat(p.L),
		strconv.Itoa(p.BoxDiv),
		p.Handle.Dir+"/"+p.Handle.Base,
	)
	if err := runAndWrap(cmd, "vozinit"); err != nil {
		return err
	}
	script := exec.CommandContext(ctx, "sh", "scr"+p.Handle.Base)
	return runAndWrap(script, "vozinit driver script")
}

func (r *ExecRunner) RunJozovtrvol(ctx context.Context, h Handle, kind string) error {
	cmd := exec.CommandContext(ctx, r.bin("jozovtrvol"), kind, h.Dir+"/"+h.Base, "0", "0")
	return runAndWrap(cmd, "jozovtrvol "+kind)
}

func runAndWrap(cmd *exec.Cmd, label string) error {
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", label, err, out)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
