package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogWriter_RoutesToCorrectStream(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops, diag bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag})

	Opsf("buffer synthesis: %d mocks appended", 42)
	Diagf("selection bin %d: n=%d", 3, 17)
	Tracef("should not appear, trace disabled")

	if !strings.Contains(ops.String(), "42 mocks") {
		t.Errorf("ops stream missing expected message, got %q", ops.String())
	}
	if !strings.Contains(diag.String(), "selection bin 3") {
		t.Errorf("diag stream missing expected message, got %q", diag.String())
	}
}

func TestSetLogWriter_NilDisablesStream(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops bytes.Buffer
	SetLogWriter(LogOps, &ops)
	SetLogWriter(LogOps, nil)

	Opsf("this should be dropped")

	if ops.Len() != 0 {
		t.Errorf("expected no output after disabling stream, got %q", ops.String())
	}
}

func TestSetLogWriter_UnknownLevelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown log level")
		}
	}()
	SetLogWriter(LogLevel(99), nil)
}

func TestSetLegacyLogger_FansOutToAllStreams(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var buf bytes.Buffer
	SetLegacyLogger(&buf)

	Opsf("ops line")
	Diagf("diag line")
	Tracef("trace line")

	out := buf.String()
	for _, want := range []string{"ops line", "diag line", "trace line"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected legacy-routed output to contain %q, got %q", want, out)
		}
	}
}
