// Package monitoring provides the pipeline's logging streams.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// LogLevel represents a logging stream.
type LogLevel int

const (
	// LogOps routes to the ops stream: fatal-path context, warnings, and
	// stage lifecycle events (component started/finished, N written).
	LogOps LogLevel = iota
	// LogDiag routes to the diag stream: per-stage diagnostics useful when
	// tuning thresholds (buffer counts, edge fractions, bin sizes).
	LogDiag
	// LogTrace routes to the trace stream: per-tracer/per-zone detail,
	// far too high-frequency for routine runs.
	LogTrace
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("[voidfinder] ", w.Ops)
	diagLogger = newLogger("[voidfinder] ", w.Diag)
	traceLogger = newLogger("[voidfinder] ", w.Trace)
}

// SetLogWriter configures a single logging stream. Pass nil to disable it.
func SetLogWriter(level LogLevel, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	switch level {
	case LogOps:
		opsLogger = newLogger("[voidfinder] ", w)
	case LogDiag:
		diagLogger = newLogger("[voidfinder] ", w)
	case LogTrace:
		traceLogger = newLogger("[voidfinder] ", w)
	default:
		panic(fmt.Sprintf("monitoring.SetLogWriter: unknown LogLevel %d", level))
	}
}

// SetLegacyLogger routes all three streams to a single writer.
func SetLegacyLogger(w io.Writer) {
	SetLogWriters(LogWriters{Ops: w, Diag: w, Trace: w})
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	mu.RLock()
	l := opsLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	mu.RLock()
	l := diagLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	mu.RLock()
	l := traceLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
