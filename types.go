package spxlauncher

import (
	"io"
	"log/slog"

	"github.com/wagiedev/spx-launcher-go/internal/locate"
	"github.com/wagiedev/spx-launcher-go/internal/output"
	"github.com/wagiedev/spx-launcher-go/internal/subprocess"
)

// Status is the outcome of Launch or Stop.
type Status = subprocess.Status

const (
	// StatusLaunched means a new sidecar process was spawned.
	StatusLaunched = subprocess.StatusLaunched
	// StatusAlreadyRunning means the running sidecar was left untouched.
	StatusAlreadyRunning = subprocess.StatusAlreadyRunning
	// StatusStopped means the running sidecar was killed.
	StatusStopped = subprocess.StatusStopped
	// StatusNotRunning means there was nothing to stop.
	StatusNotRunning = subprocess.StatusNotRunning
)

// Snapshot is a point-in-time view of the sidecar.
type Snapshot = subprocess.Snapshot

// OutputLine is one line the sidecar wrote.
type OutputLine = output.Line

// Stream identifies stdout or stderr.
type Stream = output.Stream

const (
	Stdout = output.Stdout
	Stderr = output.Stderr
)

// Sink receives sidecar output lines. Emit is called from the reader
// goroutines and must be safe for concurrent use.
type Sink = output.Sink

// SinkFunc adapts a function to Sink.
type SinkFunc = output.Func

// RingSink keeps the most recent output lines in memory.
type RingSink = output.Ring

// Picker asks the user where the sidecar lives.
type Picker = locate.Picker

// PickerFunc adapts a function to Picker.
type PickerFunc = locate.PickerFunc

// Layout is the packaging layout used to locate the sidecar.
type Layout = locate.Layout

const (
	LayoutFlat   = locate.LayoutFlat
	LayoutBundle = locate.LayoutBundle
)

// ResolvedPath is a sidecar location that was found.
type ResolvedPath = locate.ResolvedPath

// PickerTitle is the prompt shown when the user must pick the sidecar.
const PickerTitle = locate.PickerTitle

// NewWriterSink writes each line to w, optionally prefixed with its stream.
func NewWriterSink(w io.Writer, prefix bool) Sink {
	return output.NewWriter(w, prefix)
}

// NewLogSink logs each line at level.
func NewLogSink(log *slog.Logger, level slog.Level) Sink {
	return output.NewLog(log, level)
}

// NewRingSink keeps the last size lines.
func NewRingSink(size int) *RingSink {
	return output.NewRing(size)
}

// MultiSink delivers each line to every sink in order.
func MultiSink(sinks ...Sink) Sink {
	return output.Multi(sinks)
}
