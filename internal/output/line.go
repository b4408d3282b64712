package output

import (
	"fmt"
	"time"
)

// Stream identifies which pipe of the sidecar a line came from.
type Stream int

const (
	// Stdout is the sidecar's standard output.
	Stdout Stream = iota
	// Stderr is the sidecar's standard error.
	Stderr
)

// String returns the stream name.
func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Line is one text line read from a sidecar stream.
//
// Lines from the same stream are delivered in the order they were written.
// There is no ordering guarantee between stdout and stderr lines.
type Line struct {
	// Stream is the pipe the line was read from.
	Stream Stream

	// Text is the line without its trailing newline.
	Text string

	// Instance is the ID of the launch that produced the line.
	Instance string

	// Time is when the line was read.
	Time time.Time
}
