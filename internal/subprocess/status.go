package subprocess

import (
	"fmt"
	"time"
)

// Status is the outcome of a launch or stop request. Statuses are not
// errors: launching twice or stopping nothing both succeed.
type Status int

const (
	// StatusLaunched means a new sidecar process was spawned.
	StatusLaunched Status = iota + 1
	// StatusAlreadyRunning means a sidecar was already running and was left
	// untouched.
	StatusAlreadyRunning
	// StatusStopped means the running sidecar was killed and reaped.
	StatusStopped
	// StatusNotRunning means there was no running sidecar to stop.
	StatusNotRunning
)

// String returns the human-readable message shown to the user.
func (s Status) String() string {
	switch s {
	case StatusLaunched:
		return "Server is running"
	case StatusAlreadyRunning:
		return "Server is already running"
	case StatusStopped:
		return "Server stopped"
	case StatusNotRunning:
		return "Server was not running"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Name returns the status identifier, e.g. "AlreadyRunning".
func (s Status) Name() string {
	switch s {
	case StatusLaunched:
		return "Launched"
	case StatusAlreadyRunning:
		return "AlreadyRunning"
	case StatusStopped:
		return "Stopped"
	case StatusNotRunning:
		return "NotRunning"
	default:
		return "Unknown"
	}
}

// Snapshot is a point-in-time view of the supervised slot. It is stale as
// soon as it is returned and must not be used for concurrency control.
type Snapshot struct {
	// Running is true while a handle is held and its process has not been
	// reaped.
	Running bool

	// Exited is true when a handle is held but its process has already
	// exited on its own.
	Exited bool

	// PID is the sidecar process ID, or 0 when no handle is held.
	PID int

	// Instance is the launch ID stamped on every output line.
	Instance string

	// Path is the binary that was launched.
	Path string

	// StartedAt is when the process was spawned.
	StartedAt time.Time

	// ExitCode is the process exit code once Exited is true, -1 if it was
	// killed by a signal.
	ExitCode int
}
