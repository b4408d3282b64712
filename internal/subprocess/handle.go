package subprocess

import (
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/wagiedev/spx-launcher-go/internal/locate"
)

// handle owns one spawned sidecar process. Once stopped it is never reused.
type handle struct {
	id      string
	cmd     *exec.Cmd
	pid     int
	path    locate.ResolvedPath
	started time.Time
	log     *slog.Logger

	// done is closed once the process has been reaped.
	done chan struct{}

	// outputDone is closed once both output readers have hit end of stream.
	outputDone chan struct{}

	mu       sync.Mutex
	exitCode int
}

func newHandle(id string, cmd *exec.Cmd, path locate.ResolvedPath, log *slog.Logger) *handle {
	return &handle{
		id:         id,
		cmd:        cmd,
		pid:        cmd.Process.Pid,
		path:       path,
		started:    time.Now(),
		log:        log,
		done:       make(chan struct{}),
		outputDone: make(chan struct{}),
		exitCode:   -1,
	}
}

// reap waits for the process and records how it ended.
func (h *handle) reap() {
	err := h.cmd.Wait()

	code := -1
	if state := h.cmd.ProcessState; state != nil {
		code = state.ExitCode()
	}

	h.mu.Lock()
	h.exitCode = code
	h.mu.Unlock()

	if err != nil {
		h.log.Info("Server process exited", "exit_code", code, "error", err)
	} else {
		h.log.Info("Server process exited", "exit_code", code)
	}

	close(h.done)
}

// exited reports whether the process has been reaped.
func (h *handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *handle) process() *os.Process {
	return h.cmd.Process
}

func (h *handle) snapshot() Snapshot {
	snap := Snapshot{
		PID:       h.pid,
		Instance:  h.id,
		Path:      h.path.Path,
		StartedAt: h.started,
	}

	if h.exited() {
		h.mu.Lock()
		snap.ExitCode = h.exitCode
		h.mu.Unlock()

		snap.Exited = true
	} else {
		snap.Running = true
	}

	return snap
}
