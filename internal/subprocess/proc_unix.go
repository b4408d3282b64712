//go:build unix

package subprocess

import (
	stderrors "errors"
	"os"
	"os/exec"
	"syscall"
)

// configureProcess puts the sidecar in its own process group so a kill
// reaches any children it spawned, which would otherwise keep the output
// pipes open.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGKILL to the sidecar's process group. The group
// outlives its leader, so this also reaches children left behind by a
// sidecar that has already been reaped. It returns os.ErrProcessDone when
// the group no longer exists.
func terminate(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)

	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, syscall.ESRCH):
		return os.ErrProcessDone
	}

	// Group kill refused: fall back to the leader alone.
	return p.Kill()
}
