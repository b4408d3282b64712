//go:build !unix

package subprocess

import (
	"os"
	"os/exec"
)

func configureProcess(*exec.Cmd) {}

// terminate kills the sidecar process. Children it spawned are not
// reached.
func terminate(p *os.Process) error {
	return p.Kill()
}
