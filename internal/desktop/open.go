// Package desktop hands paths to the operating system's file browser.
package desktop

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// OpenFolder shows path in the platform file browser. The opener is started
// and not waited for; its own exit status is not reported. ctx is only
// checked before starting.
func OpenFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, args := openCommand(runtime.GOOS, path)

	//nolint:gosec // G204: fixed opener, path passed as a single argument
	cmd := exec.Command(name, args...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s with %s: %w", path, name, err)
	}

	// Reap the opener so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()

	return nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "explorer", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}
