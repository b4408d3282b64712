// Package config holds the launcher's option set and its persisted settings.
package config

import (
	"log/slog"

	"github.com/wagiedev/spx-launcher-go/internal/locate"
	"github.com/wagiedev/spx-launcher-go/internal/output"
)

// DefaultPort is the port reported when none was configured.
const DefaultPort = "5660"

// Options configures a launcher.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// SidecarPath, when set, is the only location tried for the sidecar.
	// Discovery and the picker are skipped.
	SidecarPath string

	// Executable reports the launcher's own binary path.
	// If nil, os.Executable is used.
	Executable func() (string, error)

	// Layout overrides the packaging layout detected from the OS.
	Layout *locate.Layout

	// ConfigFile overrides the file that remembers the picked sidecar path.
	// If empty, <user config dir>/SPX/config.json is used.
	ConfigFile string

	// Picker asks the user for the sidecar location when discovery fails.
	// If nil, resolution fails instead of prompting.
	Picker locate.Picker

	// Sink receives the sidecar's output lines.
	// If nil, output is discarded.
	Sink output.Sink

	// Port is the port string reported by the launcher.
	// If empty, DefaultPort.
	Port string

	// Env holds extra KEY=value pairs for the sidecar environment.
	Env []string
}
