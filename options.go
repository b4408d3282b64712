package spxlauncher

import (
	"log/slog"

	"github.com/wagiedev/spx-launcher-go/internal/config"
)

// Options holds the launcher configuration.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithSink sets where sidecar output lines go.
// If not set, output is discarded.
func WithSink(sink Sink) Option {
	return func(o *Options) {
		o.Sink = sink
	}
}

// WithSidecarPath fixes the sidecar location. Discovery, the saved config and
// the picker are all skipped.
func WithSidecarPath(path string) Option {
	return func(o *Options) {
		o.SidecarPath = path
	}
}

// WithPicker sets how the user is asked for the sidecar location when it
// cannot be found. Without a picker, Launch fails instead.
func WithPicker(picker Picker) Option {
	return func(o *Options) {
		o.Picker = picker
	}
}

// WithConfigFile overrides where the picked sidecar path is remembered.
func WithConfigFile(path string) Option {
	return func(o *Options) {
		o.ConfigFile = path
	}
}

// WithExecutable overrides how the launcher finds its own binary, which
// anchors sidecar discovery and the logs folder.
func WithExecutable(fn func() (string, error)) Option {
	return func(o *Options) {
		o.Executable = fn
	}
}

// WithLayout overrides the packaging layout detected from the OS.
func WithLayout(layout Layout) Option {
	return func(o *Options) {
		o.Layout = &layout
	}
}

// WithPort sets the port reported by Port. Values that are not valid port
// numbers are ignored.
func WithPort(port string) Option {
	return func(o *Options) {
		o.Port = port
	}
}

// WithEnv adds KEY=value pairs to the sidecar's environment.
func WithEnv(env ...string) Option {
	return func(o *Options) {
		o.Env = append(o.Env, env...)
	}
}
