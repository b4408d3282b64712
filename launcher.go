package spxlauncher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wagiedev/spx-launcher-go/internal/config"
	"github.com/wagiedev/spx-launcher-go/internal/desktop"
	"github.com/wagiedev/spx-launcher-go/internal/locate"
	"github.com/wagiedev/spx-launcher-go/internal/subprocess"
)

// Launcher supervises one spx-server sidecar. It is safe for concurrent use.
type Launcher struct {
	log        *slog.Logger
	locator    *locate.Locator
	supervisor *subprocess.Supervisor
	port       string
}

// New creates a Launcher. Nothing is started until Launch.
func New(opts ...Option) *Launcher {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	locator := locate.New(&locate.Config{
		SidecarPath: options.SidecarPath,
		Executable:  options.Executable,
		Layout:      options.Layout,
		ConfigFile:  options.ConfigFile,
		Picker:      options.Picker,
		Logger:      log,
	})

	supervisor := subprocess.NewSupervisor(&subprocess.Config{
		Resolver: locator,
		Sink:     options.Sink,
		Env:      options.Env,
		Logger:   log,
	})

	return &Launcher{
		log:        log.With("component", "launcher"),
		locator:    locator,
		supervisor: supervisor,
		port:       config.ParsePort(options.Port, config.DefaultPort),
	}
}

// Launch starts the sidecar if it is not running.
//
// The sidecar is located afresh on every launch, so a binary that moved since
// the last run is found again. The process outlives ctx.
func (l *Launcher) Launch(ctx context.Context) (Status, error) {
	return l.supervisor.Launch(ctx)
}

// Stop kills the sidecar if it is running and waits for it to exit.
func (l *Launcher) Stop(ctx context.Context) (Status, error) {
	return l.supervisor.Stop(ctx)
}

// Status reports whether a sidecar is running.
func (l *Launcher) Status() Snapshot {
	return l.supervisor.Status()
}

// Exited returns a channel closed when the current sidecar exits, or nil
// when none is running.
func (l *Launcher) Exited() <-chan struct{} {
	return l.supervisor.Exited()
}

// Drained returns a channel closed once every output line of the current
// sidecar has been delivered to the sink, or nil when none is running.
// Wait on it after Exited before quitting, or the last lines may be lost.
func (l *Launcher) Drained() <-chan struct{} {
	return l.supervisor.Drained()
}

// Resolve locates the sidecar without starting it. It may prompt through the
// picker and remember the answer, exactly as Launch would.
func (l *Launcher) Resolve(ctx context.Context) (ResolvedPath, error) {
	return l.locator.Resolve(ctx)
}

// Port returns the configured port, "5660" unless overridden.
func (l *Launcher) Port() string {
	return l.port
}

// LogsDir returns the sidecar's LOG folder next to the launcher executable.
func (l *Launcher) LogsDir() (string, error) {
	exe, err := l.locator.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to determine executable path: %w", err)
	}

	return locate.LogsDir(exe, l.locator.Layout()), nil
}

// OpenLogs shows the LOG folder in the system file browser.
func (l *Launcher) OpenLogs(ctx context.Context) error {
	dir, err := l.LogsDir()
	if err != nil {
		return err
	}

	l.log.InfoContext(ctx, "Opening logs folder", "path", dir)

	if err := desktop.OpenFolder(ctx, dir); err != nil {
		return fmt.Errorf("failed to open logs folder: %w", err)
	}

	return nil
}

// ConfigFile returns the file where a picked sidecar path is remembered.
func (l *Launcher) ConfigFile() (string, error) {
	store, err := l.locator.Store()
	if err != nil {
		return "", err
	}

	return store.Path(), nil
}
