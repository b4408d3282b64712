package locate

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/wagiedev/spx-launcher-go/internal/errors"
)

// PickerTitle is shown by the interactive picker.
const PickerTitle = "Pick the folder where SPX-Server is located"

// Picker asks the user to choose the sidecar location.
//
// Pick blocks until the user answers. It returns the chosen path, which may
// be the binary itself or the directory containing it, or
// errors.ErrSelectionCancelled when the user dismisses the prompt. It must
// not be called on a goroutine whose blocking would freeze a UI.
type Picker interface {
	Pick(ctx context.Context, title string) (string, error)
}

// PickerFunc adapts a function to a Picker.
type PickerFunc func(ctx context.Context, title string) (string, error)

// Pick implements Picker.
func (f PickerFunc) Pick(ctx context.Context, title string) (string, error) {
	return f(ctx, title)
}

// ResolvedPath is a validated, absolute sidecar path plus its directory,
// which becomes the sidecar's working directory.
type ResolvedPath struct {
	Path string
	Dir  string
}

// NewResolvedPath makes path absolute and derives its directory.
func NewResolvedPath(path string) (ResolvedPath, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("absolute path of %s: %w", path, err)
	}

	return ResolvedPath{Path: abs, Dir: filepath.Dir(abs)}, nil
}

// Config holds configuration for sidecar resolution.
type Config struct {
	// SidecarPath is an explicit sidecar path that skips every other step.
	SidecarPath string

	// Executable returns the running executable's path.
	// If nil, os.Executable is used.
	Executable func() (string, error)

	// Layout controls bundle escaping. If nil, LayoutForOS(runtime.GOOS).
	Layout *Layout

	// SidecarName overrides the sidecar file name. Defaults to
	// SidecarName(runtime.GOOS).
	SidecarName string

	// ConfigFile is the saved configuration path. Defaults to
	// DefaultConfigFile().
	ConfigFile string

	// Picker is consulted when neither the primary location nor the saved
	// configuration yield a binary. If nil, the picker step reports
	// ErrPickerUnavailable.
	Picker Picker

	// Logger is an optional logger for resolution steps.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Locator resolves the sidecar binary path. A Locator holds no state
// between calls: every Resolve starts from scratch, since the binary may
// move between launch attempts.
type Locator struct {
	cfg    *Config
	log    *slog.Logger
	layout Layout
	name   string
}

// New creates a Locator with the given configuration.
func New(cfg *Config) *Locator {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	layout := LayoutForOS(runtime.GOOS)
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}

	name := cfg.SidecarName
	if name == "" {
		name = SidecarName(runtime.GOOS)
	}

	return &Locator{
		cfg:    cfg,
		log:    log.With("component", "locator"),
		layout: layout,
		name:   name,
	}
}

// Layout returns the packaging layout in effect.
func (l *Locator) Layout() Layout {
	return l.layout
}

// Executable returns the running executable path.
func (l *Locator) Executable() (string, error) {
	if l.cfg.Executable != nil {
		return l.cfg.Executable()
	}

	return os.Executable()
}

// Store returns the saved-configuration store this locator consults.
func (l *Locator) Store() (*Store, error) {
	path := l.cfg.ConfigFile
	if path == "" {
		var err error

		path, err = DefaultConfigFile()
		if err != nil {
			return nil, err
		}
	}

	return NewStore(path), nil
}

// Resolve locates the sidecar binary.
//
// Resolution order:
//  1. The explicit Config.SidecarPath, if set, and only it
//  2. The sidecar name next to the (bundle-adjusted) executable directory
//  3. The path saved in the configuration file
//  4. A path chosen through the Picker, which is then saved
//
// Returns PathResolutionFailedError, ConfigInvalidError, or
// ErrSelectionCancelled when resolution fails.
func (l *Locator) Resolve(ctx context.Context) (ResolvedPath, error) {
	if l.cfg.SidecarPath != "" {
		l.log.DebugContext(ctx, "Using explicit sidecar path", "sidecar_path", l.cfg.SidecarPath)

		if isFile(l.cfg.SidecarPath) {
			return NewResolvedPath(l.cfg.SidecarPath)
		}

		return ResolvedPath{}, &errors.PathResolutionFailedError{SearchedPaths: []string{l.cfg.SidecarPath}}
	}

	searched := make([]string, 0, 3)

	exe, err := l.Executable()
	if err != nil {
		return ResolvedPath{}, fmt.Errorf("locate executable: %w", err)
	}

	candidate := filepath.Join(AdjustDir(filepath.Dir(exe), l.layout), l.name)
	searched = append(searched, candidate)

	if isFile(candidate) {
		l.log.DebugContext(ctx, "Found sidecar next to executable", "sidecar_path", candidate)

		return NewResolvedPath(candidate)
	}

	l.log.InfoContext(ctx, "Server binary not found next to executable, trying saved config",
		"candidate", candidate,
		"layout", l.layout.String(),
	)

	store, err := l.Store()
	if err != nil {
		return ResolvedPath{}, err
	}

	saved, err := store.Load()

	switch {
	case err == nil:
		searched = append(searched, saved)

		if isFile(saved) {
			l.log.DebugContext(ctx, "Using sidecar path from config", "sidecar_path", saved, "config", store.Path())

			return NewResolvedPath(saved)
		}

		l.log.WarnContext(ctx, "Saved sidecar path does not exist, asking user", "sidecar_path", saved)
	case stderrors.Is(err, errors.ErrConfigNotFound):
		l.log.DebugContext(ctx, "No saved sidecar config", "config", store.Path())
	default:
		l.log.ErrorContext(ctx, "Saved sidecar config is invalid", "config", store.Path(), "error", err)

		return ResolvedPath{}, err
	}

	return l.pick(ctx, store, searched)
}

// pick prompts the user and persists the choice.
func (l *Locator) pick(ctx context.Context, store *Store, searched []string) (ResolvedPath, error) {
	if l.cfg.Picker == nil {
		l.log.WarnContext(ctx, "No picker configured", "searched_paths", searched)

		return ResolvedPath{}, fmt.Errorf("%w: %w", errors.ErrPickerUnavailable,
			&errors.PathResolutionFailedError{SearchedPaths: searched})
	}

	l.log.InfoContext(ctx, "Asking user to locate sidecar")

	chosen, err := l.cfg.Picker.Pick(ctx, PickerTitle)
	if err != nil {
		if stderrors.Is(err, errors.ErrSelectionCancelled) {
			l.log.InfoContext(ctx, "User cancelled sidecar selection")

			return ResolvedPath{}, errors.ErrSelectionCancelled
		}

		return ResolvedPath{}, fmt.Errorf("pick sidecar: %w", err)
	}

	if info, statErr := os.Stat(chosen); statErr == nil && info.IsDir() {
		chosen = filepath.Join(chosen, l.name)
	}

	searched = append(searched, chosen)

	if !isFile(chosen) {
		l.log.WarnContext(ctx, "Chosen sidecar path does not exist", "sidecar_path", chosen)

		return ResolvedPath{}, &errors.PathResolutionFailedError{SearchedPaths: searched}
	}

	resolved, err := NewResolvedPath(chosen)
	if err != nil {
		return ResolvedPath{}, err
	}

	if err := store.Save(resolved.Path); err != nil {
		return ResolvedPath{}, err
	}

	l.log.InfoContext(ctx, "Saved sidecar path for future launches", "sidecar_path", resolved.Path, "config", store.Path())

	return resolved, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
