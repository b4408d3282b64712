package spxlauncher

import "github.com/wagiedev/spx-launcher-go/internal/errors"

// Re-export error types from internal package

// LauncherError is the base interface for all launcher errors.
type LauncherError = errors.LauncherError

// PathResolutionFailedError indicates the sidecar binary could not be found.
type PathResolutionFailedError = errors.PathResolutionFailedError

// ConfigInvalidError indicates the saved sidecar config could not be used.
type ConfigInvalidError = errors.ConfigInvalidError

// SpawnFailedError indicates the operating system refused to start the
// sidecar.
type SpawnFailedError = errors.SpawnFailedError

// KillFailedError indicates the running sidecar could not be killed.
type KillFailedError = errors.KillFailedError

// InternalError indicates an unexpected failure inside the launcher.
type InternalError = errors.InternalError

// Re-export sentinel errors from internal package.
var (
	// ErrSelectionCancelled indicates the user dismissed the picker.
	ErrSelectionCancelled = errors.ErrSelectionCancelled

	// ErrConfigNotFound indicates no sidecar path has been saved yet.
	ErrConfigNotFound = errors.ErrConfigNotFound

	// ErrPickerUnavailable indicates discovery failed and no picker was
	// configured to ask the user.
	ErrPickerUnavailable = errors.ErrPickerUnavailable
)

// ErrorKind names the kind of a launcher error, e.g. "SpawnFailed".
// It returns "" for nil and "error" for errors the launcher did not produce.
func ErrorKind(err error) string {
	return errors.Kind(err)
}
