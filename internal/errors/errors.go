package errors

import (
	"errors"
	"fmt"
)

// LauncherError is the base interface for all launcher errors.
type LauncherError interface {
	error
	IsLauncherError() bool
}

// Compile-time verification that all error types implement LauncherError.
var (
	_ LauncherError = (*PathResolutionFailedError)(nil)
	_ LauncherError = (*ConfigInvalidError)(nil)
	_ LauncherError = (*SpawnFailedError)(nil)
	_ LauncherError = (*KillFailedError)(nil)
	_ LauncherError = (*InternalError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSelectionCancelled indicates the user dismissed the sidecar picker.
	ErrSelectionCancelled = errors.New("user cancelled file selection")

	// ErrConfigNotFound indicates no saved sidecar configuration exists yet.
	ErrConfigNotFound = errors.New("sidecar configuration not found")

	// ErrPickerUnavailable indicates no interactive picker can be shown,
	// for example when stdin is reserved for a protocol.
	ErrPickerUnavailable = errors.New("interactive picker unavailable")
)

// PathResolutionFailedError indicates the sidecar binary was not found
// anywhere, including after the user was prompted.
type PathResolutionFailedError struct {
	SearchedPaths []string
}

func (e *PathResolutionFailedError) Error() string {
	return fmt.Sprintf("sidecar binary not found in: %v", e.SearchedPaths)
}

// IsLauncherError implements LauncherError.
func (e *PathResolutionFailedError) IsLauncherError() bool { return true }

// ConfigInvalidError indicates the saved configuration exists but is not
// valid JSON or lacks the spxPath field.
type ConfigInvalidError struct {
	Path string
	Err  error
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("invalid sidecar config %s: %v", e.Path, e.Err)
}

func (e *ConfigInvalidError) Unwrap() error {
	return e.Err
}

// IsLauncherError implements LauncherError.
func (e *ConfigInvalidError) IsLauncherError() bool { return true }

// SpawnFailedError indicates the OS refused to start the sidecar.
type SpawnFailedError struct {
	Path string
	Err  error
}

func (e *SpawnFailedError) Error() string {
	return fmt.Sprintf("failed to launch server at %s: %v", e.Path, e.Err)
}

func (e *SpawnFailedError) Unwrap() error {
	return e.Err
}

// IsLauncherError implements LauncherError.
func (e *SpawnFailedError) IsLauncherError() bool { return true }

// KillFailedError indicates the OS refused to terminate the sidecar.
// The handle is discarded regardless.
type KillFailedError struct {
	PID int
	Err error
}

func (e *KillFailedError) Error() string {
	return fmt.Sprintf("failed to kill server (pid %d): %v", e.PID, e.Err)
}

func (e *KillFailedError) Unwrap() error {
	return e.Err
}

// IsLauncherError implements LauncherError.
func (e *KillFailedError) IsLauncherError() bool { return true }

// InternalError reports a failure inside the launcher itself, such as a
// collaborator panicking while the supervisor lock was held.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error during %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsLauncherError implements LauncherError.
func (e *InternalError) IsLauncherError() bool { return true }

// Kind returns a short, stable name for err, used for CLI exit reporting.
// It returns "error" for errors that are not launcher errors.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSelectionCancelled):
		return "SelectionCancelled"
	}

	if _, ok := errors.AsType[*PathResolutionFailedError](err); ok {
		return "PathResolutionFailed"
	}

	if _, ok := errors.AsType[*ConfigInvalidError](err); ok {
		return "ConfigInvalid"
	}

	if _, ok := errors.AsType[*SpawnFailedError](err); ok {
		return "SpawnFailed"
	}

	if _, ok := errors.AsType[*KillFailedError](err); ok {
		return "KillFailed"
	}

	if _, ok := errors.AsType[*InternalError](err); ok {
		return "Internal"
	}

	return "error"
}
