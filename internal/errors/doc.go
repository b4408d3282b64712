// Package errors defines error types for the SPX launcher.
//
// Launch and stop outcomes such as "already running" or "not running" are
// statuses, not errors. The types here cover hard failures: the sidecar could
// not be located, the saved configuration is unusable, the OS refused to spawn
// or kill the process, or the user cancelled the picker. All error types
// support unwrapping and can be checked using errors.Is, errors.As, and
// errors.AsType.
package errors
