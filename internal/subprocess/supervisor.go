package subprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/spx-launcher-go/internal/errors"
	"github.com/wagiedev/spx-launcher-go/internal/locate"
	"github.com/wagiedev/spx-launcher-go/internal/output"
)

// Resolver produces the sidecar path for a launch attempt.
// *locate.Locator implements it.
type Resolver interface {
	Resolve(ctx context.Context) (locate.ResolvedPath, error)
}

// Compile-time verification that the locator satisfies Resolver.
var _ Resolver = (*locate.Locator)(nil)

// killProcess ends a sidecar and its process group. Tests swap it out.
var killProcess = terminate

// Config holds Supervisor collaborators.
type Config struct {
	// Resolver locates the sidecar on every launch. Required.
	Resolver Resolver

	// Sink receives every output line. If nil, output is discarded.
	Sink output.Sink

	// Env is appended to the launcher's environment for the sidecar.
	Env []string

	// Logger is an optional logger. If nil, logging is disabled.
	Logger *slog.Logger
}

// Supervisor owns at most one running sidecar process.
//
// Launch and Stop are serialized by a single mutex held for the whole
// check-and-spawn and take-and-kill sequences, so two concurrent launches
// can never both spawn. Output readers never take the mutex.
type Supervisor struct {
	log      *slog.Logger
	resolver Resolver
	sink     output.Sink
	env      []string

	mu     sync.Mutex
	handle *handle
}

// NewSupervisor creates a Supervisor with nothing running.
func NewSupervisor(cfg *Config) *Supervisor {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sink := cfg.Sink
	if sink == nil {
		sink = output.Discard
	}

	return &Supervisor{
		log:      log.With("component", "supervisor"),
		resolver: cfg.Resolver,
		sink:     sink,
		env:      cfg.Env,
	}
}

// Launch starts the sidecar unless one is already running.
//
// Returns StatusAlreadyRunning when a live process is held, leaving it
// untouched. Resolution errors are returned unchanged. Returns
// SpawnFailedError when the OS refuses to start the binary. In every error
// case nothing is left running.
//
// The spawned process is not bound to ctx: it keeps running after the
// request that launched it completes.
func (s *Supervisor) Launch(ctx context.Context) (status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer recoverInternal("launch", &err)

	if h := s.handle; h != nil {
		if !h.exited() {
			s.log.DebugContext(ctx, "Server is already running", "pid", h.pid, "instance", h.id)

			return StatusAlreadyRunning, nil
		}

		s.log.InfoContext(ctx, "Discarding handle of exited server", "pid", h.pid, "instance", h.id)
		s.killLeftovers(ctx, h)
		s.handle = nil
	}

	resolved, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to resolve server binary", "error", err)

		return 0, err
	}

	h, err := s.spawn(ctx, resolved)
	if err != nil {
		return 0, err
	}

	s.handle = h

	return StatusLaunched, nil
}

// spawn starts the process with both output streams on fresh pipes and
// detaches the readers and the reaper.
func (s *Supervisor) spawn(ctx context.Context, resolved locate.ResolvedPath) (*handle, error) {
	s.log.InfoContext(ctx, "Attempting to launch server", "path", resolved.Path, "dir", resolved.Dir)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &errors.SpawnFailedError{Path: resolved.Path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)

		return nil, &errors.SpawnFailedError{Path: resolved.Path, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	//nolint:gosec // G204: launching the resolved sidecar is the point
	cmd := exec.Command(resolved.Path)
	cmd.Dir = resolved.Dir
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if s.env != nil {
		cmd.Env = append(os.Environ(), s.env...)
	}

	configureProcess(cmd)

	startErr := cmd.Start()

	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	if startErr != nil {
		closeAll(stdoutR, stderrR)
		s.log.ErrorContext(ctx, "Failed to launch server", "path", resolved.Path, "error", startErr)

		return nil, &errors.SpawnFailedError{Path: resolved.Path, Err: startErr}
	}

	id := ulid.Make().String()
	h := newHandle(id, cmd, resolved, s.log.With("pid", cmd.Process.Pid, "instance", id))

	s.log.InfoContext(ctx, "Server started", "pid", h.pid, "instance", id)

	go h.reap()
	go s.drain(h, stdoutR, stderrR)

	return h, nil
}

// drain runs one reader per stream and closes the read ends once both
// have reached end of stream.
func (s *Supervisor) drain(h *handle, stdout, stderr *os.File) {
	defer close(h.outputDone)
	defer closeAll(stdout, stderr)

	var g errgroup.Group

	g.Go(func() error {
		return s.readLines(h, output.Stdout, stdout)
	})
	g.Go(func() error {
		return s.readLines(h, output.Stderr, stderr)
	})

	if err := g.Wait(); err != nil {
		h.log.Debug("Output reader stopped", "error", err)
	}

	h.log.Debug("Output streams closed")
}

// Stop kills the running sidecar and waits for it to be reaped.
//
// The handle is released before the kill is attempted, so a failed kill
// still leaves the slot empty. Returns StatusNotRunning when nothing was
// held or the process had already exited, and KillFailedError when the OS
// refuses the signal. Output readers are not joined: lines still buffered
// in the pipes may arrive after Stop returns.
func (s *Supervisor) Stop(ctx context.Context) (status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer recoverInternal("stop", &err)

	h := s.handle
	s.handle = nil

	if h == nil {
		s.log.DebugContext(ctx, "Server was not running")

		return StatusNotRunning, nil
	}

	if h.exited() {
		s.log.InfoContext(ctx, "Server had already exited", "pid", h.pid, "instance", h.id)
		s.killLeftovers(ctx, h)

		return StatusNotRunning, nil
	}

	s.log.InfoContext(ctx, "Killing server process", "pid", h.pid, "instance", h.id)

	if err := killProcess(h.process()); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		s.log.ErrorContext(ctx, "Failed to kill server process", "pid", h.pid, "error", err)

		return 0, &errors.KillFailedError{PID: h.pid, Err: err}
	}

	<-h.done

	return StatusStopped, nil
}

// killLeftovers kills whatever an exited sidecar left running in its
// process group. Those processes hold the output pipes open and would keep
// the readers alive.
func (s *Supervisor) killLeftovers(ctx context.Context, h *handle) {
	err := killProcess(h.process())
	if err == nil || stderrors.Is(err, os.ErrProcessDone) {
		return
	}

	s.log.WarnContext(ctx, "Failed to kill leftover server processes", "pid", h.pid, "error", err)
}

// Status returns a snapshot of the supervised slot.
func (s *Supervisor) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return Snapshot{}
	}

	return s.handle.snapshot()
}

// Exited returns a channel closed when the currently held process exits.
// It returns nil when nothing is held; receiving from nil blocks forever.
func (s *Supervisor) Exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil
	}

	return s.handle.done
}

// Drained returns a channel closed once both output streams of the
// currently held process have been read to the end, so every line it wrote
// has reached the sink. It returns nil when nothing is held.
//
// A process that exits on its own is reaped before its last lines are
// read; callers that quit on Exited should wait for Drained first.
func (s *Supervisor) Drained() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil
	}

	return s.handle.outputDone
}

// current returns the held handle, for tests.
func (s *Supervisor) current() *handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.handle
}

// recoverInternal converts a panic raised by a collaborator while the
// supervisor lock is held into an InternalError for that operation.
func recoverInternal(op string, err *error) {
	if r := recover(); r != nil {
		*err = &errors.InternalError{Op: op, Err: fmt.Errorf("panic: %v", r)}
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
