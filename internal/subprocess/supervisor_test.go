package subprocess

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/spx-launcher-go/internal/errors"
	"github.com/wagiedev/spx-launcher-go/internal/locate"
	"github.com/wagiedev/spx-launcher-go/internal/output"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

type resolverFunc func(ctx context.Context) (locate.ResolvedPath, error)

func (f resolverFunc) Resolve(ctx context.Context) (locate.ResolvedPath, error) {
	return f(ctx)
}

// recorder is a sink that keeps every line it receives.
type recorder struct {
	mu    sync.Mutex
	lines []output.Line
}

func (r *recorder) Emit(line output.Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, line)
}

func (r *recorder) texts(stream output.Stream) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var texts []string

	for _, l := range r.lines {
		if l.Stream == stream {
			texts = append(texts, l.Text)
		}
	}

	return texts
}

func (r *recorder) all() []output.Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]output.Line(nil), r.lines...)
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("Test requires a POSIX shell")
	}
}

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

func staticResolver(path string) Resolver {
	return resolverFunc(func(context.Context) (locate.ResolvedPath, error) {
		return locate.NewResolvedPath(path)
	})
}

// newTestSupervisor creates a supervisor that is stopped, with its output
// readers drained, when the test ends.
func newTestSupervisor(t *testing.T, cfg *Config) *Supervisor {
	t.Helper()

	s := NewSupervisor(cfg)

	t.Cleanup(func() {
		h := s.current()

		_, err := s.Stop(context.Background())
		assert.NoError(t, err)

		if h != nil {
			waitClosed(t, h.outputDone)
		}
	})

	return s
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for channel to close")
	}
}

func TestSupervisor_LaunchAndStop(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "echo ready\nexec sleep 30")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})
	ctx := context.Background()

	status, err := s.Launch(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusLaunched, status)

	snap := s.Status()
	require.True(t, snap.Running)
	require.False(t, snap.Exited)
	require.NotZero(t, snap.PID)
	require.NotEmpty(t, snap.Instance)
	require.Equal(t, script, snap.Path)

	require.Eventually(t, func() bool {
		return len(sink.texts(output.Stdout)) == 1
	}, waitFor, tick)

	line := sink.all()[0]
	require.Equal(t, "ready", line.Text)
	require.Equal(t, snap.Instance, line.Instance)
	require.False(t, line.Time.IsZero())

	exited := s.Exited()
	require.NotNil(t, exited)

	status, err = s.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusStopped, status)

	waitClosed(t, exited)
	require.Equal(t, Snapshot{}, s.Status())
	require.Nil(t, s.Exited())
}

func TestSupervisor_LaunchWhileRunning(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "exec sleep 30")
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})
	ctx := context.Background()

	status, err := s.Launch(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusLaunched, status)

	first := s.Status()

	status, err = s.Launch(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyRunning, status)

	second := s.Status()
	require.Equal(t, first.PID, second.PID)
	require.Equal(t, first.Instance, second.Instance)
}

func TestSupervisor_ConcurrentLaunchSpawnsOnce(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	marker := filepath.Join(dir, "spawned")
	script := writeScript(t, dir, "spx-server",
		"echo spawn >> '"+marker+"'\necho ready\nexec sleep 30")

	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})

	const callers = 8

	var (
		g        errgroup.Group
		mu       sync.Mutex
		statuses = make(map[Status]int)
	)

	for range callers {
		g.Go(func() error {
			status, err := s.Launch(context.Background())
			if err != nil {
				return err
			}

			mu.Lock()
			statuses[status]++
			mu.Unlock()

			return nil
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, 1, statuses[StatusLaunched])
	require.Equal(t, callers-1, statuses[StatusAlreadyRunning])

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(marker)
		return err == nil && strings.Count(string(data), "spawn") == 1
	}, waitFor, tick)
}

func TestSupervisor_StopIsIdempotent(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "exec sleep 30")
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})
	ctx := context.Background()

	status, err := s.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusNotRunning, status)

	_, err = s.Launch(ctx)
	require.NoError(t, err)

	h := s.current()

	status, err = s.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusStopped, status)

	status, err = s.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusNotRunning, status)

	waitClosed(t, h.outputDone)
}

func TestSupervisor_RelaunchAfterStop(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "exec sleep 30")
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})
	ctx := context.Background()

	for range 3 {
		status, err := s.Launch(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusLaunched, status)

		h := s.current()

		status, err = s.Stop(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusStopped, status)

		waitClosed(t, h.outputDone)
	}
}

func TestSupervisor_WorkingDirectoryIsBinaryDir(t *testing.T) {
	skipOnWindows(t)

	dir := filepath.Join(t.TempDir(), "server")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	script := writeScript(t, dir, "spx-server", "pwd\nexec sleep 30")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})

	_, err := s.Launch(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sink.texts(output.Stdout)) == 1
	}, waitFor, tick)

	got, err := filepath.EvalSymlinks(sink.texts(output.Stdout)[0])
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	require.Equal(t, want, got)
}

func TestSupervisor_PerStreamOrder(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server",
		"for i in 1 2 3 4 5; do echo out$i; echo err$i >&2; done\nexec sleep 30")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})

	_, err := s.Launch(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sink.texts(output.Stdout)) == 5 && len(sink.texts(output.Stderr)) == 5
	}, waitFor, tick)

	require.Equal(t, []string{"out1", "out2", "out3", "out4", "out5"}, sink.texts(output.Stdout))
	require.Equal(t, []string{"err1", "err2", "err3", "err4", "err5"}, sink.texts(output.Stderr))
}

func TestSupervisor_SkipsUndecodableLines(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server",
		`printf 'ok1\n\377\376\nok2\r\n'`+"\nexec sleep 30")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})

	_, err := s.Launch(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sink.texts(output.Stdout)) == 2
	}, waitFor, tick)

	require.Equal(t, []string{"ok1", "ok2"}, sink.texts(output.Stdout))
	require.True(t, s.Status().Running)
}

func TestSupervisor_ExternalExit(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "echo bye\nexit 3")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})
	ctx := context.Background()

	status, err := s.Launch(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusLaunched, status)

	first := s.current()
	waitClosed(t, s.Exited())
	waitClosed(t, first.outputDone)

	snap := s.Status()
	require.False(t, snap.Running)
	require.True(t, snap.Exited)
	require.Equal(t, 3, snap.ExitCode)
	require.Equal(t, []string{"bye"}, sink.texts(output.Stdout))

	// An exited handle does not block a new launch.
	status, err = s.Launch(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusLaunched, status)
	require.NotEqual(t, first.id, s.Status().Instance)
}

func TestSupervisor_StopAfterExternalExit(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "exit 0")
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})
	ctx := context.Background()

	_, err := s.Launch(ctx)
	require.NoError(t, err)

	waitClosed(t, s.Exited())

	status, err := s.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusNotRunning, status)
	require.Equal(t, Snapshot{}, s.Status())
}

func TestSupervisor_FinalLineWithoutNewline(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", `printf 'first\nlast'`)
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})

	_, err := s.Launch(context.Background())
	require.NoError(t, err)

	waitClosed(t, s.current().outputDone)
	require.Equal(t, []string{"first", "last"}, sink.texts(output.Stdout))
}

func TestSupervisor_StopKillsProcessGroup(t *testing.T) {
	skipOnWindows(t)

	// The backgrounded sleep inherits the output pipes; the readers only
	// finish once it is killed too.
	script := writeScript(t, t.TempDir(), "spx-server", "sleep 30 &\necho started\nwait")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})
	ctx := context.Background()

	_, err := s.Launch(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sink.texts(output.Stdout)) == 1
	}, waitFor, tick)

	h := s.current()

	status, err := s.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusStopped, status)

	waitClosed(t, h.outputDone)
}

func TestSupervisor_ExitedLeaderLeftovers(t *testing.T) {
	skipOnWindows(t)

	// The leader exits at once; the backgrounded sleep stays in its process
	// group holding the output pipes.
	script := writeScript(t, t.TempDir(), "spx-server", "sleep 30 &\necho started\nexit 0")

	tests := []struct {
		name    string
		discard func(t *testing.T, s *Supervisor)
	}{
		{
			name: "stop",
			discard: func(t *testing.T, s *Supervisor) {
				status, err := s.Stop(context.Background())
				require.NoError(t, err)
				require.Equal(t, StatusNotRunning, status)
			},
		},
		{
			name: "relaunch",
			discard: func(t *testing.T, s *Supervisor) {
				status, err := s.Launch(context.Background())
				require.NoError(t, err)
				require.Equal(t, StatusLaunched, status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})

			_, err := s.Launch(context.Background())
			require.NoError(t, err)

			h := s.current()
			waitClosed(t, h.done)

			select {
			case <-h.outputDone:
				t.Fatal("output closed while the background child still holds the pipes")
			default:
			}

			tt.discard(t, s)
			waitClosed(t, h.outputDone)
		})
	}
}

func TestSupervisor_KillFailureReleasesHandle(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "exec sleep 30")
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})
	ctx := context.Background()

	_, err := s.Launch(ctx)
	require.NoError(t, err)

	h := s.current()
	errRefused := stderrors.New("operation not permitted")

	killProcess = func(*os.Process) error { return errRefused }

	t.Cleanup(func() {
		killProcess = terminate

		_ = terminate(h.process())
		waitClosed(t, h.done)
		waitClosed(t, h.outputDone)
	})

	status, err := s.Stop(ctx)
	require.Error(t, err)
	require.Zero(t, status)
	require.ErrorIs(t, err, errRefused)
	require.Equal(t, "KillFailed", errors.Kind(err))

	killErr, ok := stderrors.AsType[*errors.KillFailedError](err)
	require.True(t, ok, "expected KillFailedError, got %T", err)
	require.Equal(t, h.pid, killErr.PID)

	require.Nil(t, s.current())
	require.Equal(t, Snapshot{}, s.Status())

	status, err = s.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusNotRunning, status)
}

func TestSupervisor_DrainedAfterExternalExit(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server",
		"i=0\nwhile [ $i -lt 2000 ]; do echo line$i; i=$((i+1)); done\necho 'FATAL: port in use' >&2\necho FINAL\nexit 1")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script), Sink: sink})

	require.Nil(t, s.Drained())

	_, err := s.Launch(context.Background())
	require.NoError(t, err)

	drained := s.Drained()
	require.NotNil(t, drained)

	waitClosed(t, s.Exited())
	waitClosed(t, drained)

	stdout := sink.texts(output.Stdout)
	require.Len(t, stdout, 2001)
	require.Equal(t, "FINAL", stdout[len(stdout)-1])
	require.Equal(t, []string{"FATAL: port in use"}, sink.texts(output.Stderr))
}

func TestSupervisor_Env(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", `echo "$SPX_TEST_MARKER"`+"\nexec sleep 30")
	sink := &recorder{}
	s := newTestSupervisor(t, &Config{
		Resolver: staticResolver(script),
		Sink:     sink,
		Env:      []string{"SPX_TEST_MARKER=hello"},
	})

	_, err := s.Launch(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sink.texts(output.Stdout)) == 1
	}, waitFor, tick)
	require.Equal(t, []string{"hello"}, sink.texts(output.Stdout))
}

func TestSupervisor_ProcessOutlivesLaunchContext(t *testing.T) {
	skipOnWindows(t)

	script := writeScript(t, t.TempDir(), "spx-server", "exec sleep 30")
	s := newTestSupervisor(t, &Config{Resolver: staticResolver(script)})

	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Launch(ctx)
	require.NoError(t, err)

	cancel()

	require.Never(t, func() bool {
		return s.Status().Exited
	}, 300*time.Millisecond, 20*time.Millisecond)
}

func TestSupervisor_SpawnFailure(t *testing.T) {
	skipOnWindows(t)

	path := filepath.Join(t.TempDir(), "spx-server")
	require.NoError(t, os.WriteFile(path, []byte("not a program"), 0o644))

	s := newTestSupervisor(t, &Config{Resolver: staticResolver(path)})

	status, err := s.Launch(context.Background())
	require.Error(t, err)
	require.Zero(t, status)

	spawnErr, ok := stderrors.AsType[*errors.SpawnFailedError](err)
	require.True(t, ok, "expected SpawnFailedError, got %T", err)
	require.Equal(t, path, spawnErr.Path)
	require.Equal(t, "SpawnFailed", errors.Kind(err))

	require.Equal(t, Snapshot{}, s.Status())
	require.Nil(t, s.current())
}

func TestSupervisor_ResolveErrors(t *testing.T) {
	errBoom := stderrors.New("boom")

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "cancelled", err: errors.ErrSelectionCancelled, wantErr: errors.ErrSelectionCancelled},
		{name: "not found", err: &errors.PathResolutionFailedError{SearchedPaths: []string{"/nowhere"}}},
		{name: "arbitrary", err: errBoom, wantErr: errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSupervisor(t, &Config{
				Resolver: resolverFunc(func(context.Context) (locate.ResolvedPath, error) {
					return locate.ResolvedPath{}, tt.err
				}),
			})

			status, err := s.Launch(context.Background())
			require.Error(t, err)
			require.Zero(t, status)
			require.Equal(t, tt.err, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			require.Equal(t, Snapshot{}, s.Status())
		})
	}
}

func TestSupervisor_PanickingResolver(t *testing.T) {
	s := newTestSupervisor(t, &Config{
		Resolver: resolverFunc(func(context.Context) (locate.ResolvedPath, error) {
			panic("resolver exploded")
		}),
	})

	status, err := s.Launch(context.Background())
	require.Zero(t, status)

	internalErr, ok := stderrors.AsType[*errors.InternalError](err)
	require.True(t, ok, "expected InternalError, got %T", err)
	require.Equal(t, "launch", internalErr.Op)
	require.Contains(t, err.Error(), "resolver exploded")

	// The lock was released.
	require.Equal(t, Snapshot{}, s.Status())
}
