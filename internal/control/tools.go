package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/spx-launcher-go/internal/errors"
	"github.com/wagiedev/spx-launcher-go/internal/output"
	"github.com/wagiedev/spx-launcher-go/internal/subprocess"
)

// Tool names.
const (
	ToolLaunch   = "launch_server"
	ToolStop     = "stop_server"
	ToolStatus   = "server_status"
	ToolPort     = "get_port"
	ToolOpenLogs = "open_logs_folder"
	ToolLogs     = "server_logs"
)

// defaultLogLimit is the number of lines server_logs returns without a limit.
const defaultLogLimit = 50

// Launcher is the command surface the tools drive.
type Launcher interface {
	Launch(ctx context.Context) (subprocess.Status, error)
	Stop(ctx context.Context) (subprocess.Status, error)
	Status() subprocess.Snapshot
	Port() string
	LogsDir() (string, error)
	OpenLogs(ctx context.Context) error
}

// Config wires the launcher tools.
type Config struct {
	Name    string
	Version string

	Launcher Launcher

	// Logs backs the server_logs tool. If nil, the tool reports that output
	// capture is disabled.
	Logs *output.Ring

	Logger *slog.Logger
}

// StatusView is the server_status payload.
type StatusView struct {
	State     string     `json:"state"`
	PID       int        `json:"pid,omitempty"`
	Instance  string     `json:"instance,omitempty"`
	Path      string     `json:"path,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	Port      string     `json:"port"`
}

// New creates a Server with every launcher tool registered.
func New(cfg *Config) *Server {
	s := NewServer(cfg.Name, cfg.Version, cfg.Logger)
	t := &tools{launcher: cfg.Launcher, logs: cfg.Logs}

	s.AddTool(&mcp.Tool{
		Name:        ToolLaunch,
		Description: "Start the SPX server if it is not already running.",
		InputSchema: Schema(nil),
	}, t.launch)

	s.AddTool(&mcp.Tool{
		Name:        ToolStop,
		Description: "Kill the running SPX server.",
		InputSchema: Schema(nil),
	}, t.stop)

	s.AddTool(&mcp.Tool{
		Name:        ToolStatus,
		Description: "Report whether the SPX server is running, as JSON.",
		InputSchema: Schema(nil),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.status)

	s.AddTool(&mcp.Tool{
		Name:        ToolPort,
		Description: "Return the configured SPX server port.",
		InputSchema: Schema(nil),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.port)

	s.AddTool(&mcp.Tool{
		Name:        ToolOpenLogs,
		Description: "Open the SPX log folder in the system file browser.",
		InputSchema: Schema(nil),
	}, t.openLogs)

	s.AddTool(&mcp.Tool{
		Name:        ToolLogs,
		Description: "Return the most recent lines of SPX server output, oldest first.",
		InputSchema: Schema(map[string]string{"limit": "int"}),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.serverLogs)

	return s
}

type tools struct {
	launcher Launcher
	logs     *output.Ring
}

func (t *tools) launch(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := t.launcher.Launch(ctx)
	if err != nil {
		return failure(err), nil
	}

	return TextResult(status.String()), nil
}

func (t *tools) stop(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := t.launcher.Stop(ctx)
	if err != nil {
		return failure(err), nil
	}

	return TextResult(status.String()), nil
}

func (t *tools) status(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(NewStatusView(t.launcher.Status(), t.launcher.Port()))
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}

	return TextResult(string(data)), nil
}

func (t *tools) port(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return TextResult(t.launcher.Port()), nil
}

func (t *tools) openLogs(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := t.launcher.LogsDir()
	if err != nil {
		return failure(err), nil
	}

	if err := t.launcher.OpenLogs(ctx); err != nil {
		return failure(err), nil
	}

	return TextResult("Opened " + dir), nil
}

func (t *tools) serverLogs(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.logs == nil {
		return ErrorResult("Output capture is disabled"), nil
	}

	args, err := ParseArguments(req)
	if err != nil {
		return ErrorResult(err.Error()), nil
	}

	limit := defaultLogLimit

	if raw, ok := args["limit"]; ok {
		n, ok := raw.(float64)
		if !ok || n < 0 || n != float64(int(n)) {
			return ErrorResult(fmt.Sprintf("limit must be a non-negative integer, got %v", raw)), nil
		}

		limit = int(n)
	}

	lines := t.logs.Tail(limit)

	var sb strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&sb, "[%s] %s\n", l.Stream, l.Text)
	}

	return TextResult(strings.TrimSuffix(sb.String(), "\n")), nil
}

// NewStatusView converts a snapshot for display.
func NewStatusView(snap subprocess.Snapshot, port string) StatusView {
	v := StatusView{State: "stopped", Port: port}

	if !snap.Running && !snap.Exited {
		return v
	}

	v.PID = snap.PID
	v.Instance = snap.Instance
	v.Path = snap.Path

	started := snap.StartedAt
	v.StartedAt = &started

	if snap.Running {
		v.State = "running"
	} else {
		v.State = "exited"

		code := snap.ExitCode
		v.ExitCode = &code
	}

	return v
}

// failure reports a launcher error with its kind so callers can tell
// cancellation apart from a real failure.
func failure(err error) *mcp.CallToolResult {
	return ErrorResult(fmt.Sprintf("%s: %v", errors.Kind(err), err))
}
