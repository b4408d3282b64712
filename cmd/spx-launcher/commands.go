package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	spxlauncher "github.com/wagiedev/spx-launcher-go"
	"github.com/wagiedev/spx-launcher-go/internal/control"
	"github.com/wagiedev/spx-launcher-go/internal/log"
	"github.com/wagiedev/spx-launcher-go/internal/output"
	"github.com/wagiedev/spx-launcher-go/internal/picker"
)

// logRingSize is how many sidecar output lines the server_logs tool can
// return.
const logRingSize = 1000

// drainTimeout bounds how long launch waits for the server's last output
// lines once the server is gone.
const drainTimeout = 5 * time.Second

// exitCode maps an error to the process exit status. A cancelled picker
// exits with 2 so scripts can tell it from a failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, spxlauncher.ErrSelectionCancelled):
		return 2
	default:
		return 1
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	return log.ContextAttrs(cmd.Context(),
		slog.String("cmd", cmd.Name()),
		slog.Int("launcher_pid", os.Getpid()),
	)
}

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch [port]",
		Short: "Launch the server in the foreground and stream its output",
		Long: "Launch the SPX server and print its output until it exits or the launcher " +
			"is interrupted, in which case the server is stopped.",
		Args: cobra.MaximumNArgs(1),
		RunE: doLaunch,
	}
}

func doLaunch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	launcher := spxlauncher.New(append(launcherOptions(args),
		spxlauncher.WithSink(output.NewWriter(out, true)),
		spxlauncher.WithPicker(picker.New(os.Stdin, os.Stderr)),
	)...)

	status, err := launcher.Launch(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s (port %s)\n", status, launcher.Port())

	drained := launcher.Drained()
	defer waitDrained(drained)

	select {
	case <-launcher.Exited():
		snap := launcher.Status()
		_, _ = launcher.Stop(context.WithoutCancel(ctx))

		if snap.ExitCode != 0 {
			return fmt.Errorf("server exited with code %d", snap.ExitCode)
		}

		return nil
	case <-ctx.Done():
		status, err := launcher.Stop(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.ErrOrStderr(), status)

		return nil
	}
}

// waitDrained waits until every output line has been written, giving up
// after drainTimeout when something outside the process group still holds
// the pipes.
func waitDrained(drained <-chan struct{}) {
	if drained == nil {
		return
	}

	select {
	case <-drained:
	case <-time.After(drainTimeout):
	}
}

func newPortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "port [port]",
		Short: "Print the port the server is configured for",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), spxlauncher.New(launcherOptions(args)...).Port())

			return nil
		},
	}
}

func newLogsCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the server's LOG folder, or open it with --open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			launcher := spxlauncher.New(launcherOptions(nil)...)

			if open {
				return launcher.OpenLogs(commandContext(cmd))
			}

			dir, err := launcher.LogsDir()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), dir)

			return nil
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "open the folder in the system file browser")

	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [port]",
		Short: "Serve launcher controls as MCP tools on stdin/stdout",
		Long: "Serve launch_server, stop_server, server_status, get_port, open_logs_folder " +
			"and server_logs over the Model Context Protocol. The server is stopped when " +
			"the session ends. The picker is unavailable in this mode.",
		Args: cobra.MaximumNArgs(1),
		RunE: doMCP,
	}
}

func doMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ring := output.NewRing(logRingSize)

	// stdout carries the protocol, so output only goes to the ring and the
	// debug log.
	launcher := spxlauncher.New(append(launcherOptions(args),
		spxlauncher.WithSink(output.Multi{ring, output.NewLog(logger, slog.LevelDebug)}),
	)...)

	defer func() {
		if _, err := launcher.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to stop server", "error", err)
		}
	}()

	server := control.New(&control.Config{
		Name:     "spx-launcher",
		Version:  version(),
		Launcher: launcher,
		Logs:     ring,
		Logger:   logger,
	})

	err := server.Serve(ctx, &mcp.StdioTransport{})
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print launcher version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()

			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Fprintln(out, "spx-launcher: version info not available")

				return
			}

			if used := v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "settings: %s\n", used)
			}

			fmt.Fprintf(out, "spx-launcher: %s\n", info.Main.Version)
			fmt.Fprintf(out, "go:           %s\n", info.GoVersion)

			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					fmt.Fprintf(out, "commit:       %s\n", s.Value)
				case "vcs.time":
					fmt.Fprintf(out, "date:         %s\n", s.Value)
				case "vcs.modified":
					fmt.Fprintf(out, "dirty:        %s\n", s.Value)
				}
			}
		},
	}
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "(devel)"
}
