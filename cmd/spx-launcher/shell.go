package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	spxlauncher "github.com/wagiedev/spx-launcher-go"
	"github.com/wagiedev/spx-launcher-go/internal/control"
	"github.com/wagiedev/spx-launcher-go/internal/output"
	"github.com/wagiedev/spx-launcher-go/internal/picker"
)

const shellHelp = `Commands:
  launch       start the server
  stop         stop the server
  status       show server status
  port         show the configured port
  logs [n]     show the last n lines of server output
  open-logs    open the LOG folder
  help         show this help
  quit         stop the server and exit`

// shellCommands maps shell words to control tools.
var shellCommands = map[string]string{
	"launch":    control.ToolLaunch,
	"start":     control.ToolLaunch,
	"stop":      control.ToolStop,
	"status":    control.ToolStatus,
	"port":      control.ToolPort,
	"logs":      control.ToolLogs,
	"open-logs": control.ToolOpenLogs,
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [port]",
		Short: "Control the server interactively",
		Long: "Start an interactive session for launching and stopping the SPX server. " +
			"Server output is printed as it arrives. The server is stopped on quit.",
		Args: cobra.MaximumNArgs(1),
		RunE: doShell,
	}
}

func doShell(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	in := bufio.NewReader(cmd.InOrStdin())
	out := output.NewWriter(cmd.OutOrStdout(), true)
	ring := output.NewRing(logRingSize)

	// A line prompt shares the shell's reader so no input is lost; the
	// full-screen browser takes over the terminal directly.
	var pick spxlauncher.Picker = picker.NewPrompt(in, out)
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		if p, isBrowser := picker.New(f, os.Stdout).(*picker.Browser); isBrowser {
			pick = p
		}
	}

	launcher := spxlauncher.New(append(launcherOptions(args),
		spxlauncher.WithSink(output.Multi{out, ring}),
		spxlauncher.WithPicker(pick),
	)...)

	server := control.New(&control.Config{
		Name:     "spx-launcher",
		Version:  version(),
		Launcher: launcher,
		Logs:     ring,
		Logger:   logger,
	})

	return runShell(ctx, in, out, server)
}

// runShell reads commands from in until quit or end of input, then stops the
// server.
func runShell(ctx context.Context, in *bufio.Reader, out io.Writer, server *control.Server) error {
	fmt.Fprintln(out, `SPX launcher shell. Type "help" for commands.`)

	defer func() {
		res := server.CallTool(context.WithoutCancel(ctx), control.ToolStop, nil)
		fmt.Fprintln(out, control.ResultText(res))
	}()

	for {
		fmt.Fprint(out, "spx> ")

		line, err := in.ReadString('\n')
		if err != nil && !stderrors.Is(err, io.EOF) {
			return fmt.Errorf("read command: %w", err)
		}

		done := err != nil

		fields := strings.Fields(line)
		if len(fields) == 0 {
			if done {
				fmt.Fprintln(out)

				return nil
			}

			continue
		}

		switch word := strings.ToLower(fields[0]); word {
		case "quit", "exit":
			return nil
		case "help", "?":
			fmt.Fprintln(out, shellHelp)
		default:
			tool, ok := shellCommands[word]
			if !ok {
				fmt.Fprintf(out, "Unknown command %q. Type \"help\" for commands.\n", word)

				break
			}

			var input map[string]any

			if tool == control.ToolLogs && len(fields) > 1 {
				n, convErr := strconv.Atoi(fields[1])
				if convErr != nil || n < 0 {
					fmt.Fprintf(out, "Invalid line count %q\n", fields[1])

					break
				}

				input = map[string]any{"limit": n}
			}

			res := server.CallTool(ctx, tool, input)

			if text := control.ResultText(res); text != "" {
				if res.IsError {
					fmt.Fprintln(out, "Error: "+text)
				} else {
					fmt.Fprintln(out, text)
				}
			}
		}

		if done {
			return nil
		}
	}
}
