// Package spxlauncher starts and stops the spx-server sidecar on behalf of a
// desktop shell or command-line front end.
//
// A Launcher finds the sidecar binary, runs at most one instance of it, and
// forwards everything the sidecar writes to stdout and stderr, line by line,
// to an output sink.
//
// # Finding the sidecar
//
// Launch looks for the binary in this order:
//
//  1. next to the launcher's own executable (on macOS, next to the .app
//     bundle rather than inside Contents/MacOS);
//  2. the path remembered in <user config dir>/SPX/config.json;
//  3. a path chosen by the user through the configured Picker, which is then
//     remembered.
//
// WithSidecarPath replaces all three with a single fixed location.
//
// # Basic Usage
//
//	launcher := spxlauncher.New(
//	    spxlauncher.WithLogger(logger),
//	    spxlauncher.WithSink(spxlauncher.NewWriterSink(os.Stdout, true)),
//	)
//
//	status, err := launcher.Launch(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(status) // "Server is running"
//
//	defer launcher.Stop(ctx)
//
// Launching while the sidecar runs reports StatusAlreadyRunning, and stopping
// when nothing runs reports StatusNotRunning; neither is an error.
//
// # Error Handling
//
// Hard failures are typed and implement LauncherError:
//
//	status, err := launcher.Launch(ctx)
//	if errors.Is(err, spxlauncher.ErrSelectionCancelled) {
//	    // the user dismissed the picker
//	}
//
//	if spawnErr, ok := errors.AsType[*spxlauncher.SpawnFailedError](err); ok {
//	    fmt.Println("could not start", spawnErr.Path)
//	}
package spxlauncher
