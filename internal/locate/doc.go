// Package locate resolves the path of the spx-server sidecar binary.
//
// Resolution searches in the following order:
//  1. An explicit path (Config.SidecarPath), if provided
//  2. The sidecar name next to the running executable, after escaping a
//     macOS application bundle (X.app/Contents/MacOS)
//  3. The path saved in <user-config-dir>/SPX/config.json
//  4. A path chosen interactively through a Picker, saved for next time
//
//	locator := locate.New(&locate.Config{
//	    Picker: picker,
//	    Logger: slog.Default(),
//	})
//	resolved, err := locator.Resolve(ctx)
//
// Nothing is cached between calls.
package locate
