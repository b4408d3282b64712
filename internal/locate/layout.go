package locate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SidecarBaseName is the sidecar binary name without a platform extension.
const SidecarBaseName = "spx-server"

// LogsDirName is the directory next to the sidecar holding its log files.
const LogsDirName = "LOG"

// Layout describes how the launcher executable is packaged on disk.
type Layout int

const (
	// LayoutFlat means the launcher sits directly next to the sidecar.
	LayoutFlat Layout = iota
	// LayoutBundle means the launcher may live inside an application bundle
	// (X.app/Contents/MacOS) that sits next to the sidecar.
	LayoutBundle
)

// bundleSuffix is the nested directory pattern of an application bundle.
var bundleSuffix = []string{"Contents", "MacOS"}

// bundleDepth is how many levels to walk up from the bundle's executable
// directory to reach the directory containing X.app.
const bundleDepth = 3

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutFlat:
		return "flat"
	case LayoutBundle:
		return "bundle"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// LayoutForOS returns the packaging layout used on goos.
func LayoutForOS(goos string) Layout {
	if goos == "darwin" {
		return LayoutBundle
	}

	return LayoutFlat
}

// SidecarName returns the sidecar file name on goos.
func SidecarName(goos string) string {
	if goos == "windows" {
		return SidecarBaseName + ".exe"
	}

	return SidecarBaseName
}

// AdjustDir escapes an application bundle. For LayoutBundle, a directory
// ending in Contents/MacOS is walked up three levels; any other directory,
// or any directory under LayoutFlat, is returned cleaned but otherwise
// unchanged.
func AdjustDir(dir string, layout Layout) string {
	dir = filepath.Clean(dir)

	if layout != LayoutBundle || !hasBundleSuffix(dir) {
		return dir
	}

	for range bundleDepth {
		dir = filepath.Dir(dir)
	}

	return dir
}

func hasBundleSuffix(dir string) bool {
	parts := strings.Split(filepath.ToSlash(dir), "/")
	if len(parts) < len(bundleSuffix) {
		return false
	}

	tail := parts[len(parts)-len(bundleSuffix):]
	for i, p := range bundleSuffix {
		if tail[i] != p {
			return false
		}
	}

	return true
}

// LogsDir returns the sidecar's log directory for a launcher executable at
// exe: the layout-adjusted executable directory plus LOG. Symlinks are
// resolved when the directory exists.
func LogsDir(exe string, layout Layout) string {
	dir := filepath.Join(AdjustDir(filepath.Dir(exe), layout), LogsDirName)

	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved
	}

	return dir
}
