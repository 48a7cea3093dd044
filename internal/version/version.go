// Package version holds the build version, set with -ldflags.
package version

import "runtime/debug"

// Version is the editorbind version.
var Version = "devel"

func init() {
	if Version != "devel" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return
	}
	Version = info.Main.Version
}
