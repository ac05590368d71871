// Package version reports build metadata for the commands.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata, overridden with -ldflags "-X spm-spots/internal/version.Commit=...".
var (
	Version   = "0.1.0"
	Commit    = ""
	BuildTime = "unknown"
)

// commit returns Commit, falling back to the VCS revision the toolchain
// stamped into the binary.
func commit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "unknown"
}

// String returns the line printed by the -version flag of command.
func String(command string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", command, Version, commit(), BuildTime)
}
