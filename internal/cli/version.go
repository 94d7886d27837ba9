package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time. Without them, the VCS stamp from
// `go build` fills Commit and BuildDate.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type buildStamp struct {
	version, commit, date string
	dirty                 bool
}

func currentBuild() buildStamp {
	b := buildStamp{version: Version, commit: Commit, date: BuildDate}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.commit == "unknown" && len(s.Value) >= 12 {
				b.commit = s.Value[:12]
			}
		case "vcs.time":
			if b.date == "unknown" {
				b.date = s.Value
			}
		case "vcs.modified":
			b.dirty = s.Value == "true"
		}
	}
	return b
}

func (b buildStamp) commitLabel() string {
	if b.dirty {
		return b.commit + "-dirty"
	}
	return b.commit
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		b := currentBuild()
		fmt.Fprintf(cmd.OutOrStdout(), "rapport %s (commit: %s, built: %s, %s %s/%s)\n",
			b.version, b.commitLabel(), b.date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// VersionString is reported by the health endpoint.
func VersionString() string {
	b := currentBuild()
	return fmt.Sprintf("%s (%s)", b.version, b.commitLabel())
}
