// Command nimbusfs browses and modifies object stores as a filesystem.
package main

import (
	"fmt"
	"os"

	"github.com/3leaps/nimbusfs/internal/cmd"
)

// Set by the linker:
//
//	-ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse HEAD) -X main.buildDate=$(date -u +%F)"
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cmd.ExitCode(err))
	}
}
