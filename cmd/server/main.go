package main

import (
	"fmt"
	"os"

	"github.com/mmynk/spendwise/internal/cli"
)

// Set with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cmd := cli.NewRootCommand(os.Stdout, cli.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "spendwise: %v\n", err)
		os.Exit(1)
	}
}
