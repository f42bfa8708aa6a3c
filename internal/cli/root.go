// Package cli is the spendwise command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmynk/spendwise/internal/config"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// globalFlags are shared by every command that loads the config.
type globalFlags struct {
	configPath string
	addr       string
	cachePath  string
	remoteURL  string
	logLevel   string
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "spendwise",
		Short:         "Spendwise budgeting server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&globals.configPath, "config", "c", "", "config file (YAML or TOML)")
	flags.StringVar(&globals.cachePath, "cache-path", "", "SQLite cache file")
	flags.StringVar(&globals.remoteURL, "remote-url", "", "PostgreSQL connection string")
	flags.StringVar(&globals.logLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(newServeCommand(globals))
	cmd.AddCommand(newMigrateCommand(out, globals))
	cmd.AddCommand(newSyncCommand(out, globals))
	cmd.AddCommand(newVersionCommand(out, build))
	return cmd
}

// loadOptions turns the flags the user actually set into config overrides.
func (g *globalFlags) loadOptions(cmd *cobra.Command) config.LoadOptions {
	opts := config.LoadOptions{ConfigPath: g.configPath}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("addr") {
		opts.Flags.Addr = &g.addr
	}
	if changed("cache-path") {
		opts.Flags.CachePath = &g.cachePath
	}
	if changed("remote-url") {
		opts.Flags.RemoteURL = &g.remoteURL
	}
	if changed("log-level") {
		opts.Flags.LogLevel = &g.logLevel
	}
	return opts
}

func newVersionCommand(out io.Writer, build BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(build)
			}

			_, err := fmt.Fprintf(out, "version=%s commit=%s build_time=%s\n", build.Version, build.Commit, build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}
