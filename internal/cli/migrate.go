package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/spendwise/internal/config"
	"github.com/mmynk/spendwise/internal/events"
)

func newMigrateCommand(out io.Writer, globals *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schemas and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(globals.loadOptions(cmd))
			if err != nil {
				return err
			}
			logger, closer, err := newLogger(cfg, new(slog.LevelVar))
			if err != nil {
				return err
			}
			defer closer.Close()

			st, err := openStores(cmd.Context(), cfg, events.Nop{}, nil, logger)
			if err != nil {
				return err
			}
			if err := st.Close(); err != nil {
				return err
			}

			_, err = fmt.Fprintf(out, "cache schema ready: %s\n", cfg.Database.CachePath)
			if err == nil && !cfg.Offline() {
				_, err = fmt.Fprintln(out, "remote schema ready")
			}
			return err
		},
	}
}
