package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/spendwise/internal/config"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/storage/unified"
)

func newSyncCommand(out io.Writer, globals *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued offline writes against the remote store once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(globals.loadOptions(cmd))
			if err != nil {
				return err
			}
			if cfg.Offline() {
				return errNoRemote
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
			defer st.Close()

			report, err := st.repo.Sync(cmd.Context())
			printReport(out, report)
			return err
		},
	}
}

func printReport(out io.Writer, report unified.SyncReport) {
	fmt.Fprintf(out, "applied=%d failed=%d remaining=%d\n", report.Applied, report.Failed, report.Remaining)
}
