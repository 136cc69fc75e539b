package cmd

import (
	"fmt"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
	"github.com/spf13/cobra"
)

func newUndoCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "undo [report]",
		Short: "Reverse the relocations of a live run",
		Long: `Reverse the relocations recorded in a job report. Hardlinks are removed and
moved files are moved back. Without an argument the newest job report is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				report *log.Report
				path   string
				err    error
			)
			if len(args) == 1 {
				path = args[0]
				report, err = log.ReadReport(path)
			} else {
				var dir string
				if dir, err = cc.configDir(); err != nil {
					return err
				}
				cfg, cfgErr := config.Load(dir)
				if cfgErr != nil {
					return fmt.Errorf("load %s: %w", config.ConfigPath(dir), cfgErr)
				}
				report, path, err = log.LatestJobReport(cfg.Reports.Dir)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Undoing run %s from %s (%s)\n", report.Metadata.RunID, path, log.FormatRelativeTime(report.Metadata.Started))
			successful, failed, errs := log.UndoReport(report)
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", e)
			}
			fmt.Fprintf(out, "Reverted %d file(s), %d failed\n", successful, failed)
			if failed > 0 || (successful == 0 && len(errs) > 0) {
				return fmt.Errorf("undo incomplete: %d failure(s)", max(failed, len(errs)))
			}
			return nil
		},
	}
}
