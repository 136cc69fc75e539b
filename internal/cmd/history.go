package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/history"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
	"github.com/spf13/cobra"
)

func newHistoryCommand(cc *commandContext) *cobra.Command {
	var (
		limit  int
		runID  string
		source string
		prune  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Long: `List recent runs from the run history database.

With --run, print every file of one run. With --file, print what each run did
to one source file. With --prune, delete runs older than the given number of
days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cc.configDir()
			if err != nil {
				return err
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return fmt.Errorf("load %s: %w", config.ConfigPath(dir), err)
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			switch {
			case prune > 0:
				removed, err := store.Prune(ctx, time.Now().AddDate(0, 0, -prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d run(s) older than %d day(s)\n", removed, prune)
				return nil
			case runID != "":
				run, err := store.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", runID)
				}
				entries, err := store.RunEntries(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Run %s (%s, %s)\n", run.ID, run.Mode, log.FormatRelativeTime(run.Started))
				return log.WriteEntries(out, entries)
			case source != "":
				abs, err := filepath.Abs(source)
				if err != nil {
					return fmt.Errorf("resolve file: %w", err)
				}
				entries, err := store.SourceHistory(ctx, abs)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintf(out, "No runs touched %s.\n", abs)
					return nil
				}
				return log.WriteEntries(out, entries)
			}

			runs, err := store.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			return writeRuns(out, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the files of one run")
	cmd.Flags().StringVar(&source, "file", "", "Show the history of one source file")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete runs older than this many days")
	return cmd
}

func writeRuns(w io.Writer, runs []history.Run) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"Run", "Started", "Mode", "Sport", "Processed", "Relocated", "Skipped", "Quarantined", "Failed"})
	for _, r := range runs {
		s := r.Summary
		tw.AppendRow(table.Row{r.ID, log.FormatRelativeTime(r.Started), string(r.Mode), r.Sport,
			s.Processed, s.Relocated, s.Skipped, s.Quarantined, s.Failed})
	}
	configs := []table.ColumnConfig{{Number: 1, WidthMax: 36}}
	for n := 5; n <= 9; n++ {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}
