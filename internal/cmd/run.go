package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/core"
	"github.com/jordanlambrecht/sports-media-organizer/internal/extract"
	"github.com/jordanlambrecht/sports-media-organizer/internal/history"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
	"github.com/jordanlambrecht/sports-media-organizer/internal/logging"
	"github.com/jordanlambrecht/sports-media-organizer/internal/normalize"
	"github.com/jordanlambrecht/sports-media-organizer/internal/probe"
	"github.com/jordanlambrecht/sports-media-organizer/internal/tui/progress"
	"github.com/jordanlambrecht/sports-media-organizer/internal/tui/prompt"
	"github.com/jordanlambrecht/sports-media-organizer/internal/tui/theme"
	"github.com/spf13/cobra"
)

// runOptions are the flags of the run and simulate commands.
type runOptions struct {
	sport      string
	source     string
	dest       string
	mode       string
	workers    int
	automation string
	conflict   string
	noTUI      bool
}

func newRunCommand(cc *commandContext) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Organize the files under a source directory",
		Long: `Scan a source directory, extract metadata from every media file and relocate
it into the destination library.

Modes:
  live      hardlink or move files and write a job report
  dry-run   compute every destination and write a dry-run report, touch nothing
  simulate  like dry-run but only print the results`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, cc, opts)
		},
	}
	addRunFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.mode, "mode", string(log.ModeLive), "Run mode: live, dry-run or simulate")
	return cmd
}

func newSimulateCommand(cc *commandContext) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Show where files would go without touching anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.mode = string(log.ModeSimulate)
			return runOrganize(cmd, cc, opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.sport, "sport", "s", "", "Sport profile to apply")
	flags.StringVar(&opts.source, "source", "", "Directory to scan")
	flags.StringVar(&opts.dest, "dest", "", "Library root to relocate into")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Files processed in parallel (default from config)")
	flags.StringVar(&opts.automation, "automation", "", "Automation level: full-auto, prompt-on-low-score, prompt-on-any or full-manual")
	flags.StringVar(&opts.conflict, "conflict", "", "Existing destination action: skip, overwrite or rename")
	flags.BoolVar(&opts.noTUI, "no-tui", false, "Print plain output instead of the progress screen")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("dest")
}

// applyFlags overrides config values with the flags that were set.
func (o runOptions) applyFlags(cfg *config.Config) error {
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.automation != "" {
		cfg.AutomationLevel = o.automation
	}
	if o.conflict != "" {
		cfg.ConflictAction = o.conflict
	}
	return cfg.Validate()
}

func runOrganize(cmd *cobra.Command, cc *commandContext, opts runOptions) error {
	mode, err := log.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	source, err := filepath.Abs(opts.source)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	dest, err := filepath.Abs(opts.dest)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}
	dir, err := cc.configDir()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	interactive := !opts.noTUI && logging.IsTerminal(out) && logging.IsTerminal(cmd.InOrStdin())

	// The progress screen owns the terminal, so diagnostics only go to the
	// log directory while it runs.
	var logOut io.Writer = cmd.ErrOrStderr()
	if interactive {
		logOut = io.Discard
	}
	bootCfg, cfgErr := cc.loadConfig(dir)
	logger, closeLog, err := cc.newLogger(bootCfg, logOut)
	if err != nil {
		return err
	}
	defer closeLog()
	if cfgErr != nil {
		logger.Warn("config unusable, using defaults", "path", config.ConfigPath(dir), "error", cfgErr)
	}

	bundle := config.LoadBundle(dir, opts.sport, logger)
	cfg := bundle.Config
	if err := opts.applyFlags(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	var prober probe.Prober = probe.Disabled{}
	if cfg.Probe.Enabled {
		prober = probe.New(cfg.Probe.Timeout, logger)
	}
	env := extract.Env{
		Config:  cfg,
		Profile: bundle.Profile,
		Tables:  bundle.Tables,
		Prober:  prober,
		Logger:  logger,
	}
	orchestrator := core.NewOrchestrator(env, normalize.New(bundle.Global, bundle.Profile, logger))

	runID := uuid.NewString()
	reportsDir := ""
	if cfg.Reports.Enabled {
		reportsDir = cfg.Reports.Dir
	}
	session, err := log.NewSession(log.Options{
		RunID:         runID,
		Sport:         config.TitleSport(bundle.Profile.Sport),
		Mode:          mode,
		Source:        source,
		Destination:   dest,
		CommandArgs:   os.Args[1:],
		Dir:           reportsDir,
		RetentionDays: cfg.Reports.RetentionDays,
	})
	if err != nil {
		logger.Warn("old reports not cleaned up", "dir", reportsDir, "error", err)
	}
	logger = logger.With("run", runID)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg := core.EngineConfig{
		Orchestrator: orchestrator,
		Session:      session,
		Tables:       bundle.Tables,
		Logger:       logger,
		Mode:         mode,
		Source:       source,
		Destination:  dest,
	}

	var runErr error
	if interactive {
		runErr = runWithProgress(ctx, engineCfg, cfg, mode)
	} else {
		if cfg.AutomationLevel != config.AutomationFullAuto {
			if logging.IsTerminal(cmd.InOrStdin()) {
				engineCfg.Reviewer = prompt.NewLineReviewer(cmd.InOrStdin(), out)
			} else {
				logger.Warn("no terminal for prompts, continuing without review", "automation", cfg.AutomationLevel)
			}
		}
		runErr = core.NewEngine(engineCfg).Run(ctx)
	}

	return finishRun(cmd, cfg, session, logger, runErr)
}

func runWithProgress(ctx context.Context, engineCfg core.EngineConfig, cfg *config.Config, mode log.Mode) error {
	var reviewer *progress.Reviewer
	if cfg.AutomationLevel != config.AutomationFullAuto {
		reviewer = progress.NewReviewer()
		engineCfg.Reviewer = reviewer
	}
	engine := core.NewEngine(engineCfg)
	title := fmt.Sprintf("Organizing %s (%s)", filepath.Base(engineCfg.Source), mode)
	model := progress.NewRunModel(ctx, engine, reviewer, title, theme.Default())

	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	// The screen may be gone before the engine is; the report is written
	// only after the last in-flight file.
	model.Wait()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("progress screen: %w", err)
	}
	if model.Err() != nil {
		return model.Err()
	}
	if model.Canceled() || ctx.Err() != nil {
		return context.Canceled
	}
	return nil
}

// finishRun writes the report, records history and prints the summary.
func finishRun(cmd *cobra.Command, cfg *config.Config, session *log.Session, logger *slog.Logger, runErr error) error {
	out := cmd.OutOrStdout()
	reportPath, err := session.Close()
	if err != nil {
		logger.Error("report not written", "error", err)
	}
	meta := session.Metadata()
	entries := session.Entries()

	if cfg.History.Enabled && meta.Mode != log.ModeSimulate {
		if err := recordHistory(cfg.History.Path, meta, entries, reportPath); err != nil {
			logger.Warn("run history not updated", "path", cfg.History.Path, "error", err)
		}
	}

	if meta.Mode != log.ModeLive {
		if err := log.WriteEntries(out, entries); err != nil {
			return err
		}
	}
	if err := log.WriteSummary(out, meta); err != nil {
		return err
	}
	if reportPath != "" {
		fmt.Fprintf(out, "Report written to %s\n", reportPath)
	}
	return runErr
}

func recordHistory(path string, meta log.Metadata, entries []log.Entry, reportPath string) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(context.Background(), meta, entries, reportPath)
}
