package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
	"github.com/mhmtszr/concurrent-swiss-map"
	"golang.org/x/sync/errgroup"
)

// EngineConfig configures one organizer run.
type EngineConfig struct {
	Orchestrator *Orchestrator
	Session      *log.Session
	Tables       config.Tables
	Logger       *slog.Logger
	Mode         log.Mode
	Source       string
	Destination  string
	// Files skips scanning when set.
	Files    []string
	Workers  int
	Reviewer Reviewer
}

// Summary captures the state of a run at a point in time.
type Summary struct {
	Total         int
	Processed     int
	Relocated     int
	Skipped       int
	Quarantined   int
	Failed        int
	ActiveWorkers int
	WorkerLimit   int
	Scanning      bool
	LastItem      string
	Done          bool
	Canceled      bool
}

// Event is a progress update emitted by the engine. Result is set when a
// file finished.
type Event struct {
	Summary Summary
	Result  *Result
	Err     error
}

// Engine processes files over a bounded worker pool and records every
// outcome in the run's report session.
type Engine struct {
	cfg    EngineConfig
	config *config.Config
	logger *slog.Logger

	results *csmap.CsMap[string, *Result]

	summaryMu sync.RWMutex
	summary   Summary

	errorsMu sync.Mutex
	errors   []error

	// reviewMu serializes prompts; only one question is on screen at a time.
	reviewMu sync.Mutex

	done chan struct{}
}

// NewEngine constructs an engine with defaults applied.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Mode == "" {
		cfg.Mode = log.ModeLive
	}
	conf := cfg.Orchestrator.Config()
	if cfg.Workers <= 0 {
		cfg.Workers = conf.Workers
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:     cfg,
		config:  conf,
		logger:  cfg.Logger,
		results: csmap.Create[string, *Result](),
		summary: Summary{WorkerLimit: cfg.Workers},
		done:    make(chan struct{}),
	}
}

// Start begins processing and returns a stream of progress events. The
// channel is closed when the run is over. Consumers drain it until it closes;
// once ctx is canceled they may stop reading and wait on Done instead.
func (e *Engine) Start(ctx context.Context) <-chan Event {
	events := make(chan Event, 128)
	go e.run(ctx, events)
	return events
}

// Run processes every file and blocks until the run is over. It returns the
// scan error or the context error of an aborted run.
func (e *Engine) Run(ctx context.Context) error {
	var last error
	for ev := range e.Start(ctx) {
		if ev.Err != nil && ev.Result == nil {
			last = ev.Err
		}
	}
	if last == nil {
		last = ctx.Err()
	}
	return last
}

// Done returns a channel closed once the run is over and the event channel
// has been closed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Results returns the results keyed by source path. The map is complete once
// the run is over.
func (e *Engine) Results() map[string]*Result {
	out := make(map[string]*Result, e.results.Count())
	e.results.Range(func(key string, value *Result) bool {
		out[key] = value
		return false
	})
	return out
}

// Errors returns a copy of the per-file errors.
func (e *Engine) Errors() []error {
	e.errorsMu.Lock()
	defer e.errorsMu.Unlock()
	if len(e.errors) == 0 {
		return nil
	}
	cloned := make([]error, len(e.errors))
	copy(cloned, e.errors)
	return cloned
}

// Config returns the configuration snapshot the run uses.
func (e *Engine) Config() *config.Config {
	return e.config
}

// SummarySnapshot returns the latest progress summary.
func (e *Engine) SummarySnapshot() Summary {
	e.summaryMu.RLock()
	defer e.summaryMu.RUnlock()
	return e.summary
}

func (e *Engine) run(ctx context.Context, events chan<- Event) {
	defer close(e.done)
	defer close(events)

	if err := ctx.Err(); err != nil {
		e.finish(ctx, events, err)
		return
	}

	files := e.cfg.Files
	if files == nil {
		e.updateSummary(func(s *Summary) { s.Scanning = true })
		e.emit(ctx, events, nil, nil)

		var err error
		files, err = Scan(ctx, e.cfg.Source, e.config, ScanOptions{})
		e.updateSummary(func(s *Summary) { s.Scanning = false })
		if err != nil {
			e.logger.Error("scan failed", "source", e.cfg.Source, "error", err)
			e.finish(ctx, events, err)
			return
		}
	}
	e.updateSummary(func(s *Summary) { s.Total = len(files) })
	e.logger.Info("run started",
		"mode", string(e.cfg.Mode),
		"files", len(files),
		"workers", e.cfg.Workers,
		"source", e.cfg.Source,
		"destination", e.cfg.Destination,
	)
	e.emit(ctx, events, nil, nil)

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	// Files already started finish even when the run is aborted.
	work := context.WithoutCancel(ctx)
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// g.Go may have waited for a free worker past the abort.
			if ctx.Err() != nil {
				return nil
			}
			e.updateSummary(func(s *Summary) { s.ActiveWorkers++ })
			res := e.processFile(work, path)
			e.results.Store(path, res)
			e.updateSummary(func(s *Summary) {
				s.ActiveWorkers--
				s.Processed++
				s.LastItem = filepath.Base(path)
			})
			e.emit(ctx, events, res, nil)
			return nil
		})
	}
	_ = g.Wait()

	if e.cfg.Mode.Mutates() {
		if err := e.cfg.Tables.Persist(); err != nil {
			e.logger.Warn("reference tables not saved", "error", err)
		}
	}
	e.finish(ctx, events, ctx.Err())
}

func (e *Engine) finish(ctx context.Context, events chan<- Event, err error) {
	e.updateSummary(func(s *Summary) {
		s.Done = true
		s.ActiveWorkers = 0
		s.Canceled = errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	})
	summary := e.SummarySnapshot()
	e.logger.Info("run finished",
		"processed", summary.Processed,
		"relocated", summary.Relocated,
		"skipped", summary.Skipped,
		"quarantined", summary.Quarantined,
		"failed", summary.Failed,
		"canceled", summary.Canceled,
	)
	// After cancellation the consumer may be gone. The closing summary is
	// still delivered when the buffer has room, and SummarySnapshot has it
	// either way.
	ev := Event{Summary: summary, Err: err}
	select {
	case events <- ev:
	case <-ctx.Done():
		select {
		case events <- ev:
		default:
		}
	}
}

// processFile runs the whole pipeline for one file and records the outcome.
func (e *Engine) processFile(ctx context.Context, path string) *Result {
	res := e.cfg.Orchestrator.Process(ctx, path)
	entry := log.Entry{Source: path}

	if res.State == StateFailed {
		e.fail(&res, &entry, res.Err())
		return &res
	}

	e.review(ctx, &res)
	e.cfg.Orchestrator.Finalize(&res, e.cfg.Destination)
	entry.Confidence = res.Confidence
	entry.Slots = res.Record.Snapshot()
	entry.Reason = res.Reason

	conflict := e.conflictAction(ctx, &res)
	rel, err := Relocate(path, res.Destination, RelocateOptions{
		Mode:     e.config.RelocationMode,
		Conflict: conflict,
		DryRun:   !e.cfg.Mode.Mutates(),
	})
	entry.Destination = rel.Destination
	if err != nil {
		e.fail(&res, &entry, err)
		return &res
	}
	res.Destination = rel.Destination
	entry.Operation = rel.Operation

	switch {
	case rel.Skipped:
		entry.Outcome = log.OutcomeSkipped
		entry.Reason = rel.Reason
		e.logger.Warn("relocation skipped", "file", filepath.Base(path), "destination", rel.Destination, "reason", rel.Reason)
		e.updateSummary(func(s *Summary) { s.Skipped++ })
	case res.Quarantined:
		entry.Outcome = log.OutcomeQuarantined
		e.updateSummary(func(s *Summary) { s.Quarantined++ })
	default:
		entry.Outcome = log.OutcomeRelocated
		if rel.Reason != "" {
			entry.Reason = rel.Reason
		}
		e.logger.Info("file relocated",
			"file", filepath.Base(path),
			"destination", rel.Destination,
			"confidence", res.Confidence,
			"operation", string(rel.Operation),
			"mode", string(e.cfg.Mode),
		)
		e.updateSummary(func(s *Summary) { s.Relocated++ })
	}
	e.record(entry)
	return &res
}

func (e *Engine) fail(res *Result, entry *log.Entry, err error) {
	if err == nil {
		err = fmt.Errorf("%s: processing failed", filepath.Base(res.Source))
	}
	res.State = StateFailed
	res.Errors = append(res.Errors, err)
	entry.Outcome = log.OutcomeFailed
	entry.Error = err.Error()
	entry.Operation = log.OpNone

	e.logger.Error("file failed", "file", filepath.Base(res.Source), "error", err)
	e.errorsMu.Lock()
	e.errors = append(e.errors, fmt.Errorf("%s: %w", res.Source, err))
	e.errorsMu.Unlock()
	e.updateSummary(func(s *Summary) { s.Failed++ })
	e.record(*entry)
}

func (e *Engine) record(entry log.Entry) {
	if e.cfg.Session != nil {
		e.cfg.Session.Record(entry)
	}
}

// review asks the reviewer about the slots the automation level selects.
func (e *Engine) review(ctx context.Context, res *Result) {
	if e.cfg.Reviewer == nil {
		return
	}
	slots := PromptSlots(e.config.AutomationLevel, *res, e.config)
	if len(slots) == 0 {
		return
	}
	e.reviewMu.Lock()
	defer e.reviewMu.Unlock()

	corrections, err := e.cfg.Reviewer.ReviewSlots(ctx, SlotReview{
		Source:     res.Source,
		Record:     res.Record,
		Confidence: res.Confidence,
		Slots:      slots,
	})
	if err != nil {
		e.logger.Warn("slot review abandoned", "file", filepath.Base(res.Source), "error", err)
		return
	}
	ApplyCorrections(res, corrections, e.config)
}

// conflictAction returns the configured conflict action, asking the reviewer
// first when the destination exists and the run is interactive.
func (e *Engine) conflictAction(ctx context.Context, res *Result) string {
	action := e.config.ConflictAction
	if e.cfg.Reviewer == nil || e.config.AutomationLevel == config.AutomationFullAuto {
		return action
	}
	if !DestinationExists(res.Destination) {
		return action
	}
	e.reviewMu.Lock()
	defer e.reviewMu.Unlock()

	choice, err := e.cfg.Reviewer.ResolveConflict(ctx, ConflictReview{
		Source:      res.Source,
		Destination: res.Destination,
		Default:     action,
	})
	if err != nil || choice == "" {
		return action
	}
	return choice
}

func (e *Engine) updateSummary(fn func(*Summary)) {
	e.summaryMu.Lock()
	fn(&e.summary)
	e.summaryMu.Unlock()
}

func (e *Engine) emit(ctx context.Context, events chan<- Event, res *Result, err error) {
	ev := Event{Summary: e.SummarySnapshot(), Result: res, Err: err}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
