// Package core turns scanned files into relocated media: it runs the
// extraction pipeline per file, builds destinations, applies quarantine and
// conflict rules, and drives the worker pool.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/extract"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"github.com/jordanlambrecht/sports-media-organizer/internal/normalize"
)

// State is the processing stage a file reached.
type State int

const (
	StateInitialized State = iota
	StateWildcardApplied
	StateExtracting
	StateAggregated
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateWildcardApplied:
		return "wildcard-applied"
	case StateExtracting:
		return "extracting"
	case StateAggregated:
		return "aggregated"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is everything the pipeline learned about one file.
type Result struct {
	Source     string
	Record     media.Record
	Confidence int
	State      State
	// Wildcard is the trigger of the wildcard rule that applied, if any.
	Wildcard    string
	Errors      []error
	Quarantined bool
	Reason      string
	Destination string
}

// Err joins the extractor errors collected for the file.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// Orchestrator runs the wildcard stage and the extractors for one file at a
// time. It holds no per-file state and is safe for concurrent use.
type Orchestrator struct {
	env        extract.Env
	norm       *normalize.Normalizer
	extractors []extract.Extractor
	logger     *slog.Logger
}

// NewOrchestrator builds an orchestrator over the standard extractor
// pipeline. A nil normalizer leaves paths untouched.
func NewOrchestrator(env extract.Env, norm *normalize.Normalizer) *Orchestrator {
	if env.Config == nil {
		env.Config = config.DefaultConfig()
	}
	if env.Profile == nil {
		env.Profile = config.EmptyProfile("")
	}
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		env:        env,
		norm:       norm,
		extractors: extract.Pipeline(env),
		logger:     env.Logger,
	}
}

// WithExtractors replaces the pipeline, mainly for tests.
func (o *Orchestrator) WithExtractors(extractors ...extract.Extractor) *Orchestrator {
	clone := *o
	clone.extractors = extractors
	return &clone
}

// Config returns the configuration snapshot the orchestrator runs with.
func (o *Orchestrator) Config() *config.Config { return o.env.Config }

// Process extracts every slot for the file at path and computes the overall
// confidence. The returned result is in StateAggregated unless the file could
// not be processed at all.
func (o *Orchestrator) Process(ctx context.Context, path string) Result {
	res := Result{
		Source: path,
		Record: media.NewRecord(o.env.Profile.Sport, path),
		State:  StateInitialized,
	}
	if err := ctx.Err(); err != nil {
		res.State = StateFailed
		res.Errors = append(res.Errors, err)
		return res
	}

	normalized := path
	if o.norm != nil {
		normalized = o.norm.NormalizePath(path)
	}
	in := extract.NewInput(path, normalized)
	if media.TrimExtension(in.Filename) == "" {
		res.State = StateFailed
		res.Errors = append(res.Errors, fmt.Errorf("%s: nothing left to extract after normalization", filepath.Base(path)))
		return res
	}

	in = o.applyWildcard(&res, in)
	res.State = StateWildcardApplied

	res.State = StateExtracting
	for _, ex := range o.extractors {
		cands, err := o.run(ctx, ex, in, res.Record)
		if err != nil {
			o.logger.Warn("extractor failed", "extractor", ex.Name(), "file", in.Filename, "error", err)
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", ex.Name(), err))
			continue
		}
		for _, c := range cands {
			weight := o.env.Config.Weight(c.Slot.Key())
			if res.Record.Fill(c.Slot, c.Value, c.Confidence, c.Matched, weight, o.env.Config.ConfidenceThreshold) {
				o.logger.Debug("slot filled",
					"file", in.Filename,
					"slot", c.Slot.Key(),
					"value", c.Value,
					"confidence", c.Confidence,
					"extractor", ex.Name(),
				)
			}
		}
	}

	markUnknown(&res.Record)
	res.Confidence = Aggregate(res.Record, o.env.Config)
	res.State = StateAggregated
	return res
}

// run calls one extractor, turning a panic into an error.
func (o *Orchestrator) run(ctx context.Context, ex extract.Extractor, in extract.Input, rec media.Record) (cands []extract.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ex.Extract(ctx, in, rec)
}

// applyWildcard applies the first matching wildcard rule of the sport profile
// and returns the working input with any requested text removed.
func (o *Orchestrator) applyWildcard(res *Result, in extract.Input) extract.Input {
	rule, trigger, ok := o.env.Profile.MatchWildcard(in.Filename, in.Path)
	if !ok {
		return in
	}
	res.Wildcard = trigger

	for key, value := range rule.SetAttr {
		switch key {
		case config.AssignRemoveFromFilename, config.AssignRemoveFromFilepath, config.AssignSingleSeason:
			continue
		}
		slot, ok := media.ParseSlot(key)
		if !ok {
			o.logger.Debug("wildcard assigns unknown slot", "slot", key, "trigger", trigger)
			continue
		}
		confidence := extract.ConfidenceExact
		if slot == media.LeagueName {
			confidence = extract.ConfidenceWildcardLeague
		}
		res.Record.Set(slot, value, confidence)
	}
	if rule.SingleSeason() {
		res.Record.Set(media.SeasonName, "Season 01", extract.ConfidenceSingleSeason)
	}

	filename, dir := in.Filename, filepath.Dir(in.Path)
	if text := rule.SetAttr[config.AssignRemoveFromFilename]; text != "" {
		filename = removeFold(filename, text)
	}
	if text := rule.SetAttr[config.AssignRemoveFromFilepath]; text != "" {
		dir = removeFold(dir, text)
	}
	if filename != in.Filename || dir != filepath.Dir(in.Path) {
		in = extract.NewInput(in.Source, filepath.Join(dir, normalize.Clean(filename)))
	}

	o.logger.Debug("wildcard applied", "file", in.Filename, "trigger", trigger)
	return in
}

// removeFold deletes every case-insensitive occurrence of literal from text.
func removeFold(text, literal string) string {
	if literal == "" {
		return text
	}
	lower, needle := strings.ToLower(text), strings.ToLower(literal)
	var b strings.Builder
	for {
		i := strings.Index(lower, needle)
		if i < 0 || len(lower) != len(text) {
			break
		}
		b.WriteString(text[:i])
		text, lower = text[i+len(needle):], lower[i+len(needle):]
	}
	b.WriteString(text)
	return b.String()
}

// markUnknown writes the Unknown placeholder into the league and date slots
// when no extractor could fill them.
func markUnknown(rec *media.Record) {
	for _, s := range []media.Slot{media.LeagueName, media.AirYear, media.AirMonth, media.AirDay} {
		if !rec.IsFilled(s) {
			rec.Set(s, media.Unknown, 0)
		}
	}
}

// Aggregate computes the overall confidence: the weighted mean of every
// weighted slot, where missing slots count as zero but keep their weight.
func Aggregate(rec media.Record, cfg *config.Config) int {
	var sum, total float64
	for _, s := range media.Slots() {
		w := cfg.Weight(s.Key())
		if w <= 0 {
			continue
		}
		total += w
		if v := rec.Get(s); v.Filled {
			sum += float64(v.Confidence) * w
		}
	}
	if total == 0 {
		return 0
	}
	return min(100, int(sum/total))
}

// Finalize computes the destination of an aggregated result below root and
// applies the quarantine rules.
func (o *Orchestrator) Finalize(res *Result, root string) {
	if res.State == StateFailed {
		return
	}
	cfg := o.env.Config
	folder, filename := BuildDestination(res.Record, res.Confidence, cfg)
	res.Destination = filepath.Join(root, folder, filename)

	if quarantined, reason := Quarantine(*res, cfg); quarantined {
		res.Quarantined = true
		res.Reason = reason
		res.Destination = QuarantinePath(root, res.Source, cfg)
		o.logger.Info("file quarantined", "file", filepath.Base(res.Source), "reason", reason)
	}
	res.State = StateFinalized
}
