// Package extract infers media record slots from a normalized filename and
// its directory path. Each metadata field has its own Extractor; the
// orchestrator in package core runs them in dependency order.
package extract

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"github.com/jordanlambrecht/sports-media-organizer/internal/probe"
)

// Confidence scores. Only their relative order matters: explicit overrides
// beat table and probe hits, which beat directory inference, which beats
// loose pattern matches.
const (
	ConfidenceExact          = 100
	ConfidenceWildcardLeague = 95
	ConfidenceSingleSeason   = 95
	ConfidenceToken          = 90
	ConfidenceFullDate       = 90
	ConfidenceExplicitSeason = 90
	ConfidenceEventAlias     = 90
	ConfidenceProbeDetail    = 90
	ConfidenceReleaseType    = 90
	ConfidenceReleaseGroup   = 90
	ConfidenceTitle          = 85
	ConfidenceYearSeason     = 80
	ConfidenceProbeCodec     = 80
	ConfidencePart           = 80
	ConfidenceDirectory      = 75
	ConfidenceDirSeason      = 75
	ConfidenceIncompleteDate = 70
	ConfidenceDirYearSeason  = 70
	ConfidenceGroupPattern   = 70
	ConfidencePattern        = 60
	ConfidenceEventPattern   = 60
	ConfidenceDirectoryYear  = 50
	ConfidenceUnknownGroup   = 50
)

// UnknownGroup is the placeholder release group used when append_unknown is
// enabled and no group could be found.
const UnknownGroup = "UnKn0wn"

// Input is what every extractor sees for one file. Filename and Path are
// already normalized; Ancestry lists the normalized directory names above
// the file, innermost first. Source is the untouched on-disk path used for
// probing.
type Input struct {
	Filename string
	Path     string
	Ancestry []string
	Source   string
}

// NewInput builds an Input for the file at source whose normalized path is
// normalized.
func NewInput(source, normalized string) Input {
	return Input{
		Filename: filepath.Base(normalized),
		Path:     normalized,
		Ancestry: media.Ancestry(normalized),
		Source:   source,
	}
}

// Candidate is a proposed slot value. Matched holds the text it was read
// from, if any.
type Candidate struct {
	Slot       media.Slot
	Value      string
	Matched    string
	Confidence int
}

// Extractor proposes values for one metadata field. Implementations never
// modify rec; they read it only to skip work for slots that are already
// trusted.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, in Input, rec media.Record) ([]Candidate, error)
}

// Env carries the run-wide collaborators extractors need. Everything in it is
// read-only during a run except the reference table stores.
type Env struct {
	Config  *config.Config
	Profile *config.SportProfile
	Tables  config.Tables
	Prober  probe.Prober
	Logger  *slog.Logger
}

// withDefaults fills unset collaborators so extractors can be built from a
// partial Env in tests and tools.
func (e Env) withDefaults() Env {
	if e.Config == nil {
		e.Config = config.DefaultConfig()
	}
	if e.Profile == nil {
		e.Profile = config.EmptyProfile("")
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	defaults := config.DefaultTables()
	if e.Tables.Codecs == nil {
		e.Tables.Codecs = defaults.Codecs
	}
	if e.Tables.Resolutions == nil {
		e.Tables.Resolutions = defaults.Resolutions
	}
	if e.Tables.ReleaseFormats == nil {
		e.Tables.ReleaseFormats = defaults.ReleaseFormats
	}
	if e.Tables.ReleaseTypes == nil {
		e.Tables.ReleaseTypes = defaults.ReleaseTypes
	}
	if e.Tables.ReleaseGroups == nil {
		e.Tables.ReleaseGroups = defaults.ReleaseGroups
	}
	return e
}

// Pipeline returns the extractors in the order the orchestrator must run
// them. Title derivation comes last because it strips what the others found.
func Pipeline(env Env) []Extractor {
	env = env.withDefaults()
	return []Extractor{
		NewExtension(env),
		NewLeague(env),
		NewDate(env),
		NewEvent(env),
		NewEpisodePart(env),
		NewCodec(env),
		NewResolution(env),
		NewFPS(env),
		NewReleaseFormat(env),
		NewReleaseType(env),
		NewReleaseGroup(env),
		NewEpisodeTitle(env),
	}
}

// untrusted drops candidates for slots rec already holds above the trust
// limit.
func untrusted(rec media.Record, limit int, cands []Candidate) []Candidate {
	out := cands[:0]
	for _, c := range cands {
		if !rec.Trusted(c.Slot, limit) {
			out = append(out, c)
		}
	}
	return out
}

// probeInfo asks the prober for stream details. Failures are logged and
// reported as nil.
func probeInfo(ctx context.Context, env Env, path string) *probe.Info {
	if env.Prober == nil || path == "" {
		return nil
	}
	info, err := env.Prober.Probe(ctx, path)
	if err != nil {
		env.Logger.Debug("probe unavailable", "path", path, "error", err)
		return nil
	}
	return info
}
