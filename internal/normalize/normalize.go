// Package normalize rewrites raw filenames and directory names with the
// configured substitutions and filters before any metadata is extracted.
package normalize

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
)

// Scope selects which substitution rules apply.
type Scope int

const (
	ScopeFilename Scope = iota
	ScopeDirectory
)

func (s Scope) String() string {
	if s == ScopeDirectory {
		return "directory"
	}
	return "filename"
}

const regexFilterPrefix = "re:"

var (
	// whitespaceRe collapses runs of whitespace.
	whitespaceRe = regexp.MustCompile(`\s+`)

	// separatorRuns collapse repeated separators into one.
	separatorRuns = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\.{2,}`), "."},
		{regexp.MustCompile(`-{2,}`), "-"},
		{regexp.MustCompile(`_{2,}`), "_"},
	}
)

const trimSet = " ._-"

type substitution struct {
	original string
	replace  string
	dirs     bool
	re       *regexp.Regexp
}

type filter struct {
	pattern string
	re      *regexp.Regexp
}

type ruleSet struct {
	origin string
	subs   []substitution
	filter []filter
}

// Normalizer applies global rules, then sport rules, then separator cleanup.
// It is safe for concurrent use once constructed.
type Normalizer struct {
	sets   []ruleSet
	logger *slog.Logger
}

// New compiles the global and sport rules. Invalid regex filters are logged
// and skipped. A nil profile means no sport rules.
func New(global config.GlobalOverrides, profile *config.SportProfile, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := &Normalizer{logger: logger}
	n.sets = append(n.sets, compile("global", global.Substitutions, global.Filters, logger))
	if profile != nil {
		n.sets = append(n.sets, compile("sport", profile.Substitutions, profile.Filters, logger))
	}
	return n
}

func compile(origin string, subs []config.Substitution, filters []config.Filter, logger *slog.Logger) ruleSet {
	rs := ruleSet{origin: origin}
	for _, s := range subs {
		if s.Original == "" {
			continue
		}
		rs.subs = append(rs.subs, substitution{
			original: s.Original,
			replace:  s.Replace,
			dirs:     s.AppliesToDirectories(),
			re:       regexp.MustCompile(`(?i)` + regexp.QuoteMeta(s.Original)),
		})
	}
	for _, f := range filters {
		pattern := strings.TrimSpace(f.Match)
		if pattern == "" {
			continue
		}
		expr := `(?i)` + regexp.QuoteMeta(pattern)
		if strings.HasPrefix(pattern, regexFilterPrefix) {
			expr = `(?i)` + strings.TrimPrefix(pattern, regexFilterPrefix)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			logger.Warn("skipping invalid filter", "origin", origin, "pattern", pattern, "error", err)
			continue
		}
		rs.filter = append(rs.filter, filter{pattern: pattern, re: re})
	}
	return rs
}

// Normalize rewrites raw for the given scope. Substitutions replace only the
// first match; filters strip every match.
func (n *Normalizer) Normalize(raw string, scope Scope) string {
	text := raw
	for _, rs := range n.sets {
		for _, s := range rs.subs {
			if scope == ScopeDirectory && !s.dirs {
				continue
			}
			loc := s.re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			text = text[:loc[0]] + s.replace + text[loc[1]:]
			n.logger.Debug("substitution applied", "origin", rs.origin, "scope", scope.String(), "original", s.original, "replace", s.replace)
		}
	}
	for _, rs := range n.sets {
		for _, f := range rs.filter {
			if !f.re.MatchString(text) {
				continue
			}
			text = f.re.ReplaceAllLiteralString(text, "")
			n.logger.Debug("filter applied", "origin", rs.origin, "scope", scope.String(), "pattern", f.pattern)
		}
	}
	return Clean(text)
}

// NormalizePath normalizes each directory element with directory scope and
// the base name with filename scope. Empty elements are dropped.
func (n *Normalizer) NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	volume := filepath.VolumeName(path)
	rest := path[len(volume):]
	sep := string(filepath.Separator)
	isAbs := strings.HasPrefix(rest, sep)

	parts := strings.Split(strings.Trim(rest, sep), sep)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		scope := ScopeDirectory
		if i == len(parts)-1 {
			scope = ScopeFilename
		}
		if cleaned := n.Normalize(part, scope); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	joined := strings.Join(out, sep)
	if isAbs {
		joined = sep + joined
	}
	return volume + joined
}

// Clean collapses whitespace and repeated separators and trims separators
// from both ends.
func Clean(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	for _, run := range separatorRuns {
		text = run.re.ReplaceAllString(text, run.repl)
	}
	return strings.Trim(text, trimSet)
}
