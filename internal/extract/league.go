package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"github.com/jordanlambrecht/sports-media-organizer/internal/reftable"
)

var (
	// tokenSplitRe splits release names into words.
	tokenSplitRe = regexp.MustCompile(`[\s._\-]+`)

	// punctRe removes everything but letters, digits and spaces from phrases.
	punctRe = regexp.MustCompile(`[^\pL\pN ]+`)
)

// maxPhraseTokens bounds the adjacent-token phrases compared to aliases.
const maxPhraseTokens = 5

// phraseKey lower-cases s and strips punctuation so "W.W.E." and "wwe"
// compare equal.
func phraseKey(s string) string {
	s = strings.ToLower(s)
	s = tokenSplitRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// tokens splits filename, without its extension, into words.
func tokens(filename string) []string {
	var out []string
	for _, t := range tokenSplitRe.Split(media.TrimExtension(filename), -1) {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

type leaguePattern struct {
	entry reftable.Entry
	re    *regexp.Regexp
}

// League finds the league by wildcard rule, filename token, ancestor
// directory or loose alias search, in that order.
type League struct {
	env      Env
	table    *reftable.Table
	phrases  map[string]reftable.Hit
	patterns []leaguePattern
}

// NewLeague indexes the sport profile's league table.
func NewLeague(env Env) *League {
	env = env.withDefaults()
	l := &League{env: env, table: env.Profile.League, phrases: map[string]reftable.Hit{}}
	for _, e := range l.table.Entries() {
		names := append([]string{e.Canonical}, e.Aliases...)
		quoted := make([]string, 0, len(names))
		for _, name := range names {
			key := phraseKey(name)
			if _, dup := l.phrases[key]; key != "" && !dup {
				l.phrases[key] = reftable.Hit{Canonical: e.Canonical, Qualifier: e.Qualifier, Alias: name}
			}
			quoted = append(quoted, regexp.QuoteMeta(name))
		}
		l.patterns = append(l.patterns, leaguePattern{
			entry: e,
			re:    regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
		})
	}
	return l
}

func (l *League) Name() string { return "league" }

// Extract implements Extractor.
func (l *League) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.LeagueName, l.env.Config.TrustThreshold) {
		return nil, nil
	}

	if rule, trigger, ok := l.env.Profile.MatchWildcard(in.Filename, in.Path); ok {
		if v := rule.SetAttr[media.LeagueName.Key()]; v != "" {
			return []Candidate{{Slot: media.LeagueName, Value: v, Matched: trigger, Confidence: ConfidenceWildcardLeague}}, nil
		}
	}
	if l.table.Len() == 0 {
		return nil, nil
	}

	if hit, ok := l.tokenMatch(in.Filename); ok {
		return l.candidate(hit, ConfidenceToken), nil
	}
	for _, dir := range in.Ancestry {
		if hit, ok := l.table.Match(dir); ok {
			return l.candidate(hit, ConfidenceDirectory), nil
		}
	}
	for _, p := range l.patterns {
		for _, text := range []string{in.Filename, in.Path} {
			if m := p.re.FindStringSubmatch(text); m != nil {
				hit := reftable.Hit{Canonical: p.entry.Canonical, Qualifier: p.entry.Qualifier, Alias: m[1], Text: m[1]}
				return l.candidate(hit, ConfidencePattern), nil
			}
		}
	}
	return nil, nil
}

// tokenMatch compares single tokens and runs of adjacent tokens against the
// league names, leftmost and longest first.
func (l *League) tokenMatch(filename string) (reftable.Hit, bool) {
	words := tokens(filename)
	for i := range words {
		for n := min(maxPhraseTokens, len(words)-i); n >= 1; n-- {
			phrase := words[i : i+n]
			hit, ok := l.phrases[phraseKey(strings.Join(phrase, " "))]
			if !ok {
				continue
			}
			hit.Text = strings.Join(phrase, " ")
			if n > 1 {
				hit.Text = matchedSpan(filename, phrase)
			}
			return hit, true
		}
	}
	return reftable.Hit{}, false
}

// matchedSpan returns the text of filename that covers the given adjacent
// words, separators included.
func matchedSpan(filename string, words []string) string {
	lower := strings.ToLower(filename)
	first := strings.Index(lower, strings.ToLower(words[0]))
	if first < 0 {
		return strings.Join(words, " ")
	}
	end := first
	for _, w := range words {
		idx := strings.Index(lower[end:], strings.ToLower(w))
		if idx < 0 {
			return strings.Join(words, " ")
		}
		end += idx + len(w)
	}
	return filename[first:end]
}

func (l *League) candidate(hit reftable.Hit, confidence int) []Candidate {
	value := hit.Canonical
	if hit.Qualifier != "" {
		value = value + " " + hit.Qualifier
	}
	return []Candidate{{Slot: media.LeagueName, Value: value, Matched: hit.Text, Confidence: confidence}}
}
