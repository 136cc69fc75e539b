package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Event matches the sport's named events, then its event patterns.
type Event struct {
	env Env
}

// NewEvent creates the event extractor.
func NewEvent(env Env) *Event {
	return &Event{env: env.withDefaults()}
}

func (e *Event) Name() string { return "event" }

// Extract implements Extractor.
func (e *Event) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.EventName, e.env.Config.TrustThreshold) {
		return nil, nil
	}
	if hit, ok := e.env.Profile.Events.Match(in.Filename); ok {
		return []Candidate{{Slot: media.EventName, Value: hit.Canonical, Matched: hit.Text, Confidence: ConfidenceEventAlias}}, nil
	}
	for _, re := range e.env.Profile.EventRegexps() {
		sub := re.FindStringSubmatch(in.Filename)
		if sub == nil {
			continue
		}
		text := sub[0]
		if len(sub) > 1 && sub[1] != "" {
			text = sub[1]
		}
		if name := TitleCase(text); name != "" {
			return []Candidate{{Slot: media.EventName, Value: name, Matched: text, Confidence: ConfidenceEventPattern}}, nil
		}
	}
	return nil, nil
}

// TitleCase turns a dotted or underscored fragment into spaced title case:
// "clash.of.the_champions" becomes "Clash Of The Champions".
func TitleCase(text string) string {
	words := strings.Fields(tokenSplitRe.ReplaceAllString(text, " "))
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

var (
	// partRes find explicit part and episode numbers.
	partRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:^|[^a-z])(part[.\-_ ]?(\d{1,3}))(?:[^0-9]|$)`),
		regexp.MustCompile(`(?i)(?:^|[^a-z])(ep(?:isode)?[.\-_ ]?(\d{1,3}))(?:[^0-9]|$)`),
	}
)

// EpisodePart finds "Part 2" or "Ep 3" style markers.
type EpisodePart struct {
	env Env
}

// NewEpisodePart creates the episode part extractor.
func NewEpisodePart(env Env) *EpisodePart {
	return &EpisodePart{env: env.withDefaults()}
}

func (p *EpisodePart) Name() string { return "episode_part" }

// Extract implements Extractor.
func (p *EpisodePart) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.EpisodePart, p.env.Config.TrustThreshold) {
		return nil, nil
	}
	name := media.TrimExtension(in.Filename)
	for _, re := range partRes {
		loc := re.FindStringSubmatchIndex(name)
		if loc == nil {
			continue
		}
		n, err := strconv.Atoi(name[loc[4]:loc[5]])
		if err != nil || n == 0 {
			continue
		}
		return []Candidate{{Slot: media.EpisodePart, Value: PartLabel(n), Matched: name[loc[2]:loc[3]], Confidence: ConfidencePart}}, nil
	}
	return nil, nil
}
