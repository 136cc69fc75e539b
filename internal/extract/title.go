package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"github.com/jordanlambrecht/sports-media-organizer/internal/reftable"
)

// maxDateStrips bounds how many date-shaped fragments are removed from one
// name.
const maxDateStrips = 4

var (
	// titlePatterns are tried in order on the stripped name; the first
	// non-empty capture that is not "unknown" becomes the title.
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`([A-Za-z0-9\s]+)`),
		regexp.MustCompile(`([A-Za-z0-9\s]+?)(?:\s|-)(?:Part\s*\d+|Episode\s*\d+)?$`),
		regexp.MustCompile(`[\[(]([A-Za-z0-9\s]+)[\])]`),
		regexp.MustCompile(`(?:Episode|Part|Segment)\s*([A-Za-z0-9\s]+)$`),
		regexp.MustCompile(`([A-Za-z0-9\s]+)(?:\.\w{3,4})$`),
	}

	titleSeparatorRe = regexp.MustCompile(`[.\-_]`)
	titleJunkRe      = regexp.MustCompile(`[^\w\s-]`)
	titleSpaceRe     = regexp.MustCompile(`[\s_]+`)
	titleDashesRe    = regexp.MustCompile(`-{2,}`)

	// leftoverPartRe removes part and episode markers the part extractor
	// already consumed.
	leftoverPartRe = regexp.MustCompile(`(?i)(?:^|[^a-z])(?:part|ep(?:isode)?)[.\-_ ]?\d{1,3}(?:[^0-9]|$)`)
)

// valueSlots are slots whose accepted values are stripped from the name as
// whole words. Date parts, season and extension are handled separately.
var valueSlots = []media.Slot{
	media.LeagueName,
	media.EventName,
	media.Codec,
	media.FPS,
	media.Resolution,
	media.ReleaseFormat,
	media.ReleaseType,
	media.ReleaseGroup,
}

// EpisodeTitle derives the title from whatever is left of the filename once
// every known slot, date and configured noise word has been removed.
type EpisodeTitle struct {
	env Env
}

// NewEpisodeTitle creates the title extractor.
func NewEpisodeTitle(env Env) *EpisodeTitle {
	return &EpisodeTitle{env: env.withDefaults()}
}

func (t *EpisodeTitle) Name() string { return "episode_title" }

// Extract implements Extractor.
func (t *EpisodeTitle) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.EpisodeTitle, t.env.Config.TrustThreshold) {
		return nil, nil
	}

	text, part := stripDates(media.TrimExtension(in.Filename))
	text = t.stripKnown(text, rec)
	text = titleSeparatorRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")

	var cands []Candidate
	if part > 0 && !rec.IsFilled(media.EpisodePart) {
		cands = append(cands, Candidate{Slot: media.EpisodePart, Value: PartLabel(part), Confidence: ConfidencePart})
	}
	if title, ok := matchTitle(text); ok {
		t.env.Logger.Debug("title derived", "file", in.Filename, "title", title)
		cands = append(cands, Candidate{Slot: media.EpisodeTitle, Value: title, Confidence: ConfidenceTitle})
	}
	return cands, nil
}

// stripDates removes every date-shaped fragment, including a trailing part
// letter, and reports the first part number seen.
func stripDates(text string) (string, int) {
	part := 0
	for range maxDateStrips {
		m, ok := FindDate(text)
		if !ok {
			m, ok = FindIncompleteDate(text)
		}
		if !ok {
			break
		}
		if part == 0 {
			part = m.Part
		}
		text = strings.Replace(text, m.Text, " ", 1)
	}
	return text, part
}

// stripKnown removes the text consumed by filled slots, the aliases of the
// reference entries they matched and the profile's known elements.
func (t *EpisodeTitle) stripKnown(text string, rec media.Record) string {
	for _, s := range media.Slots() {
		if v := rec.Get(s); v.Filled && v.Matched != "" {
			text = removeMatched(text, v.Matched)
		}
	}
	for _, s := range valueSlots {
		value := rec.Value(s)
		if value == "" || value == media.Unknown {
			continue
		}
		text = removeWord(text, value)
		for _, alias := range t.aliases(s, value) {
			text = removeWord(text, alias)
		}
	}
	for _, known := range t.env.Profile.RemoveKnownElements {
		text = removeMatched(text, known)
	}
	return leftoverPartRe.ReplaceAllString(text, " ")
}

// aliases returns the canonical name and aliases of the table entry value
// was taken from.
func (t *EpisodeTitle) aliases(s media.Slot, value string) []string {
	var table *reftable.Table
	switch s {
	case media.LeagueName:
		table = t.env.Profile.League
	case media.EventName:
		table = t.env.Profile.Events
	case media.Codec:
		table = t.env.Tables.Codecs.Snapshot()
	case media.Resolution:
		table = t.env.Tables.Resolutions
	case media.ReleaseFormat:
		table = t.env.Tables.ReleaseFormats
	case media.ReleaseType:
		table = t.env.Tables.ReleaseTypes
	case media.ReleaseGroup:
		table = t.env.Tables.ReleaseGroups.Snapshot()
	default:
		return nil
	}
	for _, e := range table.Entries() {
		label := e.Canonical
		if e.Qualifier != "" {
			label += " " + e.Qualifier
		}
		if strings.EqualFold(e.Canonical, value) || strings.EqualFold(label, value) {
			return append([]string{e.Canonical}, e.Aliases...)
		}
	}
	return nil
}

// removeMatched strips text an extractor consumed. Word-shaped matches are
// removed as whole words so they cannot cut into longer words.
func removeMatched(text, matched string) string {
	matched = strings.TrimSpace(matched)
	if matched == "" {
		return text
	}
	if isAlnum(matched[0]) && isAlnum(matched[len(matched)-1]) {
		return removeWord(text, matched)
	}
	return removeLiteral(text, matched)
}

func isAlnum(c byte) bool { return isDigit(c) || isLetter(c) }

func removeLiteral(text, literal string) string {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return text
	}
	return regexp.MustCompile(`(?i)`+regexp.QuoteMeta(literal)).ReplaceAllLiteralString(text, " ")
}

func removeWord(text, word string) string {
	if strings.TrimSpace(word) == "" {
		return text
	}
	re := reftable.AliasPattern(word)
	// Adjacent repeats share a boundary character, so run until stable.
	for i := 0; i < 4; i++ {
		next := re.ReplaceAllString(text, " ")
		if next == text {
			break
		}
		text = next
	}
	return text
}

func matchTitle(text string) (string, bool) {
	for _, re := range titlePatterns {
		sub := re.FindStringSubmatch(text)
		if sub == nil {
			continue
		}
		title := strings.TrimSpace(sub[1])
		if title == "" || strings.EqualFold(title, media.Unknown) {
			continue
		}
		if cleaned := CleanTitle(title); cleaned != "" {
			return cleaned, true
		}
	}
	return "", false
}

// CleanTitle reduces a title to dash-joined words.
func CleanTitle(title string) string {
	title = titleJunkRe.ReplaceAllString(title, "")
	title = titleSpaceRe.ReplaceAllString(title, "-")
	title = titleDashesRe.ReplaceAllString(title, "-")
	return strings.Trim(title, "-")
}
