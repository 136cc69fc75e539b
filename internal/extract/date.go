package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

// shortYearPivot splits two-digit years: above it is the 1900s, at or below
// it the 2000s. Broadcasts from before 1951 or after 2050 are misdated.
const shortYearPivot = 50

// dateFormat is one accepted date shape. The groups field maps year, month
// and day to submatch indexes.
type dateFormat struct {
	layout    string
	re        *regexp.Regexp
	groups    [3]int
	shortYear bool
}

func newDateFormat(layout, expr string, y, m, d int, short bool) dateFormat {
	return dateFormat{
		layout:    layout,
		re:        regexp.MustCompile(`(?:^|[^0-9])(` + expr + `)([A-Za-z])?`),
		groups:    [3]int{y, m, d},
		shortYear: short,
	}
}

var (
	// dateFormats are tried in order; the first valid date wins. Submatch 1 is
	// the whole date, the last submatch an optional trailing letter.
	dateFormats = []dateFormat{
		newDateFormat("YYYY.MM.DD", `((?:19|20)\d{2})\.(\d{2})\.(\d{2})`, 2, 3, 4, false),
		newDateFormat("YYYY-MM-DD", `((?:19|20)\d{2})-(\d{2})-(\d{2})`, 2, 3, 4, false),
		newDateFormat("DD.MM.YYYY", `(\d{2})\.(\d{2})\.((?:19|20)\d{2})`, 4, 3, 2, false),
		newDateFormat("DD-MM-YYYY", `(\d{2})-(\d{2})-((?:19|20)\d{2})`, 4, 3, 2, false),
		newDateFormat("YYYY_MM_DD", `((?:19|20)\d{2})_(\d{2})_(\d{2})`, 2, 3, 4, false),
		newDateFormat("DDMMYYYY", `(\d{2})(\d{2})((?:19|20)\d{2})`, 4, 3, 2, false),
		newDateFormat("YY.MM.DD", `(\d{2})\.(\d{2})\.(\d{2})`, 2, 3, 4, true),
		newDateFormat("DD.MM.YY", `(\d{2})\.(\d{2})\.(\d{2})`, 4, 3, 2, true),
		newDateFormat("DD-MM-YY", `(\d{2})-(\d{2})-(\d{2})`, 4, 3, 2, true),
	}

	// incompleteDate is a YY.MM.DD fragment, optionally followed by a part
	// letter, tried when no full date parses.
	incompleteDate = newDateFormat("YY.MM.DD", `(\d{2})[.\-_](\d{2})[.\-_](\d{2})`, 2, 3, 4, true)

	// dirYearRe finds a four-digit year in a directory name.
	dirYearRe = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)\d{2})(?:[^0-9]|$)`)

	// Explicit season markers.
	fileSeasonRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:s(\d{1,2})(?:e\d{1,3})?|season[\s._-]*(\d{1,2}))(?:[^a-z0-9]|$)`)
	dirSeasonRe  = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])season[\s._-]*(\d{1,4})(?:[^0-9]|$)`)
)

// DateMatch is a date found in text.
type DateMatch struct {
	Year, Month, Day int
	// Part is the 1-based part number from a trailing letter, 0 when absent.
	Part int
	// Text is the matched date including any part letter.
	Text   string
	Layout string
}

// FindDate looks for a full date in text. Two-digit-year dates followed by a
// part letter are left to FindIncompleteDate.
func FindDate(text string) (DateMatch, bool) {
	for _, f := range dateFormats {
		if m, ok := f.find(text, !f.shortYear); ok {
			return m, true
		}
	}
	return DateMatch{}, false
}

// FindIncompleteDate looks for a YY.MM.DD fragment with an optional part
// letter.
func FindIncompleteDate(text string) (DateMatch, bool) {
	return incompleteDate.find(text, true)
}

// find returns the first valid match of f in text. A match is rejected when
// a digit follows it, or when a part letter follows and allowPart is false.
func (f dateFormat) find(text string, allowPart bool) (DateMatch, bool) {
	for _, loc := range f.re.FindAllStringSubmatchIndex(text, -1) {
		groupCount := len(loc) / 2
		letterGroup := groupCount - 1
		end := loc[3]

		var letter string
		if loc[2*letterGroup] >= 0 {
			next := loc[2*letterGroup+1]
			// A letter run is a word, not a part suffix.
			if next < len(text) && isLetter(text[next]) {
				letter = ""
			} else {
				letter = text[loc[2*letterGroup]:next]
			}
		}
		if letter == "" && end < len(text) && isDigit(text[end]) {
			continue
		}
		if letter != "" && !allowPart {
			continue
		}

		num := func(i int) int {
			g := f.groups[i]
			n, _ := strconv.Atoi(text[loc[2*g]:loc[2*g+1]])
			return n
		}
		year, month, day := num(0), num(1), num(2)
		if f.shortYear {
			year = expandYear(year)
		}
		if !validDate(year, month, day) {
			continue
		}
		m := DateMatch{Year: year, Month: month, Day: day, Text: text[loc[2]:loc[3]], Layout: f.layout}
		if letter != "" {
			m.Part = PartFromLetter(letter)
			m.Text += letter
		}
		return m, true
	}
	return DateMatch{}, false
}

// expandYear applies the fixed two-digit-year pivot.
func expandYear(yy int) int {
	if yy > shortYearPivot {
		return 1900 + yy
	}
	return 2000 + yy
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Month() == time.Month(month) && t.Day() == day
}

// PartFromLetter converts a part letter to its 1-based number: a=1, b=2.
func PartFromLetter(letter string) int {
	if letter == "" {
		return 0
	}
	c := strings.ToLower(letter)[0]
	if c < 'a' || c > 'z' {
		return 0
	}
	return int(c-'a') + 1
}

// PartLabel formats a part number as used in the episode_part slot.
func PartLabel(n int) string {
	return fmt.Sprintf("part-%02d", n)
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// Date fills air_year, air_month, air_day and season_name, plus episode_part
// when the date carries a part letter.
type Date struct {
	env Env
}

// NewDate creates the date and season extractor.
func NewDate(env Env) *Date {
	return &Date{env: env.withDefaults()}
}

func (d *Date) Name() string { return "date" }

// Extract implements Extractor.
func (d *Date) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	var cands []Candidate
	yearFromFile := false

	m, ok := FindDate(in.Filename)
	confidence := ConfidenceFullDate
	if !ok {
		m, ok = FindIncompleteDate(in.Filename)
		confidence = ConfidenceIncompleteDate
	}
	if ok {
		yearFromFile = true
		cands = append(cands,
			Candidate{Slot: media.AirYear, Value: fmt.Sprintf("%04d", m.Year), Matched: m.Text, Confidence: confidence},
			Candidate{Slot: media.AirMonth, Value: fmt.Sprintf("%02d", m.Month), Matched: m.Text, Confidence: confidence},
			Candidate{Slot: media.AirDay, Value: fmt.Sprintf("%02d", m.Day), Matched: m.Text, Confidence: confidence},
		)
		if m.Part > 0 {
			cands = append(cands, Candidate{Slot: media.EpisodePart, Value: PartLabel(m.Part), Matched: m.Text, Confidence: confidence})
		}
		d.env.Logger.Debug("date found", "file", in.Filename, "layout", m.Layout, "text", m.Text, "confidence", confidence)
	} else {
		for _, dir := range in.Ancestry {
			if sub := dirYearRe.FindStringSubmatch(dir); sub != nil {
				cands = append(cands, Candidate{Slot: media.AirYear, Value: sub[1], Confidence: ConfidenceDirectoryYear})
				break
			}
		}
	}

	if season, ok := d.season(in, rec, cands, yearFromFile); ok {
		cands = append(cands, season)
	}
	return untrusted(rec, d.env.Config.TrustThreshold, cands), nil
}

// season picks the strongest season signal: the single-season flag, an
// explicit season in the filename, a Season NN directory, then the year.
func (d *Date) season(in Input, rec media.Record, cands []Candidate, yearFromFile bool) (Candidate, bool) {
	if d.env.Profile.SingleSeason {
		return Candidate{Slot: media.SeasonName, Value: SingleSeasonName, Confidence: ConfidenceSingleSeason}, true
	}
	if sub := fileSeasonRe.FindStringSubmatch(media.TrimExtension(in.Filename)); sub != nil {
		n := sub[1]
		if n == "" {
			n = sub[2]
		}
		return Candidate{Slot: media.SeasonName, Value: seasonName(n), Matched: strings.Trim(sub[0], " ._-"), Confidence: ConfidenceExplicitSeason}, true
	}
	for _, dir := range in.Ancestry {
		if sub := dirSeasonRe.FindStringSubmatch(dir); sub != nil {
			return Candidate{Slot: media.SeasonName, Value: seasonName(sub[1]), Confidence: ConfidenceDirSeason}, true
		}
	}
	for _, c := range cands {
		if c.Slot != media.AirYear {
			continue
		}
		confidence := ConfidenceDirYearSeason
		if yearFromFile {
			confidence = ConfidenceYearSeason
		}
		return Candidate{Slot: media.SeasonName, Value: "Season " + c.Value, Confidence: confidence}, true
	}
	if year := rec.Value(media.AirYear); year != "" && year != media.Unknown {
		return Candidate{Slot: media.SeasonName, Value: "Season " + year, Confidence: ConfidenceYearSeason}, true
	}
	return Candidate{}, false
}

// SingleSeasonName is the season used by single-season sports.
const SingleSeasonName = "Season 01"

func seasonName(n string) string {
	v, err := strconv.Atoi(n)
	if err != nil {
		return "Season " + n
	}
	if v >= 1000 {
		return fmt.Sprintf("Season %d", v)
	}
	return fmt.Sprintf("Season %02d", v)
}
