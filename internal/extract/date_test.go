package extract

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

func TestFindDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   DateMatch
		wantOK bool
	}{
		{
			name:   "dotted ISO",
			input:  "WWE.Raw.2023.08.25.mkv",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Text: "2023.08.25", Layout: "YYYY.MM.DD"},
			wantOK: true,
		},
		{
			name:   "dashed ISO",
			input:  "Raw 2023-08-25 HDTV",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Text: "2023-08-25", Layout: "YYYY-MM-DD"},
			wantOK: true,
		},
		{
			name:   "day first dotted",
			input:  "Raw.25.08.2023.mkv",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Text: "25.08.2023", Layout: "DD.MM.YYYY"},
			wantOK: true,
		},
		{
			name:   "underscored ISO",
			input:  "Raw_2023_08_25",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Text: "2023_08_25", Layout: "YYYY_MM_DD"},
			wantOK: true,
		},
		{
			name:   "compact day first",
			input:  "Raw.25082023.mkv",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Text: "25082023", Layout: "DDMMYYYY"},
			wantOK: true,
		},
		{
			name:   "short year nineties",
			input:  "ECW.99.04.22.mkv",
			want:   DateMatch{Year: 1999, Month: 4, Day: 22, Text: "99.04.22", Layout: "YY.MM.DD"},
			wantOK: true,
		},
		{
			name:   "short year at pivot",
			input:  "ECW.50.04.22.mkv",
			want:   DateMatch{Year: 2050, Month: 4, Day: 22, Text: "50.04.22", Layout: "YY.MM.DD"},
			wantOK: true,
		},
		{
			name:   "short year above pivot",
			input:  "ECW.51.04.22.mkv",
			want:   DateMatch{Year: 1951, Month: 4, Day: 22, Text: "51.04.22", Layout: "YY.MM.DD"},
			wantOK: true,
		},
		{
			name:   "short year day first",
			input:  "Raw.22.04.99.mkv",
			want:   DateMatch{Year: 1999, Month: 4, Day: 22, Text: "22.04.99", Layout: "DD.MM.YY"},
			wantOK: true,
		},
		{
			name:   "part letter a",
			input:  "Raw.2023.08.25a.mkv",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Part: 1, Text: "2023.08.25a", Layout: "YYYY.MM.DD"},
			wantOK: true,
		},
		{
			name:   "part letter b",
			input:  "Raw.2023.08.25b",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Part: 2, Text: "2023.08.25b", Layout: "YYYY.MM.DD"},
			wantOK: true,
		},
		{
			name:   "word glued to date is not a part",
			input:  "Raw.2023.08.25HDTV",
			want:   DateMatch{Year: 2023, Month: 8, Day: 25, Text: "2023.08.25", Layout: "YYYY.MM.DD"},
			wantOK: true,
		},
		{name: "invalid month and day", input: "Raw.2023.13.45.mkv"},
		{name: "february thirtieth", input: "Raw.2023.02.30"},
		{name: "digit after date", input: "Raw.2023.08.251"},
		{name: "resolution only", input: "Raw.1080p.mkv"},
		{name: "short year with part letter", input: "ECW.87.04.22A.mkv"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := FindDate(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("FindDate(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("FindDate(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}
}

func TestFindIncompleteDate(t *testing.T) {
	t.Parallel()

	got, ok := FindIncompleteDate("ECW.87.04.22A.mkv")
	if !ok {
		t.Fatal("FindIncompleteDate() ok = false, want true")
	}
	want := DateMatch{Year: 1987, Month: 4, Day: 22, Part: 1, Text: "87.04.22A", Layout: "YY.MM.DD"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindIncompleteDate() mismatch (-want +got):\n%s", diff)
	}

	if _, ok := FindIncompleteDate("Raw.Main.Event.mkv"); ok {
		t.Error("FindIncompleteDate() found a date in a name without one")
	}
}

func TestDateExtract(t *testing.T) {
	t.Parallel()

	singleSeason := config.EmptyProfile("Wrestling")
	singleSeason.SingleSeason = true

	trustedYear := media.NewRecord("Wrestling", "")
	trustedYear.Set(media.AirYear, "1990", 100)

	tests := []struct {
		name    string
		in      Input
		profile *config.SportProfile
		rec     media.Record
		want    []Candidate
	}{
		{
			name: "full date with year season",
			in:   Input{Filename: "WWE.Raw.2023.08.25.mkv"},
			want: []Candidate{
				{Slot: media.AirYear, Value: "2023", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.AirMonth, Value: "08", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.AirDay, Value: "25", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.SeasonName, Value: "Season 2023", Confidence: ConfidenceYearSeason},
			},
		},
		{
			name: "incomplete date with part letter",
			in:   Input{Filename: "ECW.87.04.22A.mkv"},
			want: []Candidate{
				{Slot: media.AirYear, Value: "1987", Matched: "87.04.22A", Confidence: ConfidenceIncompleteDate},
				{Slot: media.AirMonth, Value: "04", Matched: "87.04.22A", Confidence: ConfidenceIncompleteDate},
				{Slot: media.AirDay, Value: "22", Matched: "87.04.22A", Confidence: ConfidenceIncompleteDate},
				{Slot: media.EpisodePart, Value: "part-01", Matched: "87.04.22A", Confidence: ConfidenceIncompleteDate},
				{Slot: media.SeasonName, Value: "Season 1987", Confidence: ConfidenceYearSeason},
			},
		},
		{
			name: "directory year",
			in:   Input{Filename: "Main.Event.mkv", Ancestry: []string{"Clash 1994", "WCW"}},
			want: []Candidate{
				{Slot: media.AirYear, Value: "1994", Confidence: ConfidenceDirectoryYear},
				{Slot: media.SeasonName, Value: "Season 1994", Confidence: ConfidenceDirYearSeason},
			},
		},
		{
			name: "explicit season in filename",
			in:   Input{Filename: "Raw.2023.08.25.S02.mkv", Ancestry: []string{"Season 3"}},
			want: []Candidate{
				{Slot: media.AirYear, Value: "2023", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.AirMonth, Value: "08", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.AirDay, Value: "25", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.SeasonName, Value: "Season 02", Matched: "S02", Confidence: ConfidenceExplicitSeason},
			},
		},
		{
			name: "season directory",
			in:   Input{Filename: "Raw.Main.Event.mkv", Ancestry: []string{"Season 3", "Raw"}},
			want: []Candidate{
				{Slot: media.SeasonName, Value: "Season 03", Confidence: ConfidenceDirSeason},
			},
		},
		{
			name:    "single season sport",
			in:      Input{Filename: "Raw.2023.08.25.S02.mkv"},
			profile: singleSeason,
			want: []Candidate{
				{Slot: media.AirYear, Value: "2023", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.AirMonth, Value: "08", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.AirDay, Value: "25", Matched: "2023.08.25", Confidence: ConfidenceFullDate},
				{Slot: media.SeasonName, Value: SingleSeasonName, Confidence: ConfidenceSingleSeason},
			},
		},
		{
			name: "season from trusted year",
			in:   Input{Filename: "Show.mkv"},
			rec:  trustedYear,
			want: []Candidate{
				{Slot: media.SeasonName, Value: "Season 1990", Confidence: ConfidenceYearSeason},
			},
		},
		{
			name: "nothing to find",
			in:   Input{Filename: "Show.mkv"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := NewDate(Env{Profile: tc.profile})
			got, err := d.Extract(context.Background(), tc.in, tc.rec)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPartHelpers(t *testing.T) {
	t.Parallel()

	for letter, want := range map[string]int{"a": 1, "B": 2, "z": 26, "": 0, "1": 0} {
		if got := PartFromLetter(letter); got != want {
			t.Errorf("PartFromLetter(%q) = %d, want %d", letter, got, want)
		}
	}
	if got := PartLabel(3); got != "part-03" {
		t.Errorf("PartLabel(3) = %q, want part-03", got)
	}
}
