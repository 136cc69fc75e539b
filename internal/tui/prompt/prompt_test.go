package prompt

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/core"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

func TestReviewSlots(t *testing.T) {
	t.Parallel()

	rec := media.NewRecord("wrestling", "/in/clip.mkv")
	rec.Set(media.LeagueName, "WWE", 40)
	rec.Set(media.EpisodeTitle, "Raw", 40)

	var out strings.Builder
	r := NewLineReviewer(strings.NewReader("AEW\n\n-\n"), &out)
	got, err := r.ReviewSlots(context.Background(), core.SlotReview{
		Source:     "/in/clip.mkv",
		Record:     rec,
		Confidence: 40,
		Slots:      []media.Slot{media.LeagueName, media.AirYear, media.EpisodeTitle},
	})
	if err != nil {
		t.Fatalf("ReviewSlots() error = %v", err)
	}
	want := map[media.Slot]string{media.LeagueName: "AEW", media.EpisodeTitle: ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReviewSlots() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "league_name [WWE]: ") {
		t.Errorf("output = %q, want the current league shown", out.String())
	}
}

func TestReviewSlots_EOF(t *testing.T) {
	t.Parallel()

	r := NewLineReviewer(strings.NewReader(""), io.Discard)
	_, err := r.ReviewSlots(context.Background(), core.SlotReview{Slots: []media.Slot{media.LeagueName}})
	if !errors.Is(err, io.EOF) {
		t.Errorf("ReviewSlots() error = %v, want io.EOF", err)
	}
}

func TestResolveConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "default", input: "\n", want: config.ConflictRename},
		{name: "short skip", input: "s\n", want: config.ConflictSkip},
		{name: "word overwrite", input: "OVERWRITE\n", want: config.ConflictOverwrite},
		{name: "retry after junk", input: "maybe\nr\n", want: config.ConflictRename},
		{name: "last line without newline", input: "o", want: config.ConflictOverwrite},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := NewLineReviewer(strings.NewReader(tc.input), io.Discard)
			got, err := r.ResolveConflict(context.Background(), core.ConflictReview{Destination: "/out/a.mkv", Default: config.ConflictRename})
			if err != nil || got != tc.want {
				t.Errorf("ResolveConflict() = %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}

func TestResolveConflict_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewLineReviewer(strings.NewReader("s\n"), io.Discard)
	if _, err := r.ResolveConflict(ctx, core.ConflictReview{}); !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveConflict() error = %v, want context.Canceled", err)
	}
}
