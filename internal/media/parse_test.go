package media

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsVideo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"WWE.Raw.2023.01.02.mkv", true},
		{"clip.MP4", true},
		{"broadcast.ts", true},
		{"notes.txt", false},
		{"poster.jpg", false},
	}
	for _, tc := range tests {
		if got := IsVideo(tc.in); got != tc.want {
			t.Errorf("IsVideo(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsSample(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"sample.mkv", true},
		{"WWE.Raw.Sample.mkv", true},
		{"Sample", true},
		{"Samplers.Cup.mkv", false},
		{"WWE.Raw.2023.mkv", false},
	}
	for _, tc := range tests {
		if got := IsSample(tc.in); got != tc.want {
			t.Errorf("IsSample(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAncestry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(string(filepath.Separator), "media", "WWE", "Season 03", "file.mkv")
	want := []string{"Season 03", "WWE", "media"}
	if diff := cmp.Diff(want, Ancestry(path)); diff != "" {
		t.Errorf("Ancestry() mismatch (-want +got):\n%s", diff)
	}

	if got := Ancestry("file.mkv"); len(got) != 0 {
		t.Errorf("Ancestry(file.mkv) = %v, want empty", got)
	}
}

func TestExtensionAllowed(t *testing.T) {
	t.Parallel()
	allowed := []string{".mkv", "mp4"}
	blocked := []string{".nfo", ".mp4"}
	tests := []struct {
		ext  string
		want bool
	}{
		{".mkv", true},
		{".MKV", true},
		{".mp4", false},
		{".nfo", false},
		{".avi", false},
	}
	for _, tc := range tests {
		if got := ExtensionAllowed(tc.ext, allowed, blocked); got != tc.want {
			t.Errorf("ExtensionAllowed(%q) = %v, want %v", tc.ext, got, tc.want)
		}
	}
	if !ExtensionAllowed(".avi", nil, blocked) {
		t.Error("ExtensionAllowed() with empty allow list should accept unblocked extensions")
	}
}

func TestExtensionHelpers(t *testing.T) {
	t.Parallel()
	if got := ExtensionOf("Match.Of.The.Day.MKV"); got != ".mkv" {
		t.Errorf("ExtensionOf() = %q, want .mkv", got)
	}
	if got := TrimExtension("Match.Of.The.Day.mkv"); got != "Match.Of.The.Day" {
		t.Errorf("TrimExtension() = %q, want Match.Of.The.Day", got)
	}
}
