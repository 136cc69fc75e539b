package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestIconSetClone(t *testing.T) {
	source := IconSet{"video": "🎥"}
	clone := source.clone()
	source["video"] = "mutated"

	if got, want := clone["video"], "🎥"; got != want {
		t.Errorf("clone()[video] = %q, want %q", got, want)
	}
	if IconSet(nil).clone() != nil {
		t.Error("nil clone() != nil")
	}
}

func TestThemeIconSetIsCopied(t *testing.T) {
	icons := IconSet{"video": "🎥"}
	th := New(WithIconSet(icons))
	icons["video"] = "mutated"

	if got := th.Icon("video"); got != "🎥" {
		t.Errorf("Icon(video) = %q after caller mutation", got)
	}
	exposed := th.IconSet()
	exposed["video"] = "changed"
	if got := th.Icon("video"); got != "🎥" {
		t.Errorf("Icon(video) = %q after IconSet() mutation", got)
	}
}

func TestThemeIconLookupOrder(t *testing.T) {
	th := Theme{
		icons:    IconSet{"primary": "icon"},
		fallback: IconSet{"fallback": "fallback-icon"},
	}

	tests := []struct {
		key  string
		want string
	}{
		{key: "primary", want: "icon"},
		{key: "fallback", want: "fallback-icon"},
		{key: "missing", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			if got := th.Icon(tc.key); got != tc.want {
				t.Errorf("Icon(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestIconSetsCoverSameNames(t *testing.T) {
	var emoji, ascii []string
	for k := range emojiIcons {
		emoji = append(emoji, k)
	}
	for k := range asciiIcons {
		ascii = append(ascii, k)
	}
	less := func(a, b string) bool { return a < b }
	if diff := cmp.Diff(emoji, ascii, cmpopts.SortSlices(less)); diff != "" {
		t.Errorf("icon names differ (-emoji +ascii):\n%s", diff)
	}
}

func TestWithColors(t *testing.T) {
	custom := Colors{Primary: lipgloss.Color("#000000"), Accent: lipgloss.Color("#ffffff")}
	th := New(WithColors(custom))
	if diff := cmp.Diff(custom, th.Colors()); diff != "" {
		t.Errorf("Colors() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"#000000", "#ffffff"}, th.ProgressGradient()); diff != "" {
		t.Errorf("ProgressGradient() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfidenceKind(t *testing.T) {
	tests := []struct {
		confidence int
		want       BadgeKind
	}{
		{confidence: 100, want: BadgeSuccess},
		{confidence: 90, want: BadgeSuccess},
		{confidence: 89, want: BadgeWarning},
		{confidence: 50, want: BadgeWarning},
		{confidence: 49, want: BadgeError},
		{confidence: 0, want: BadgeError},
	}
	for _, tc := range tests {
		if got := ConfidenceKind(tc.confidence, 50, 90); got != tc.want {
			t.Errorf("ConfidenceKind(%d) = %v, want %v", tc.confidence, got, tc.want)
		}
	}
}
