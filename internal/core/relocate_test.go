package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}

func requireHardlinks(t *testing.T, dir string) {
	t.Helper()
	a, b := filepath.Join(dir, ".probe-a"), filepath.Join(dir, ".probe-b")
	writeFile(t, a, "")
	if err := os.Link(a, b); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}
	os.Remove(a)
	os.Remove(b)
}

func TestRelocate_Hardlink(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	requireHardlinks(t, dir)

	src := filepath.Join(dir, "in", "a.mkv")
	dest := filepath.Join(dir, "out", "WWE", "Season 2023", "a.mkv")
	writeFile(t, src, "video")

	rel, err := Relocate(src, dest, RelocateOptions{Mode: config.RelocateHardlink, Conflict: config.ConflictSkip})
	if err != nil {
		t.Fatalf("Relocate() error = %v", err)
	}
	if rel.Operation != log.OpHardlink || rel.Skipped || rel.Destination != dest {
		t.Errorf("Relocate() = %+v", rel)
	}
	si, _ := os.Stat(src)
	di, err := os.Stat(dest)
	if err != nil || !os.SameFile(si, di) {
		t.Fatalf("destination is not a link to the source: %v", err)
	}

	again, err := Relocate(src, dest, RelocateOptions{Mode: config.RelocateHardlink, Conflict: config.ConflictRename})
	if err != nil || !again.Skipped || again.Reason != "already in place" {
		t.Errorf("second Relocate() = %+v, %v; want already in place", again, err)
	}
}

func TestRelocate_Move(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	src := filepath.Join(dir, "in", "a.mkv")
	dest := filepath.Join(dir, "out", "a.mkv")
	writeFile(t, src, "video")

	rel, err := Relocate(src, dest, RelocateOptions{Mode: config.RelocateMove})
	if err != nil {
		t.Fatalf("Relocate() error = %v", err)
	}
	if rel.Operation != log.OpMove {
		t.Errorf("Operation = %q, want move", rel.Operation)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still present after move")
	}
	if got := readFile(t, dest); got != "video" {
		t.Errorf("destination content = %q", got)
	}
}

func TestRelocate_Conflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		conflict    string
		wantSkipped bool
		wantDest    string
		wantContent string
	}{
		{name: "skip keeps both files", conflict: config.ConflictSkip, wantSkipped: true, wantDest: "a.mkv", wantContent: "existing"},
		{name: "unknown action skips", conflict: "", wantSkipped: true, wantDest: "a.mkv", wantContent: "existing"},
		{name: "overwrite", conflict: config.ConflictOverwrite, wantDest: "a.mkv", wantContent: "new"},
		{name: "rename", conflict: config.ConflictRename, wantDest: "a (2).mkv", wantContent: "new"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			src := filepath.Join(dir, "in", "a.mkv")
			out := filepath.Join(dir, "out")
			writeFile(t, src, "new")
			writeFile(t, filepath.Join(out, "a.mkv"), "existing")
			writeFile(t, filepath.Join(out, "a (1).mkv"), "older")

			rel, err := Relocate(src, filepath.Join(out, "a.mkv"), RelocateOptions{Mode: config.RelocateMove, Conflict: tc.conflict})
			if err != nil {
				t.Fatalf("Relocate() error = %v", err)
			}
			if rel.Skipped != tc.wantSkipped {
				t.Errorf("Skipped = %v, want %v (%s)", rel.Skipped, tc.wantSkipped, rel.Reason)
			}
			if want := filepath.Join(out, tc.wantDest); rel.Destination != want {
				t.Errorf("Destination = %s, want %s", rel.Destination, want)
			}
			if got := readFile(t, filepath.Join(out, tc.wantDest)); got != tc.wantContent {
				t.Errorf("destination content = %q, want %q", got, tc.wantContent)
			}
			_, srcErr := os.Stat(src)
			if tc.wantSkipped && srcErr != nil {
				t.Error("skipped relocation removed the source")
			}
			if tc.wantSkipped && rel.Operation != log.OpNone {
				t.Errorf("skipped Operation = %q, want none", rel.Operation)
			}
		})
	}
}

func TestRelocate_DryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	src := filepath.Join(dir, "in", "a.mkv")
	dest := filepath.Join(dir, "out", "a.mkv")
	writeFile(t, src, "video")

	rel, err := Relocate(src, dest, RelocateOptions{Mode: config.RelocateMove, Conflict: config.ConflictSkip, DryRun: true})
	if err != nil {
		t.Fatalf("Relocate() error = %v", err)
	}
	if rel.Skipped || rel.Operation != log.OpMove {
		t.Errorf("Relocate() = %+v", rel)
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Error("dry run created the destination directory")
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("dry run touched the source")
	}

	writeFile(t, dest, "existing")
	renamed, err := Relocate(src, dest, RelocateOptions{Conflict: config.ConflictRename, DryRun: true})
	if err != nil || renamed.Destination != filepath.Join(dir, "out", "a (1).mkv") {
		t.Errorf("dry run rename = %+v, %v", renamed, err)
	}
	if _, err := os.Stat(renamed.Destination); !os.IsNotExist(err) {
		t.Error("dry run created the renamed file")
	}
}

func TestRelocate_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if _, err := Relocate("/in/a.mkv", "", RelocateOptions{}); !errors.Is(err, ErrNoDestination) {
		t.Errorf("Relocate(empty) error = %v, want ErrNoDestination", err)
	}
	if _, err := Relocate(filepath.Join(dir, "missing.mkv"), filepath.Join(dir, "out", "a.mkv"), RelocateOptions{Mode: config.RelocateMove}); err == nil {
		t.Error("Relocate(missing source) error = nil, want error")
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	if got, err := sanitizePath("/out/AEW: Dynamite/a?.mkv"); err != nil || got != "/out/AEW Dynamite/a .mkv" {
		t.Errorf("sanitizePath() = %q, %v", got, err)
	}
	if _, err := sanitizeFilename("???"); err == nil {
		t.Error("sanitizeFilename(???) error = nil, want error")
	}
	for in, want := range map[string]string{
		"WWE Raw":       "WWE-Raw",
		"H.264":         "H-264",
		"a -- b":        "a-b",
		"...":           "",
		"Hell in <Cell": "Hell-in-Cell",
	} {
		if got := sanitizeComponent(in); got != want {
			t.Errorf("sanitizeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}
