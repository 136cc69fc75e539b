package reftable

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const codecYAML = `
x264: [h264, h.264, avc]
x265: [h265, h.265, hevc]
AV1: av1
`

func TestParsePreservesOrder(t *testing.T) {
	t.Parallel()
	tbl, err := Parse([]byte(codecYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []Entry{
		{Canonical: "x264", Aliases: []string{"h264", "h.264", "avc"}},
		{Canonical: "x265", Aliases: []string{"h265", "h.265", "hevc"}},
		{Canonical: "AV1"},
	}
	if diff := cmp.Diff(want, tbl.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLeagueDetail(t *testing.T) {
	t.Parallel()
	tbl, err := Parse([]byte(`
WWE Raw:
  aliases: [raw, monday night raw]
  sub_league: Monday Night
NXT: [nxt]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	hit, ok := tbl.Match("WWE.Monday.Night.RAW.2023")
	if !ok {
		t.Fatal("Match() found nothing")
	}
	want := Hit{Canonical: "WWE Raw", Qualifier: "Monday Night", Alias: "raw", Text: "RAW"}
	if diff := cmp.Diff(want, hit); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchMultiWordAlias(t *testing.T) {
	t.Parallel()
	tbl := New(Entry{Canonical: "Royal Rumble", Aliases: []string{"royal rumble", "rumble"}})
	hit, ok := tbl.Match("WWF.Royal_Rumble-1992.mkv")
	if !ok {
		t.Fatal("Match() found nothing")
	}
	want := Hit{Canonical: "Royal Rumble", Alias: "Royal Rumble", Text: "Royal_Rumble"}
	if diff := cmp.Diff(want, hit); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()
	tbl, err := Parse([]byte(codecYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tests := []struct {
		name   string
		texts  []string
		want   Hit
		wantOK bool
	}{
		{
			name:   "canonical token",
			texts:  []string{"WWE.Smackdown.2023.08.25.HDTV.x264.720p.mp4"},
			want:   Hit{Canonical: "x264", Alias: "x264", Text: "x264"},
			wantOK: true,
		},
		{
			name:   "dotted alias case insensitive",
			texts:  []string{"WWE.Smackdown.HDTV.H.264.720p.mp4"},
			want:   Hit{Canonical: "x264", Alias: "h.264", Text: "H.264"},
			wantOK: true,
		},
		{
			name:   "underscore separated",
			texts:  []string{"Final_Battle_HEVC_1080p"},
			want:   Hit{Canonical: "x265", Alias: "hevc", Text: "HEVC"},
			wantOK: true,
		},
		{
			name:   "no partial token",
			texts:  []string{"WWE.avcx.mp4"},
			wantOK: false,
		},
		{
			name:   "second text searched",
			texts:  []string{"nothing here", "/media/AV1/file.mkv"},
			want:   Hit{Canonical: "AV1", Alias: "AV1", Text: "AV1"},
			wantOK: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tbl.Match(tc.texts...)
			if ok != tc.wantOK {
				t.Fatalf("Match() ok = %v, want %v", ok, tc.wantOK)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Match() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreRegisterNoDuplicates(t *testing.T) {
	t.Parallel()
	store := NewStore(New(Entry{Canonical: "NTb", Aliases: []string{"ntb"}}), "")

	if store.Register("NTb", "NTB") {
		t.Error("Register() added an alias that differs only in case")
	}
	if !store.Register("SMCKDWN", "") {
		t.Error("Register() refused a new group")
	}

	var wg sync.WaitGroup
	added := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added <- store.Register("VERUM", "verum")
		}()
	}
	wg.Wait()
	close(added)

	count := 0
	for ok := range added {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("concurrent Register() added %d times, want 1", count)
	}
	if got := store.Snapshot().Len(); got != 3 {
		t.Errorf("table has %d entries, want 3", got)
	}
}

func TestStorePersistMergesDisk(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "release-groups.yaml")
	if err := os.WriteFile(path, []byte("NTb: [ntb]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := LoadStore(path, nil)
	if err != nil {
		t.Fatalf("LoadStore() error = %v", err)
	}

	// Another process registers a group after we loaded.
	if err := os.WriteFile(path, []byte("NTb: [ntb]\nKYR: [kyr]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store.Register("VERUM", "")
	if err := store.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if store.Dirty() {
		t.Error("store still dirty after Persist()")
	}

	reloaded, err := LoadStore(path, nil)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	var names []string
	for _, e := range reloaded.Snapshot().Entries() {
		names = append(names, e.Canonical)
	}
	want := []string{"NTb", "KYR", "VERUM"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("persisted entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadStoreMissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing.yaml")
	fallback := New(Entry{Canonical: "x264"})
	store, err := LoadStore(path, fallback)
	if err != nil {
		t.Fatalf("LoadStore() error = %v", err)
	}
	if got := store.Snapshot().Len(); got != 1 {
		t.Errorf("fallback not used: %d entries", got)
	}
	if got := store.Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
	if err := store.Persist(); err != nil {
		t.Errorf("Persist() on clean store error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("clean store should not write %s: %v", path, fmt.Sprint(err))
	}
}
