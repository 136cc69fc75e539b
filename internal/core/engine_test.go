package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/extract"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

const (
	goodFile  = "WWE.2023.08.25.Main.Event.x264.720p.HDTV-NTb.mkv"
	vagueFile = "random_clip.mkv"
)

type engineFixture struct {
	src, dest string
	cfg       *config.Config
	env       extract.Env
}

func newFixture(t *testing.T, files ...string) engineFixture {
	t.Helper()
	dir := t.TempDir()
	requireHardlinks(t, dir)
	f := engineFixture{
		src:  filepath.Join(dir, "incoming"),
		dest: filepath.Join(dir, "library"),
		env:  testEnv(t),
	}
	f.cfg = f.env.Config
	for _, name := range files {
		writeFile(t, filepath.Join(f.src, name), "video "+name)
	}
	return f
}

func (f engineFixture) engine(t *testing.T, mode log.Mode, reviewer Reviewer) (*Engine, *log.Session) {
	t.Helper()
	session, err := log.NewSession(log.Options{RunID: "test", Sport: "Wrestling", Mode: mode, Source: f.src, Destination: f.dest})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	e := NewEngine(EngineConfig{
		Orchestrator: NewOrchestrator(f.env, nil),
		Session:      session,
		Tables:       f.env.Tables,
		Mode:         mode,
		Source:       f.src,
		Destination:  f.dest,
		Workers:      2,
		Reviewer:     reviewer,
	})
	return e, session
}

func (f engineFixture) source(name string) string { return filepath.Join(f.src, name) }

func TestEngine_LiveRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t, goodFile, vagueFile)
	e, session := f.engine(t, log.ModeLive, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	results := e.Results()
	good := results[f.source(goodFile)]
	if good == nil || good.State != StateFinalized || good.Quarantined {
		t.Fatalf("good result = %+v", good)
	}
	if dir := filepath.Dir(good.Destination); dir != filepath.Join(f.dest, "WWE", "Season 2023") {
		t.Errorf("good destination dir = %s", dir)
	}
	if _, err := os.Stat(good.Destination); err != nil {
		t.Errorf("relocated file missing: %v", err)
	}
	if _, err := os.Stat(f.source(goodFile)); err != nil {
		t.Errorf("hardlink mode removed the source: %v", err)
	}

	vague := results[f.source(vagueFile)]
	if vague == nil || !vague.Quarantined {
		t.Fatalf("vague result = %+v, want quarantined", vague)
	}
	if want := filepath.Join(f.dest, "_manual_intervention", vagueFile); vague.Destination != want {
		t.Errorf("quarantine destination = %s, want %s", vague.Destination, want)
	}
	if _, err := os.Stat(vague.Destination); err != nil {
		t.Errorf("quarantined file missing: %v", err)
	}

	wantSummary := log.Summary{Processed: 2, Relocated: 1, Quarantined: 1}
	if diff := cmp.Diff(wantSummary, session.Summary()); diff != "" {
		t.Errorf("session summary mismatch (-want +got):\n%s", diff)
	}
	s := e.SummarySnapshot()
	if !s.Done || s.Canceled || s.Total != 2 || s.Processed != 2 || s.ActiveWorkers != 0 {
		t.Errorf("SummarySnapshot() = %+v", s)
	}
}

func TestEngine_DryRunDoesNotTouchFilesystem(t *testing.T) {
	t.Parallel()
	f := newFixture(t, goodFile, vagueFile)
	e, session := f.engine(t, log.ModeDryRun, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(f.dest); !os.IsNotExist(err) {
		t.Errorf("dry run created %s", f.dest)
	}
	entries := session.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, entry := range entries {
		if entry.Destination == "" {
			t.Errorf("entry for %s has no predicted destination", entry.Source)
		}
	}
	if got := session.Summary(); got.Relocated != 1 || got.Quarantined != 1 {
		t.Errorf("summary = %+v", got)
	}
}

// predicted returns where a dry run would put name.
func (f engineFixture) predicted(t *testing.T, name string) string {
	t.Helper()
	e, _ := f.engine(t, log.ModeDryRun, nil)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("dry Run() error = %v", err)
	}
	res := e.Results()[f.source(name)]
	if res == nil {
		t.Fatalf("no dry-run result for %s", name)
	}
	return res.Destination
}

func TestEngine_ExistingDestinationIsSkipped(t *testing.T) {
	t.Parallel()
	f := newFixture(t, goodFile)
	dest := f.predicted(t, goodFile)
	writeFile(t, dest, "existing")

	e, session := f.engine(t, log.ModeLive, nil)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries := session.Entries()
	if len(entries) != 1 || entries[0].Outcome != log.OutcomeSkipped || entries[0].Reason != "destination exists" {
		t.Fatalf("entries = %+v, want one skipped entry", entries)
	}
	if got := readFile(t, dest); got != "existing" {
		t.Errorf("existing destination overwritten: %q", got)
	}
	if _, err := os.Stat(f.source(goodFile)); err != nil {
		t.Errorf("source removed: %v", err)
	}
	if len(e.Errors()) != 0 {
		t.Errorf("Errors() = %v, want none", e.Errors())
	}
}

func TestEngine_FailedRelocationContinues(t *testing.T) {
	t.Parallel()
	f := newFixture(t, goodFile, vagueFile)
	// A regular file where the library directory should be.
	writeFile(t, f.dest, "not a directory")

	e, session := f.engine(t, log.ModeLive, nil)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := session.Summary(); got.Failed != 2 || got.Processed != 2 {
		t.Errorf("summary = %+v, want two failures", got)
	}
	if len(e.Errors()) != 2 {
		t.Errorf("Errors() = %v, want 2", e.Errors())
	}
	for _, entry := range session.Entries() {
		if entry.Error == "" || entry.Operation != log.OpNone {
			t.Errorf("failed entry = %+v", entry)
		}
	}
}

type fakeReviewer struct {
	mu          sync.Mutex
	corrections map[media.Slot]string
	conflict    string
	slotCalls   [][]media.Slot
	conflicts   []ConflictReview
}

func (r *fakeReviewer) ReviewSlots(_ context.Context, req SlotReview) (map[media.Slot]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slotCalls = append(r.slotCalls, req.Slots)
	return r.corrections, nil
}

func (r *fakeReviewer) ResolveConflict(_ context.Context, req ConflictReview) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, req)
	if r.conflict == "" {
		return "", errors.New("no answer")
	}
	return r.conflict, nil
}

func TestEngine_ManualCorrections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, vagueFile)
	f.cfg.AutomationLevel = config.AutomationFullManual

	reviewer := &fakeReviewer{corrections: map[media.Slot]string{
		media.LeagueName:   "AEW",
		media.AirYear:      "2021",
		media.AirMonth:     "03",
		media.AirDay:       "17",
		media.EpisodeTitle: "Dynamite",
	}}
	e, _ := f.engine(t, log.ModeLive, reviewer)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(reviewer.slotCalls) != 1 {
		t.Fatalf("ReviewSlots called %d times, want 1", len(reviewer.slotCalls))
	}
	if diff := cmp.Diff(promptableSlots, reviewer.slotCalls[0]); diff != "" {
		t.Errorf("prompted slots mismatch (-want +got):\n%s", diff)
	}
	res := e.Results()[f.source(vagueFile)]
	if res.Quarantined {
		t.Fatalf("corrected file quarantined: %s", res.Reason)
	}
	if dir := filepath.Dir(res.Destination); dir != filepath.Join(f.dest, "AEW", "Season 2021") {
		t.Errorf("destination dir = %s", dir)
	}
	if _, err := os.Stat(res.Destination); err != nil {
		t.Errorf("relocated file missing: %v", err)
	}
}

func TestEngine_ConflictReviewer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, goodFile)
	f.cfg.AutomationLevel = config.AutomationPromptAny
	dest := f.predicted(t, goodFile)
	writeFile(t, dest, "existing")

	reviewer := &fakeReviewer{conflict: config.ConflictRename}
	e, session := f.engine(t, log.ModeLive, reviewer)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(reviewer.conflicts) != 1 || reviewer.conflicts[0].Default != config.ConflictSkip {
		t.Fatalf("conflicts = %+v", reviewer.conflicts)
	}
	ext := filepath.Ext(dest)
	renamed := dest[:len(dest)-len(ext)] + " (1)" + ext
	if _, err := os.Stat(renamed); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
	if got := session.Summary(); got.Relocated != 1 {
		t.Errorf("summary = %+v", got)
	}
}

func TestEngine_CanceledBeforeStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, goodFile)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, session := f.engine(t, log.ModeLive, nil)
	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if s := e.SummarySnapshot(); !s.Canceled || s.Processed != 0 {
		t.Errorf("SummarySnapshot() = %+v", s)
	}
	if n := len(session.Entries()); n != 0 {
		t.Errorf("recorded %d entries for a canceled run", n)
	}
}

func TestEngine_Events(t *testing.T) {
	t.Parallel()
	f := newFixture(t, goodFile, vagueFile)
	e, _ := f.engine(t, log.ModeSimulate, nil)

	var finished int
	var last Event
	for ev := range e.Start(context.Background()) {
		if ev.Result != nil {
			finished++
		}
		last = ev
	}
	if finished != 2 {
		t.Errorf("got %d result events, want 2", finished)
	}
	if !last.Summary.Done || last.Summary.Processed != 2 {
		t.Errorf("last event summary = %+v", last.Summary)
	}
}

func TestEngine_AbandonedEventsDoNotBlock(t *testing.T) {
	t.Parallel()
	names := make([]string, 200)
	for i := range names {
		names[i] = fmt.Sprintf("WWE.Raw.2023.08.%02d.Clip%03d.mkv", i%28+1, i)
	}
	f := newFixture(t, names...)
	e, session := f.engine(t, log.ModeSimulate, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events := e.Start(ctx)
	deadline := time.Now().Add(10 * time.Second)
	for len(events) < cap(events) {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("event buffer never filled")
		}
		time.Sleep(time.Millisecond)
	}
	// Nobody reads from here on.
	cancel()

	select {
	case <-e.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("engine still running after its consumer went away")
	}
	s := e.SummarySnapshot()
	if !s.Done || !s.Canceled || s.ActiveWorkers != 0 {
		t.Errorf("SummarySnapshot() = %+v", s)
	}
	if s.Processed >= len(names) {
		t.Errorf("processed %d files, want the run to stop early", s.Processed)
	}
	if got := len(session.Entries()); got != s.Processed {
		t.Errorf("recorded %d entries, want %d", got, s.Processed)
	}
}
