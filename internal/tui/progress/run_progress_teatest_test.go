package progress

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/core"
	"github.com/jordanlambrecht/sports-media-organizer/internal/extract"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"github.com/jordanlambrecht/sports-media-organizer/internal/tui/theme"
)

func newTestEngine(t *testing.T, cfg *config.Config, reviewer core.Reviewer, files ...string) *core.Engine {
	t.Helper()
	src := t.TempDir()
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, filepath.Join(src, f))
	}
	env := extract.Env{Config: cfg, Tables: config.DefaultTables()}
	return core.NewEngine(core.EngineConfig{
		Orchestrator: core.NewOrchestrator(env, nil),
		Mode:         log.ModeSimulate,
		Source:       src,
		Destination:  t.TempDir(),
		Files:        paths,
		Workers:      1,
		Reviewer:     reviewer,
	})
}

func newRunTestModel(t *testing.T, model *RunModel, opts ...teatest.TestOption) *teatest.TestModel {
	t.Helper()
	tm := teatest.NewTestModel(t, model, opts...)
	t.Cleanup(func() {
		_ = tm.Quit()
	})
	return tm
}

func finalRunModel(t *testing.T, tm *teatest.TestModel) *RunModel {
	t.Helper()
	final := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second))
	model, ok := final.(*RunModel)
	if !ok {
		t.Fatalf("Final model type = %T, want *RunModel", final)
	}
	return model
}

func TestRunModelCompletes(t *testing.T) {
	engine := newTestEngine(t, config.DefaultConfig(), nil,
		"WWE.Raw.2023.08.25.720p.HDTV.x264.mkv",
		"random_clip.mkv",
	)
	model := NewRunModel(context.Background(), engine, nil, "Organizing", theme.Default())

	tm := newRunTestModel(t, model, teatest.WithInitialTermSize(100, 30))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := finalRunModel(t, tm)
	if !final.Done() || final.Canceled() {
		t.Errorf("Done() = %v, Canceled() = %v; want done and not canceled", final.Done(), final.Canceled())
	}
	if s := final.Summary(); s.Processed != 2 || s.Total != 2 {
		t.Errorf("Summary() = %+v, want 2 processed", s)
	}
	if len(final.recent) != 2 {
		t.Errorf("recent = %d results, want 2", len(final.recent))
	}
	if final.Err() != nil {
		t.Errorf("Err() = %v", final.Err())
	}
}

func TestRunModelSlotReview(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AutomationLevel = config.AutomationFullManual
	reviewer := NewReviewer()
	engine := newTestEngine(t, cfg, reviewer, "random_clip.mkv")
	model := NewRunModel(context.Background(), engine, reviewer, "Organizing", theme.Default())

	tm := newRunTestModel(t, model, teatest.WithInitialTermSize(100, 30))
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Review metadata"))
	}, teatest.WithDuration(3*time.Second))

	tm.Type("AEW")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := finalRunModel(t, tm)
	if len(final.recent) != 1 {
		t.Fatalf("recent = %d results, want 1", len(final.recent))
	}
	rec := final.recent[0].Record
	if got := rec.Get(media.LeagueName); got.Value != "AEW" || got.Confidence != 100 {
		t.Errorf("league = %+v, want AEW at 100", got)
	}
}

func TestRunModelConflictKeys(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want string
	}{
		{key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}, want: config.ConflictSkip},
		{key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")}, want: config.ConflictOverwrite},
		{key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}, want: config.ConflictRename},
		{key: tea.KeyMsg{Type: tea.KeyEnter}, want: config.ConflictRename},
	}
	for _, tc := range tests {
		t.Run(tc.key.String(), func(t *testing.T) {
			model := NewRunModel(context.Background(), newTestEngine(t, config.DefaultConfig(), nil), nil, "Organizing", theme.Default())
			req := &reviewRequest{
				conflict: &core.ConflictReview{Source: "/in/a.mkv", Destination: "/out/a.mkv", Default: config.ConflictRename},
				reply:    make(chan reviewReply, 1),
			}
			model.openReview(req)
			if view := model.View(); !bytes.Contains([]byte(view), []byte("Destination exists")) {
				t.Errorf("View() = %q, want the conflict prompt", view)
			}

			model.Update(tc.key)
			reply := <-req.reply
			if reply.choice != tc.want || reply.err != nil {
				t.Errorf("reply = %+v, want %q", reply, tc.want)
			}
			if model.pending != nil {
				t.Error("prompt still open after answering")
			}
		})
	}
}

func TestRunModelStop(t *testing.T) {
	reviewer := NewReviewer()
	model := NewRunModel(context.Background(), newTestEngine(t, config.DefaultConfig(), nil), reviewer, "Organizing", theme.Default())

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("first stop request quit immediately")
	}
	if !model.stopping {
		t.Error("stopping = false after first stop request")
	}
	if _, err := reviewer.ReviewSlots(context.Background(), core.SlotReview{}); !errors.Is(err, ErrReviewClosed) {
		t.Errorf("ReviewSlots() after stop error = %v, want ErrReviewClosed", err)
	}

	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second stop request returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("second stop request did not quit")
	}
}

func TestRunModelWaitFinishesInFlightFiles(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AutomationLevel = config.AutomationFullManual
	reviewer := NewReviewer()
	session, err := log.NewSession(log.Options{RunID: "wait", Mode: log.ModeSimulate})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	src := t.TempDir()
	engine := core.NewEngine(core.EngineConfig{
		Orchestrator: core.NewOrchestrator(extract.Env{Config: cfg, Tables: config.DefaultTables()}, nil),
		Session:      session,
		Mode:         log.ModeSimulate,
		Source:       src,
		Destination:  t.TempDir(),
		Files:        []string{filepath.Join(src, "random_clip.mkv"), filepath.Join(src, "other_clip.mkv")},
		Workers:      1,
		Reviewer:     reviewer,
	})
	model := NewRunModel(context.Background(), engine, reviewer, "Organizing", theme.Default())

	tm := newRunTestModel(t, model, teatest.WithInitialTermSize(100, 30))
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Review metadata"))
	}, teatest.WithDuration(3*time.Second))

	// The screen goes away while the first file still waits for an answer.
	if err := tm.Quit(); err != nil {
		t.Fatalf("Quit() error = %v", err)
	}
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	model.Wait()
	if !model.Done() || !model.Canceled() {
		t.Errorf("Done() = %v, Canceled() = %v; want a finished, canceled run", model.Done(), model.Canceled())
	}
	if s := model.Summary(); s.Processed != 1 || s.ActiveWorkers != 0 {
		t.Errorf("Summary() = %+v, want the in-flight file finished and no more", s)
	}
	if got := len(session.Entries()); got != 1 {
		t.Errorf("session recorded %d entries, want 1", got)
	}
}

func TestRunModelParentContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := newTestEngine(t, config.DefaultConfig(), nil, "random_clip.mkv")
	model := NewRunModel(ctx, engine, nil, "Organizing", theme.Default())

	model.Init()
	model.Wait()
	if !model.Canceled() {
		t.Error("Canceled() = false after the parent context was canceled")
	}
	if s := model.Summary(); s.Processed != 0 || !s.Done {
		t.Errorf("Summary() = %+v, want a finished run with nothing processed", s)
	}
}

func TestReviewerHonorsContext(t *testing.T) {
	reviewer := NewReviewer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := reviewer.ResolveConflict(ctx, core.ConflictReview{}); !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveConflict() error = %v, want context.Canceled", err)
	}
}
