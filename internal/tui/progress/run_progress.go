// Package progress renders a running organizer job and hosts the prompts the
// engine raises while it runs.
package progress

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/core"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"github.com/jordanlambrecht/sports-media-organizer/internal/tui/theme"
	"github.com/mattn/go-runewidth"
)

type engineEventMsg struct {
	event core.Event
	done  bool
}

type reviewRequestMsg struct {
	req *reviewRequest
}

// recentLimit is how many finished files the screen lists.
const recentLimit = 8

// RunModel shows the progress of an engine run and answers its prompts.
type RunModel struct {
	engine   *core.Engine
	reviewer *Reviewer
	events   <-chan core.Event
	summary  core.Summary
	recent   []core.Result
	errors   []error
	fatalErr error

	title  string
	width  int
	height int

	progress progress.Model
	theme    theme.Theme
	input    textinput.Model

	pending   *reviewRequest
	slotIndex int
	answers   map[media.Slot]string

	parent   context.Context
	cancel   context.CancelFunc
	stopping bool
	done     bool
}

// NewRunModel creates the run screen. Canceling ctx stops the run the same
// way the stop key does. reviewer may be nil for runs that never prompt.
func NewRunModel(ctx context.Context, engine *core.Engine, reviewer *Reviewer, title string, th theme.Theme) *RunModel {
	gradient := th.ProgressGradient()
	prog := progress.New(progress.WithGradient(gradient[0], gradient[1]))
	prog.Width = 50

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 128
	ti.Width = 48
	colors := th.Colors()
	ti.TextStyle = lipgloss.NewStyle().Foreground(colors.Primary)
	ti.Blur()

	return &RunModel{
		parent:   ctx,
		engine:   engine,
		reviewer: reviewer,
		summary:  engine.SummarySnapshot(),
		title:    title,
		width:    80,
		height:   24,
		progress: prog,
		theme:    th,
		input:    ti,
	}
}

// Init starts the engine.
func (m *RunModel) Init() tea.Cmd {
	var ctx context.Context
	ctx, m.cancel = context.WithCancel(m.parent)
	m.events = m.engine.Start(ctx)
	return tea.Batch(m.waitForEvent(), m.waitForReview())
}

func (m *RunModel) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return engineEventMsg{done: true}
		}
		return engineEventMsg{event: evt}
	}
}

func (m *RunModel) waitForReview() tea.Cmd {
	if m.reviewer == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case req := <-m.reviewer.requests:
			return reviewRequestMsg{req: req}
		case <-m.reviewer.closed:
			return nil
		}
	}
}

// Update processes Bubble Tea messages.
func (m *RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(msg.Width-4, 10)
		m.input.Width = max(msg.Width-8, 20)
		return m, nil
	case tea.KeyMsg:
		if m.pending != nil {
			return m.handleReviewKey(msg)
		}
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m.stop()
		}
	case engineEventMsg:
		return m.handleEngineEvent(msg)
	case reviewRequestMsg:
		m.openReview(msg.req)
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// stop cancels the run. Files already being processed finish first; a second
// request quits immediately.
func (m *RunModel) stop() (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	if m.reviewer != nil {
		m.reviewer.Close()
	}
	if m.stopping {
		return m, tea.Quit
	}
	m.stopping = true
	return m, nil
}

func (m *RunModel) handleEngineEvent(msg engineEventMsg) (tea.Model, tea.Cmd) {
	if msg.done {
		m.finish()
		return m, tea.Quit
	}

	m.summary = msg.event.Summary
	if res := msg.event.Result; res != nil {
		m.recent = append(m.recent, *res)
		if len(m.recent) > recentLimit {
			m.recent = m.recent[len(m.recent)-recentLimit:]
		}
	} else if err := msg.event.Err; err != nil && !errors.Is(err, context.Canceled) {
		m.fatalErr = err
	}
	m.errors = m.engine.Errors()

	ratio := 0.0
	if m.summary.Total > 0 {
		ratio = float64(m.summary.Processed) / float64(m.summary.Total)
	}
	return m, tea.Batch(m.progress.SetPercent(ratio), m.waitForEvent())
}

func (m *RunModel) finish() {
	m.done = true
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.reviewer != nil {
		m.reviewer.Close()
	}
	m.errors = m.engine.Errors()
}

func (m *RunModel) openReview(req *reviewRequest) {
	m.pending = req
	m.slotIndex = 0
	m.answers = map[media.Slot]string{}
	if req.slots != nil {
		m.prepareSlotInput()
		return
	}
	m.input.Blur()
}

func (m *RunModel) prepareSlotInput() {
	req := m.pending.slots
	rec := req.Record
	value := rec.Value(req.Slots[m.slotIndex])
	if value == media.Unknown {
		value = ""
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *RunModel) reply(r reviewReply) tea.Cmd {
	m.pending.reply <- r
	m.pending = nil
	m.answers = nil
	m.input.Blur()
	return m.waitForReview()
}

func (m *RunModel) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.reply(reviewReply{err: ErrReviewSkipped})
		return m.stop()
	}
	if m.pending.conflict != nil {
		return m.handleConflictKey(msg)
	}

	switch msg.Type {
	case tea.KeyEsc:
		return m, m.reply(reviewReply{err: ErrReviewSkipped})
	case tea.KeyCtrlS:
		return m, m.reply(reviewReply{corrections: m.answers})
	case tea.KeyUp, tea.KeyShiftTab:
		if m.slotIndex > 0 {
			m.slotIndex--
			m.prepareSlotInput()
		}
		return m, nil
	case tea.KeyEnter, tea.KeyTab:
		m.recordAnswer()
		if m.slotIndex+1 >= len(m.pending.slots.Slots) {
			return m, m.reply(reviewReply{corrections: m.answers})
		}
		m.slotIndex++
		m.prepareSlotInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// recordAnswer stores the input for the current slot. An emptied input
// clears a slot that had a value; an untouched empty slot stays as it was.
func (m *RunModel) recordAnswer() {
	req := m.pending.slots
	slot := req.Slots[m.slotIndex]
	value := strings.TrimSpace(m.input.Value())
	rec := req.Record
	if value == "" && !rec.IsFilled(slot) {
		delete(m.answers, slot)
		return
	}
	m.answers[slot] = value
}

func (m *RunModel) handleConflictKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "s":
		return m, m.reply(reviewReply{choice: config.ConflictSkip})
	case "o":
		return m, m.reply(reviewReply{choice: config.ConflictOverwrite})
	case "r":
		return m, m.reply(reviewReply{choice: config.ConflictRename})
	case "enter":
		return m, m.reply(reviewReply{choice: m.pending.conflict.Default})
	case "esc":
		return m, m.reply(reviewReply{err: ErrReviewSkipped})
	}
	return m, nil
}

// View renders the screen.
func (m *RunModel) View() string {
	if m.fatalErr != nil {
		return fmt.Sprintf("Error: %v\n", m.fatalErr)
	}
	if m.pending != nil {
		return m.renderReview()
	}

	sections := []string{
		m.theme.HeaderStyle().Width(m.width).Render(m.title),
	}
	if m.summary.Scanning {
		sections = append(sections, "Scanning source directory...")
	} else {
		sections = append(sections, m.progress.View())
	}
	sections = append(sections, m.renderStats())
	if recent := m.renderRecent(); recent != "" {
		sections = append(sections, recent)
	}
	if errs := m.renderErrors(); errs != "" {
		sections = append(sections, errs)
	}

	status := "Press q to stop"
	switch {
	case m.done:
		status = "Done"
	case m.stopping:
		status = "Stopping after in-flight files... (press q again to quit now)"
	case m.summary.LastItem != "":
		status = m.summary.LastItem
	}
	sections = append(sections, m.theme.StatusBarStyle().Width(m.width).Render(status))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *RunModel) renderStats() string {
	s := m.summary
	lines := []string{
		fmt.Sprintf("%s Processed: %d/%d", m.theme.Icon("stats"), s.Processed, s.Total),
		fmt.Sprintf("%s Relocated: %d", m.theme.Icon("relocated"), s.Relocated),
		fmt.Sprintf("%s Skipped: %d", m.theme.Icon("skipped"), s.Skipped),
		fmt.Sprintf("%s Quarantined: %d", m.theme.Icon("quarantined"), s.Quarantined),
		fmt.Sprintf("%s Failed: %d", m.theme.Icon("failed"), s.Failed),
		fmt.Sprintf("Active workers: %d/%d", s.ActiveWorkers, s.WorkerLimit),
	}
	panel := m.theme.PanelStyle()
	return panel.Width(max(m.width-panel.GetHorizontalFrameSize(), 20)).Render(strings.Join(lines, "\n"))
}

func (m *RunModel) renderRecent() string {
	if len(m.recent) == 0 {
		return ""
	}
	cfg := m.engine.Config()
	width := max(m.width-9, 20)
	lines := make([]string, 0, len(m.recent))
	for _, res := range m.recent {
		kind := theme.ConfidenceKind(res.Confidence, cfg.Quarantine.Threshold, cfg.TrustThreshold)
		if res.State == core.StateFailed {
			kind = theme.BadgeMuted
		}
		badge := m.theme.BadgeStyle(kind).Render(fmt.Sprintf("%3d%%", res.Confidence))
		line := fmt.Sprintf("%s %s", m.theme.Icon(resultIcon(res)), filepath.Base(res.Source))
		if res.Destination != "" {
			line += " -> " + res.Destination
		}
		lines = append(lines, badge+" "+runewidth.Truncate(line, width, "..."))
	}
	return strings.Join(lines, "\n")
}

func resultIcon(res core.Result) string {
	switch {
	case res.State == core.StateFailed:
		return "failed"
	case res.Quarantined:
		return "quarantined"
	default:
		return "relocated"
	}
}

func (m *RunModel) renderErrors() string {
	if len(m.errors) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(m.theme.Colors().Error)
	width := max(m.width-4, 10)
	show := min(len(m.errors), max(m.height-14, 1))
	lines := []string{fmt.Sprintf("Errors: %d", len(m.errors))}
	for _, err := range m.errors[len(m.errors)-show:] {
		lines = append(lines, "• "+runewidth.Truncate(err.Error(), width, "..."))
	}
	if len(m.errors) > show {
		lines = append(lines, fmt.Sprintf("... and %d more", len(m.errors)-show))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m *RunModel) renderReview() string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Colors().Muted)
	panel := m.theme.PanelStyle()
	panelWidth := max(m.width-panel.GetHorizontalFrameSize(), 20)

	if c := m.pending.conflict; c != nil {
		body := strings.Join([]string{
			fmt.Sprintf("%s %s", m.theme.Icon("video"), filepath.Base(c.Source)),
			"already exists at",
			runewidth.Truncate(c.Destination, panelWidth-2, "..."),
		}, "\n")
		return lipgloss.JoinVertical(lipgloss.Left,
			m.theme.HeaderStyle().Width(m.width).Render(m.theme.Icon("conflict")+" Destination exists"),
			panel.Width(panelWidth).Render(body),
			muted.Render(fmt.Sprintf("s skip · o overwrite · r rename · enter %s · esc default", c.Default)),
		)
	}

	req := m.pending.slots
	rec := req.Record
	lines := make([]string, 0, len(req.Slots)+2)
	lines = append(lines, fmt.Sprintf("%s %s (confidence %d%%)", m.theme.Icon("video"), filepath.Base(req.Source), req.Confidence))
	for i, slot := range req.Slots {
		v := rec.Get(slot)
		value := v.Value
		if answer, ok := m.answers[slot]; ok {
			value = answer
		}
		marker := "  "
		if i == m.slotIndex {
			marker = "➜ "
		}
		lines = append(lines, fmt.Sprintf("%s%-14s %-24s %3d%%", marker, slot.Key(), value, v.Confidence))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.HeaderStyle().Width(m.width).Render(m.theme.Icon("review")+" Review metadata"),
		panel.Width(panelWidth).Render(strings.Join(lines, "\n")),
		fmt.Sprintf("%s: %s", req.Slots[m.slotIndex].Key(), m.input.View()),
		muted.Render("enter next · ↑ back · ctrl+s save · esc keep extracted values"),
	)
}

// Wait stops scheduling further files and blocks until the files already in
// flight are finished. Call it after the program exits: the screen can quit,
// or be killed, while the engine is still running.
func (m *RunModel) Wait() {
	if m.events == nil {
		return
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.reviewer != nil {
		m.reviewer.Close()
	}
	for ev := range m.events {
		if ev.Result == nil && ev.Err != nil && !errors.Is(ev.Err, context.Canceled) && m.fatalErr == nil {
			m.fatalErr = ev.Err
		}
	}
	<-m.engine.Done()
	m.done = true
	m.summary = m.engine.SummarySnapshot()
	m.errors = m.engine.Errors()
}

// Done reports whether the engine finished.
func (m *RunModel) Done() bool { return m.done }

// Canceled reports whether the run was stopped before every file was handled.
func (m *RunModel) Canceled() bool { return m.summary.Canceled || (m.stopping && !m.done) }

// Summary returns the latest progress summary.
func (m *RunModel) Summary() core.Summary { return m.summary }

// Err returns a fatal run error such as a failed scan.
func (m *RunModel) Err() error { return m.fatalErr }
