// Package log records what a run did to each file and writes it as a JSON
// job report (live runs) or dry-run report.
package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

// Mode is how a run treats the filesystem.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeDryRun   Mode = "dry-run"
	ModeSimulate Mode = "simulate"
)

// ParseMode validates a mode flag value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLive, ModeDryRun, ModeSimulate:
		return m, nil
	}
	return "", fmt.Errorf("unsupported mode %q (want live, dry-run or simulate)", s)
}

// Mutates reports whether files are touched in this mode.
func (m Mode) Mutates() bool { return m == ModeLive }

// Outcome is what happened to one file.
type Outcome string

const (
	OutcomeRelocated   Outcome = "relocated"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeQuarantined Outcome = "quarantined"
	OutcomeFailed      Outcome = "failed"
)

// Operation is the filesystem action used to relocate a file.
type Operation string

const (
	OpNone     Operation = ""
	OpHardlink Operation = "hardlink"
	OpMove     Operation = "move"
)

// Entry is the record of one processed file.
type Entry struct {
	ID          string                     `json:"id"`
	Timestamp   time.Time                  `json:"timestamp"`
	Source      string                     `json:"source"`
	Destination string                     `json:"destination,omitempty"`
	Confidence  int                        `json:"confidence"`
	Outcome     Outcome                    `json:"outcome"`
	Operation   Operation                  `json:"operation,omitempty"`
	Reason      string                     `json:"reason,omitempty"`
	Error       string                     `json:"error,omitempty"`
	Slots       map[string]media.SlotValue `json:"slots,omitempty"`
}

// Metadata describes the run a report belongs to.
type Metadata struct {
	RunID       string    `json:"run_id"`
	Sport       string    `json:"sport"`
	Mode        Mode      `json:"mode"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	CommandArgs []string  `json:"command_args,omitempty"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished,omitempty"`
	Summary     Summary   `json:"summary"`
}

// Summary counts outcomes.
type Summary struct {
	Processed   int `json:"processed"`
	Relocated   int `json:"relocated"`
	Skipped     int `json:"skipped"`
	Quarantined int `json:"quarantined"`
	Failed      int `json:"failed"`
}

// Add counts one outcome.
func (s *Summary) Add(o Outcome) {
	s.Processed++
	switch o {
	case OutcomeRelocated:
		s.Relocated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeQuarantined:
		s.Quarantined++
	case OutcomeFailed:
		s.Failed++
	}
}

// Report is the on-disk form of a session.
type Report struct {
	Metadata Metadata `json:"metadata"`
	Entries  []Entry  `json:"entries"`
}

// Options configure a Session.
type Options struct {
	RunID       string
	Sport       string
	Mode        Mode
	Source      string
	Destination string
	CommandArgs []string
	// Dir is where the report is written. Empty disables writing.
	Dir string
	// RetentionDays removes older reports from Dir when the session opens.
	// Zero keeps everything.
	RetentionDays int
}

// Session collects entries for one run. It is safe for concurrent use and is
// created per run rather than shared globally.
type Session struct {
	mu      sync.Mutex
	meta    Metadata
	entries []Entry
	dir     string
	closed  bool
	now     func() time.Time
}

// NewSession opens a session. Old reports are cleaned up first; a cleanup
// failure is returned alongside a usable session.
func NewSession(opts Options) (*Session, error) {
	s := &Session{
		meta: Metadata{
			RunID:       opts.RunID,
			Sport:       opts.Sport,
			Mode:        opts.Mode,
			Source:      opts.Source,
			Destination: opts.Destination,
			CommandArgs: opts.CommandArgs,
			Started:     time.Now(),
		},
		dir: opts.Dir,
		now: time.Now,
	}
	if s.meta.Mode == "" {
		s.meta.Mode = ModeLive
	}
	var err error
	if opts.Dir != "" && opts.RetentionDays > 0 {
		_, err = Cleanup(opts.Dir, opts.RetentionDays)
	}
	return s, err
}

// Record appends an entry, stamping its id and time.
func (s *Session) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = fmt.Sprintf("%s_%d", s.meta.RunID, len(s.entries))
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.entries = append(s.entries, e)
	s.meta.Summary.Add(e.Outcome)
}

// Entries returns a copy of the recorded entries.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Summary returns the current outcome counts.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Summary
}

// Metadata returns the run metadata.
func (s *Session) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Close finishes the session and writes the report. Simulations and
// sessions without a directory write nothing and return an empty path.
// Closing twice is a no-op.
func (s *Session) Close() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", nil
	}
	s.closed = true
	s.meta.Finished = s.now()

	if s.dir == "" || s.meta.Mode == ModeSimulate {
		return "", nil
	}
	path := ReportPath(s.dir, s.meta.Mode, s.meta.Started)
	if err := WriteReport(path, &Report{Metadata: s.meta, Entries: s.entries}); err != nil {
		return "", err
	}
	return path, nil
}

// Report file name prefixes.
const (
	jobReportPrefix    = "job_report_"
	dryRunReportPrefix = "dry_run_report_"
)

// ReportPath returns the report file for a run started at t:
// job_report_<ts>.json for live runs, dry_run_report_<ts>.json otherwise.
func ReportPath(dir string, mode Mode, t time.Time) string {
	prefix := jobReportPrefix
	if mode != ModeLive {
		prefix = dryRunReportPrefix
	}
	name := fmt.Sprintf("%s%s.%03d.json", prefix, t.Format("2006-01-02_150405"), t.Nanosecond()/1000000)
	return filepath.Join(dir, name)
}

// WriteReport writes r as indented JSON, creating the directory if needed.
func WriteReport(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// ReadReport loads a report file.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// ListReports returns report files in dir, newest first. Only job reports are
// listed when jobsOnly is set.
func ListReports(dir string, jobsOnly bool) ([]string, error) {
	pattern := "*_report_*.json"
	if jobsOnly {
		pattern = jobReportPrefix + "*.json"
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list report files: %w", err)
	}
	// The timestamp follows the prefix, so sort on the part after it.
	sort.Slice(files, func(i, j int) bool {
		return reportStamp(files[i]) > reportStamp(files[j])
	})
	return files, nil
}

func reportStamp(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "_report_"); i >= 0 {
		return name[i+len("_report_"):]
	}
	return name
}

// LatestJobReport returns the newest job report in dir.
func LatestJobReport(dir string) (*Report, string, error) {
	files, err := ListReports(dir, true)
	if err != nil {
		return nil, "", err
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("no job reports found in %s", dir)
	}
	r, err := ReadReport(files[0])
	if err != nil {
		return nil, "", err
	}
	return r, files[0], nil
}

// Cleanup removes reports in dir older than retentionDays and returns how
// many were removed. A missing directory is not an error.
func Cleanup(dir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*_report_*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list report files: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	var errs []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(file); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("failed to remove old reports: %s", strings.Join(errs, "; "))
	}
	return removed, nil
}
