package log

import (
	"fmt"
	"os"
	"path/filepath"
)

type UndoResult struct {
	Entry   Entry
	Success bool
	Error   error
}

// UndoEntry reverses one relocation: a hardlink is removed, a move is moved
// back. Entries that did not touch the filesystem are reported as failures.
func UndoEntry(e Entry) UndoResult {
	result := UndoResult{Entry: e}

	if e.Destination == "" {
		result.Error = fmt.Errorf("cannot undo %s: destination path missing", e.Source)
		return result
	}

	switch e.Operation {
	case OpHardlink:
		destInfo, err := os.Lstat(e.Destination)
		if os.IsNotExist(err) {
			// Link already removed
			result.Success = true
			return result
		}
		if err != nil {
			result.Error = fmt.Errorf("failed to stat %s: %w", e.Destination, err)
			return result
		}
		// Removing the link is only safe while the original still exists.
		srcInfo, err := os.Stat(e.Source)
		if err != nil {
			result.Error = fmt.Errorf("cannot undo link: original %s not found", e.Source)
			return result
		}
		if !os.SameFile(srcInfo, destInfo) {
			result.Error = fmt.Errorf("cannot undo link: %s is no longer a link to %s", e.Destination, e.Source)
			return result
		}
		if err := os.Remove(e.Destination); err != nil {
			result.Error = fmt.Errorf("failed to remove link %s: %w", e.Destination, err)
			return result
		}
		result.Success = true

	case OpMove:
		if _, err := os.Stat(e.Destination); os.IsNotExist(err) {
			result.Error = fmt.Errorf("cannot undo move: file %s not found", e.Destination)
			return result
		}
		if _, err := os.Stat(e.Source); err == nil {
			result.Error = fmt.Errorf("cannot undo move: original path %s already exists", e.Source)
			return result
		}
		if err := os.MkdirAll(filepath.Dir(e.Source), 0755); err != nil {
			result.Error = fmt.Errorf("failed to recreate %s: %w", filepath.Dir(e.Source), err)
			return result
		}
		if err := os.Rename(e.Destination, e.Source); err != nil {
			result.Error = fmt.Errorf("failed to move %s back to %s: %w", e.Destination, e.Source, err)
			return result
		}
		result.Success = true

	default:
		result.Error = fmt.Errorf("cannot undo %s: no filesystem operation recorded", e.Source)
	}

	return result
}

// UndoReport reverses every relocation of a live report, newest first.
// Skipped and failed entries are ignored.
func UndoReport(r *Report) (successful int, failed int, errs []error) {
	if r.Metadata.Mode != ModeLive {
		return 0, 0, []error{fmt.Errorf("report for run %s is a %s report; nothing was moved", r.Metadata.RunID, r.Metadata.Mode)}
	}
	for i := len(r.Entries) - 1; i >= 0; i-- {
		e := r.Entries[i]
		if e.Outcome != OutcomeRelocated && e.Outcome != OutcomeQuarantined {
			continue
		}
		if e.Operation == OpNone {
			continue
		}
		result := UndoEntry(e)
		if result.Success {
			successful++
			continue
		}
		failed++
		if result.Error != nil {
			errs = append(errs, result.Error)
		}
	}
	return successful, failed, errs
}
