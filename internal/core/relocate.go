package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
)

// maxRenameAttempts bounds the "name (N).ext" search.
const maxRenameAttempts = 1000

// RelocateOptions selects how a file is placed at its destination.
type RelocateOptions struct {
	Mode     string // config.RelocateHardlink or config.RelocateMove
	Conflict string // config.ConflictSkip, ConflictOverwrite or ConflictRename
	// DryRun resolves the destination without touching the filesystem.
	DryRun bool
}

// Relocation describes what happened (or would happen) to one file.
type Relocation struct {
	Destination string
	Operation   log.Operation
	Skipped     bool
	Reason      string
}

// ErrNoDestination is returned for an empty destination path.
var ErrNoDestination = errors.New("no destination path specified")

// DestinationExists reports whether something is already at dest.
func DestinationExists(dest string) bool {
	_, err := os.Lstat(dest)
	return err == nil
}

// Relocate hardlinks or moves src to dest, creating parent directories. An
// existing destination is handled by the conflict action: skip leaves the
// source alone, overwrite replaces the destination and rename picks the
// first free "name (N).ext".
func Relocate(src, dest string, opts RelocateOptions) (Relocation, error) {
	if dest == "" {
		return Relocation{}, ErrNoDestination
	}
	dest, err := sanitizePath(dest)
	if err != nil {
		return Relocation{}, err
	}
	rel := Relocation{Destination: dest, Operation: operationFor(opts.Mode)}

	if info, err := os.Lstat(dest); err == nil {
		if srcInfo, serr := os.Stat(src); serr == nil && os.SameFile(srcInfo, info) {
			rel.Skipped = true
			rel.Reason = "already in place"
			rel.Operation = log.OpNone
			return rel, nil
		}
		switch opts.Conflict {
		case config.ConflictOverwrite:
			if !opts.DryRun {
				if err := os.Remove(dest); err != nil {
					return rel, fmt.Errorf("failed to replace %s: %w", dest, err)
				}
			}
			rel.Reason = "replaced existing destination"
		case config.ConflictRename:
			free, err := freeName(dest)
			if err != nil {
				return rel, err
			}
			rel.Destination = free
			rel.Reason = "destination exists, renamed"
		default:
			rel.Skipped = true
			rel.Reason = "destination exists"
			rel.Operation = log.OpNone
			return rel, nil
		}
	} else if !os.IsNotExist(err) {
		return rel, fmt.Errorf("failed to check %s: %w", dest, err)
	}

	if opts.DryRun {
		return rel, nil
	}

	destDir := filepath.Dir(rel.Destination)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return rel, fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	switch rel.Operation {
	case log.OpMove:
		err = moveFile(src, rel.Destination)
	default:
		err = os.Link(src, rel.Destination)
		if os.IsExist(err) {
			// Created between the check and the link.
			rel.Skipped = true
			rel.Reason = "destination exists"
			rel.Operation = log.OpNone
			return rel, nil
		}
		if err != nil {
			err = fmt.Errorf("failed to create hard link (possibly cross-filesystem or unsupported): %w", err)
		}
	}
	return rel, err
}

func operationFor(mode string) log.Operation {
	if mode == config.RelocateMove {
		return log.OpMove
	}
	return log.OpHardlink
}

// freeName returns the first "name (N).ext" next to dest that does not exist.
func freeName(dest string) (string, error) {
	dir, base := filepath.Split(dest)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; i <= maxRenameAttempts; i++ {
		candidate := filepath.Join(dir, stem+" ("+strconv.Itoa(i)+")"+ext)
		if !DestinationExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", base, maxRenameAttempts)
}

// moveFile renames src to dest, copying across filesystems when rename
// cannot.
func moveFile(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	if err := copyFile(src, dest); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("failed to copy %s across filesystems: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("copied %s but failed to remove the original: %w", src, err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
