// Package prompt answers engine prompts on a plain line-oriented terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/core"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

// LineReviewer implements core.Reviewer by reading one answer per line.
type LineReviewer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewLineReviewer reads answers from in and writes questions to out.
func NewLineReviewer(in io.Reader, out io.Writer) *LineReviewer {
	return &LineReviewer{in: bufio.NewReader(in), out: out}
}

// ReviewSlots asks for each slot in turn. An empty answer keeps the current
// value and "-" clears it.
func (r *LineReviewer) ReviewSlots(ctx context.Context, req core.SlotReview) (map[media.Slot]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "\nReview %s (confidence %d%%)\n", filepath.Base(req.Source), req.Confidence)
	fmt.Fprintln(r.out, "  enter keeps the value, - clears it")
	rec := req.Record
	out := make(map[media.Slot]string)
	for _, slot := range req.Slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(r.out, "  %s [%s]: ", slot.Key(), rec.Value(slot))
		answer, err := r.readLine()
		if err != nil {
			return out, err
		}
		switch answer {
		case "":
		case "-":
			out[slot] = ""
		default:
			out[slot] = answer
		}
	}
	return out, nil
}

// ResolveConflict asks what to do about an existing destination.
func (r *LineReviewer) ResolveConflict(ctx context.Context, req core.ConflictReview) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(r.out, "\n%s already exists.\n  [s]kip, [o]verwrite, [r]ename (default %s): ", req.Destination, req.Default)
		answer, err := r.readLine()
		if err != nil {
			return "", err
		}
		switch strings.ToLower(answer) {
		case "":
			return req.Default, nil
		case "s", config.ConflictSkip:
			return config.ConflictSkip, nil
		case "o", config.ConflictOverwrite:
			return config.ConflictOverwrite, nil
		case "r", config.ConflictRename:
			return config.ConflictRename, nil
		}
		fmt.Fprintf(r.out, "  unknown choice %q\n", answer)
	}
}

func (r *LineReviewer) readLine() (string, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
