package progress

import (
	"context"
	"errors"
	"sync"

	"github.com/jordanlambrecht/sports-media-organizer/internal/core"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

// ErrReviewClosed is returned to the engine once the screen is gone.
var ErrReviewClosed = errors.New("review screen closed")

// ErrReviewSkipped is returned when a person dismisses a prompt.
var ErrReviewSkipped = errors.New("review skipped")

type reviewRequest struct {
	slots    *core.SlotReview
	conflict *core.ConflictReview
	reply    chan reviewReply
}

type reviewReply struct {
	corrections map[media.Slot]string
	choice      string
	err         error
}

// Reviewer hands engine prompts to a RunModel and waits for the answer. It
// implements core.Reviewer.
type Reviewer struct {
	requests  chan *reviewRequest
	closed    chan struct{}
	closeOnce sync.Once
}

// NewReviewer creates a reviewer to share between an engine and its model.
func NewReviewer() *Reviewer {
	return &Reviewer{
		requests: make(chan *reviewRequest),
		closed:   make(chan struct{}),
	}
}

// ReviewSlots implements core.Reviewer.
func (r *Reviewer) ReviewSlots(ctx context.Context, req core.SlotReview) (map[media.Slot]string, error) {
	reply, err := r.ask(ctx, &reviewRequest{slots: &req})
	if err != nil {
		return nil, err
	}
	return reply.corrections, reply.err
}

// ResolveConflict implements core.Reviewer.
func (r *Reviewer) ResolveConflict(ctx context.Context, req core.ConflictReview) (string, error) {
	reply, err := r.ask(ctx, &reviewRequest{conflict: &req})
	if err != nil {
		return "", err
	}
	return reply.choice, reply.err
}

// Close releases every pending and future prompt with ErrReviewClosed.
func (r *Reviewer) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
}

func (r *Reviewer) ask(ctx context.Context, req *reviewRequest) (reviewReply, error) {
	req.reply = make(chan reviewReply, 1)
	select {
	case r.requests <- req:
	case <-r.closed:
		return reviewReply{}, ErrReviewClosed
	case <-ctx.Done():
		return reviewReply{}, ctx.Err()
	}
	select {
	case reply := <-req.reply:
		return reply, nil
	case <-r.closed:
		return reviewReply{}, ErrReviewClosed
	case <-ctx.Done():
		return reviewReply{}, ctx.Err()
	}
}
