package core

import (
	"context"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/extract"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

// promptableSlots are the slots a person can reasonably correct. Technical
// slots come from tables or the probe and are never prompted.
var promptableSlots = []media.Slot{
	media.LeagueName,
	media.SeasonName,
	media.AirYear,
	media.AirMonth,
	media.AirDay,
	media.EventName,
	media.EpisodeTitle,
	media.EpisodePart,
}

// SlotReview asks a person to confirm or correct slots of one file.
type SlotReview struct {
	Source     string
	Record     media.Record
	Confidence int
	Slots      []media.Slot
}

// ConflictReview asks a person what to do about an existing destination.
type ConflictReview struct {
	Source      string
	Destination string
	Default     string
}

// Reviewer is the interactive side of a run. The engine never calls it
// concurrently.
type Reviewer interface {
	// ReviewSlots returns replacement values keyed by slot. Slots left out
	// keep their extracted value.
	ReviewSlots(ctx context.Context, req SlotReview) (map[media.Slot]string, error)
	// ResolveConflict returns one of the config conflict actions.
	ResolveConflict(ctx context.Context, req ConflictReview) (string, error)
}

// PromptSlots returns the slots the automation level asks a person about.
//
//   - full-auto never asks.
//   - prompt-on-low-score asks only when the overall confidence is below the
//     quarantine threshold, and then about the critical slots that are weak.
//   - prompt-on-any asks about every weak slot.
//   - full-manual asks about every correctable slot.
//
// A slot is weak when its confidence is below the quarantine threshold.
func PromptSlots(level string, res Result, cfg *config.Config) []media.Slot {
	threshold := cfg.Quarantine.Threshold
	weak := func(s media.Slot) bool {
		return res.Record.Get(s).Confidence < threshold
	}

	var out []media.Slot
	switch level {
	case config.AutomationPromptLow:
		if res.Confidence >= threshold {
			return nil
		}
		for _, key := range cfg.Quarantine.CriticalSlots {
			if s, ok := media.ParseSlot(key); ok && weak(s) {
				out = append(out, s)
			}
		}
	case config.AutomationPromptAny:
		for _, s := range promptableSlots {
			if weak(s) {
				out = append(out, s)
			}
		}
	case config.AutomationFullManual:
		out = append(out, promptableSlots...)
	}
	return out
}

// ApplyCorrections writes reviewed values into the record at full confidence
// and recomputes the overall confidence. Empty values clear the slot.
func ApplyCorrections(res *Result, corrections map[media.Slot]string, cfg *config.Config) {
	if len(corrections) == 0 {
		return
	}
	for s, value := range corrections {
		if value == "" {
			res.Record.Clear(s)
			continue
		}
		res.Record.Set(s, value, extract.ConfidenceExact)
		if s == media.AirYear && !res.Record.IsFilled(media.SeasonName) {
			res.Record.Set(media.SeasonName, "Season "+value, extract.ConfidenceExact)
		}
	}
	markUnknown(&res.Record)
	res.Confidence = Aggregate(res.Record, cfg)
}
