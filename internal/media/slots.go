package media

import (
	"fmt"
	"strings"
)

// Slot identifies one metadata field of a media record.
type Slot int

const (
	LeagueName Slot = iota
	EventName
	AirYear
	AirMonth
	AirDay
	SeasonName
	EpisodeTitle
	EpisodePart
	Codec
	FPS
	Resolution
	ReleaseFormat
	ReleaseType
	ReleaseGroup
	Extension

	slotCount
)

// Unknown is the placeholder written into paths and reports for slots that
// could not be determined.
const Unknown = "Unknown"

var slotKeys = [slotCount]string{
	LeagueName:    "league_name",
	EventName:     "event_name",
	AirYear:       "air_year",
	AirMonth:      "air_month",
	AirDay:        "air_day",
	SeasonName:    "season_name",
	EpisodeTitle:  "episode_title",
	EpisodePart:   "episode_part",
	Codec:         "codec",
	FPS:           "fps",
	Resolution:    "resolution",
	ReleaseFormat: "release_format",
	ReleaseType:   "release_type",
	ReleaseGroup:  "release_group",
	Extension:     "extension",
}

// Slots returns every slot in declaration order.
func Slots() []Slot {
	out := make([]Slot, 0, slotCount)
	for s := Slot(0); s < slotCount; s++ {
		out = append(out, s)
	}
	return out
}

// Key returns the snake_case name used in configuration files and reports.
func (s Slot) Key() string {
	if s < 0 || s >= slotCount {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotKeys[s]
}

func (s Slot) String() string { return s.Key() }

// ParseSlot resolves a configuration key such as "league_name" to its Slot.
// Keys are matched case-insensitively.
func ParseSlot(key string) (Slot, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for s, k := range slotKeys {
		if k == key {
			return Slot(s), true
		}
	}
	return 0, false
}

// SlotValue is the in-progress extraction result for one slot.
//
// Filled is only true once a candidate passed the acceptance rule; Confidence
// then holds that candidate's score. Matched keeps the raw text the value was
// read from so later stages can strip it from the filename.
type SlotValue struct {
	Value      string `json:"value,omitempty"`
	Confidence int    `json:"confidence"`
	Filled     bool   `json:"filled"`
	Matched    string `json:"-"`
}

// Record is the full slot set for one file. It is a plain value: copies handed
// to extractors cannot affect the orchestrator's record.
type Record struct {
	Sport      string
	SourcePath string
	slots      [slotCount]SlotValue
}

// NewRecord returns an empty record for the given sport and source file.
func NewRecord(sport, sourcePath string) Record {
	return Record{Sport: sport, SourcePath: sourcePath}
}

// Get returns the slot value for s.
func (r *Record) Get(s Slot) SlotValue {
	if s < 0 || s >= slotCount {
		return SlotValue{}
	}
	return r.slots[s]
}

// Value returns the accepted value for s or "" when the slot is unfilled.
func (r *Record) Value(s Slot) string {
	v := r.Get(s)
	if !v.Filled {
		return ""
	}
	return v.Value
}

// IsFilled reports whether s holds an accepted value.
func (r *Record) IsFilled(s Slot) bool {
	return r.Get(s).Filled
}

// Trusted reports whether s is filled with a confidence strictly above limit.
func (r *Record) Trusted(s Slot, limit int) bool {
	v := r.Get(s)
	return v.Filled && v.Confidence > limit
}

// Fill offers a candidate for s. The candidate is accepted when it carries a
// value, a positive confidence, and confidence >= threshold*weight. An
// already-filled slot is only replaced by a strictly more confident candidate.
// Fill reports whether the slot was written.
func (r *Record) Fill(s Slot, value string, confidence int, matched string, weight, threshold float64) bool {
	if s < 0 || s >= slotCount {
		return false
	}
	value = strings.TrimSpace(value)
	if value == "" || confidence <= 0 {
		return false
	}
	confidence = clampConfidence(confidence)
	if float64(confidence) < threshold*weight {
		return false
	}
	cur := r.slots[s]
	if cur.Filled && confidence <= cur.Confidence {
		return false
	}
	r.slots[s] = SlotValue{Value: value, Confidence: confidence, Filled: true, Matched: matched}
	return true
}

// Set writes s unconditionally. It is used for wildcard assignments and manual
// corrections that bypass the acceptance threshold.
func (r *Record) Set(s Slot, value string, confidence int) {
	if s < 0 || s >= slotCount {
		return
	}
	value = strings.TrimSpace(value)
	if value == "" {
		r.slots[s] = SlotValue{}
		return
	}
	r.slots[s] = SlotValue{Value: value, Confidence: clampConfidence(confidence), Filled: true, Matched: value}
}

// Clear resets s to its empty state.
func (r *Record) Clear(s Slot) {
	if s < 0 || s >= slotCount {
		return
	}
	r.slots[s] = SlotValue{}
}

// AirDate formats the known date components as YYYY-MM-DD, YYYY-MM or YYYY.
// It returns "" when no year is known.
func (r *Record) AirDate() string {
	year := r.Value(AirYear)
	if year == "" || year == Unknown {
		return ""
	}
	month := r.Value(AirMonth)
	if month == "" || month == Unknown {
		return year
	}
	day := r.Value(AirDay)
	if day == "" || day == Unknown {
		return year + "-" + month
	}
	return year + "-" + month + "-" + day
}

// Snapshot returns the filled slots keyed by their configuration name.
func (r *Record) Snapshot() map[string]SlotValue {
	out := make(map[string]SlotValue, slotCount)
	for s := Slot(0); s < slotCount; s++ {
		if r.slots[s].Filled {
			out[s.Key()] = r.slots[s]
		}
	}
	return out
}

func clampConfidence(c int) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}
