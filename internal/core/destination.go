package core

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

// BuildDestination returns the folder (relative to the destination root) and
// the filename for a record. It is deterministic: the same record, confidence
// and config always produce the same strings.
func BuildDestination(rec media.Record, confidence int, cfg *config.Config) (string, string) {
	return buildFolder(rec, confidence, cfg), buildFilename(rec)
}

func buildFolder(rec media.Record, confidence int, cfg *config.Config) string {
	var parts []string
	if cfg.SortBySport && rec.Sport != "" {
		parts = append(parts, folderOr(config.TitleSport(rec.Sport), media.Unknown))
	}

	league := known(rec, media.LeagueName)
	switch {
	case league == "" && cfg.UnknownLeagueFolder != "":
		parts = append(parts, cfg.UnknownLeagueFolder)
	case cfg.LowConfidenceThreshold > 0 && confidence < cfg.LowConfidenceThreshold && cfg.LowConfidenceFolder != "":
		parts = append(parts, cfg.LowConfidenceFolder)
	default:
		parts = append(parts, folderOr(league, media.Unknown))
	}

	parts = append(parts, folderOr(known(rec, media.SeasonName), media.Unknown))
	return filepath.Join(parts...)
}

func buildFilename(rec media.Record) string {
	var components []string
	add := func(value string) {
		if c := sanitizeComponent(value); c != "" {
			components = append(components, c)
		}
	}

	add(known(rec, media.LeagueName))
	if date := rec.AirDate(); date != "" {
		add(date)
	}
	add(known(rec, media.EventName))
	add(known(rec, media.EpisodeTitle))
	if n := partNumber(known(rec, media.EpisodePart)); n > 0 {
		add("Part" + strconv.Itoa(n))
	}
	add(known(rec, media.Codec))
	add(known(rec, media.Resolution))
	add(known(rec, media.ReleaseFormat))
	if group := sanitizeComponent(known(rec, media.ReleaseGroup)); group != "" {
		components = append(components, "["+group+"]")
	}

	name := strings.Join(components, ".")
	name = repeatedDashRe.ReplaceAllString(name, "-")
	name = repeatedDotRe.ReplaceAllString(name, ".")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = media.Unknown
	}

	ext := known(rec, media.Extension)
	if ext == "" {
		ext = media.ExtensionOf(rec.SourcePath)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return name + strings.ToLower(ext)
}

// known returns the slot value unless it is missing or the Unknown
// placeholder.
func known(rec media.Record, s media.Slot) string {
	v := rec.Value(s)
	if v == media.Unknown {
		return ""
	}
	return v
}

func folderOr(value, fallback string) string {
	if f := sanitizeFolder(value); f != "" {
		return f
	}
	return fallback
}

// partNumber reads the number out of a "part-NN" label.
func partNumber(label string) int {
	digits := strings.TrimLeft(strings.ToLower(label), "abcdefghijklmnopqrstuvwxyz-_. ")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Quarantine reports whether a result must go to the manual-intervention
// folder: a critical slot is missing or Unknown, or the overall confidence is
// below the quarantine threshold.
func Quarantine(res Result, cfg *config.Config) (bool, string) {
	if !cfg.Quarantine.Enabled {
		return false, ""
	}
	var missing []string
	for _, key := range cfg.Quarantine.CriticalSlots {
		s, ok := media.ParseSlot(key)
		if !ok {
			continue
		}
		if known(res.Record, s) == "" {
			missing = append(missing, s.Key())
		}
	}
	if len(missing) > 0 {
		return true, "missing critical slots: " + strings.Join(missing, ", ")
	}
	if res.Confidence < cfg.Quarantine.Threshold {
		return true, fmt.Sprintf("confidence %d below quarantine threshold %d", res.Confidence, cfg.Quarantine.Threshold)
	}
	return false, ""
}

// QuarantinePath is where a quarantined file goes: the quarantine folder
// under root, keeping the original file name.
func QuarantinePath(root, source string, cfg *config.Config) string {
	return filepath.Join(root, folderOr(cfg.Quarantine.Folder, "_manual_intervention"), filepath.Base(source))
}
