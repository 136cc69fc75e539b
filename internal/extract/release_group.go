package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

var (
	// groupTagRe finds a trailing release group: "[GROUP]" anywhere, or
	// "-GROUP" / "_GROUP" at the end of the name.
	groupTagRe = regexp.MustCompile(`\[([A-Za-z0-9_]+)\]|-([A-Za-z0-9_]+)$|_([A-Za-z0-9_]+)$`)

	// encodingTagRe rejects encoding, container and quality tags that look
	// like groups.
	encodingTagRe = regexp.MustCompile(`(?i)^(?:x26[45]|h\.?26[45]|hevc|avc|av1|vp9|xvid|divx|mpeg2?|aac|ac3|eac3|dd(?:p?5\.?1)?|dts|flac|mp3|opus|mkv|mp4|avi|m4v|ts|mov|wmv|\d{3,4}[pi]|4k|uhd|sd|hd|hdr|hdtv|web|web-?dl|webrip|bluray|bdrip|dvdrip|proper|repack|internal|\d+fps|\d+bit|\d+)$`)
)

// ReleaseGroup matches the release group table, then a trailing group tag.
type ReleaseGroup struct {
	env Env
}

// NewReleaseGroup creates the release group extractor.
func NewReleaseGroup(env Env) *ReleaseGroup {
	return &ReleaseGroup{env: env.withDefaults()}
}

func (g *ReleaseGroup) Name() string { return "release_group" }

// Extract implements Extractor.
func (g *ReleaseGroup) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.ReleaseGroup, g.env.Config.TrustThreshold) {
		return nil, nil
	}
	if hit, ok := g.env.Tables.ReleaseGroups.Match(in.Filename, in.Path); ok {
		return []Candidate{{Slot: media.ReleaseGroup, Value: hit.Canonical, Matched: hit.Text, Confidence: ConfidenceReleaseGroup}}, nil
	}

	if group, matched, ok := g.findTag(media.TrimExtension(in.Filename)); ok {
		if g.env.Config.ReleaseGroup.AutoAdd && g.env.Tables.ReleaseGroups.Register(group, group) {
			g.env.Logger.Info("registered new release group", "group", group, "file", in.Filename)
		}
		return []Candidate{{Slot: media.ReleaseGroup, Value: group, Matched: matched, Confidence: ConfidenceGroupPattern}}, nil
	}

	if g.env.Config.ReleaseGroup.AppendUnknown {
		return []Candidate{{Slot: media.ReleaseGroup, Value: UnknownGroup, Confidence: ConfidenceUnknownGroup}}, nil
	}
	return nil, nil
}

// findTag returns the first group-shaped tag in name that is not an
// encoding tag or a value of one of the other reference tables.
func (g *ReleaseGroup) findTag(name string) (group, matched string, ok bool) {
	for _, sub := range groupTagRe.FindAllStringSubmatch(name, -1) {
		candidate := firstNonEmpty(sub[1:]...)
		// A trailing "-X" or "_X" only marks a group when that separator is
		// not also used between the words of the name.
		if sub[1] == "" && strings.Count(name, sub[0][:1]) > 1 {
			continue
		}
		if !g.plausible(candidate) {
			continue
		}
		return candidate, sub[0], true
	}
	return "", "", false
}

func (g *ReleaseGroup) plausible(candidate string) bool {
	if len(candidate) < 2 || encodingTagRe.MatchString(candidate) {
		return false
	}
	if g.env.Profile.League.Contains(candidate) || g.env.Profile.Events.Contains(candidate) {
		return false
	}
	if g.env.Tables.Codecs.Contains(candidate) ||
		g.env.Tables.Resolutions.Contains(candidate) ||
		g.env.Tables.ReleaseFormats.Contains(candidate) ||
		g.env.Tables.ReleaseTypes.Contains(candidate) {
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
