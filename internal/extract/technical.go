package extract

import (
	"context"
	"math"
	"regexp"
	"strconv"

	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
	"github.com/jordanlambrecht/sports-media-organizer/internal/reftable"
)

// Codec matches the codec table, then falls back to the media probe.
// Probed codecs unknown to the table are registered when codec.auto_add is
// set.
type Codec struct {
	env Env
}

// NewCodec creates the codec extractor.
func NewCodec(env Env) *Codec {
	return &Codec{env: env.withDefaults()}
}

func (c *Codec) Name() string { return "codec" }

// Extract implements Extractor.
func (c *Codec) Extract(ctx context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.Codec, c.env.Config.TrustThreshold) {
		return nil, nil
	}
	if hit, ok := c.env.Tables.Codecs.Match(in.Filename, in.Path); ok {
		return []Candidate{{Slot: media.Codec, Value: hit.Canonical, Matched: hit.Text, Confidence: ConfidenceExact}}, nil
	}

	info := probeInfo(ctx, c.env, in.Source)
	if info == nil || info.Codec == "" {
		return nil, nil
	}
	if hit, ok := c.env.Tables.Codecs.Snapshot().Exact(info.Codec); ok {
		return []Candidate{{Slot: media.Codec, Value: hit.Canonical, Confidence: ConfidenceProbeCodec}}, nil
	}
	if c.env.Config.Codec.AutoAdd && c.env.Tables.Codecs.Register(info.Codec, info.Codec) {
		c.env.Logger.Info("registered new codec", "codec", info.Codec, "file", in.Filename)
	}
	return []Candidate{{Slot: media.Codec, Value: info.Codec, Confidence: ConfidenceProbeCodec}}, nil
}

// Resolution matches the resolution table, then buckets the probed frame
// size.
type Resolution struct {
	env Env
}

// NewResolution creates the resolution extractor.
func NewResolution(env Env) *Resolution {
	return &Resolution{env: env.withDefaults()}
}

func (r *Resolution) Name() string { return "resolution" }

// Extract implements Extractor.
func (r *Resolution) Extract(ctx context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.Resolution, r.env.Config.TrustThreshold) {
		return nil, nil
	}
	if hit, ok := r.env.Tables.Resolutions.Match(in.Filename, in.Path); ok {
		return []Candidate{{Slot: media.Resolution, Value: hit.Canonical, Matched: hit.Text, Confidence: ConfidenceExact}}, nil
	}
	if info := probeInfo(ctx, r.env, in.Source); info != nil {
		if label := info.Resolution(); label != "" {
			return []Candidate{{Slot: media.Resolution, Value: label, Confidence: ConfidenceProbeDetail}}, nil
		}
	}
	return nil, nil
}

// fpsRe finds frame rates written into release names: "50fps", "59.94 FPS".
var fpsRe = regexp.MustCompile(`(?i)(?:^|[^0-9])((\d{2,3}(?:\.\d{1,3})?)[\s._-]?fps)(?:[^a-z]|$)`)

// FPS reads the frame rate from the name, then from the probe.
type FPS struct {
	env Env
}

// NewFPS creates the frame rate extractor.
func NewFPS(env Env) *FPS {
	return &FPS{env: env.withDefaults()}
}

func (f *FPS) Name() string { return "fps" }

// Extract implements Extractor.
func (f *FPS) Extract(ctx context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.FPS, f.env.Config.TrustThreshold) {
		return nil, nil
	}
	for _, text := range []string{in.Filename, in.Path} {
		loc := fpsRe.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		rate, err := strconv.ParseFloat(text[loc[4]:loc[5]], 64)
		if err != nil || rate <= 0 {
			continue
		}
		return []Candidate{{Slot: media.FPS, Value: FormatFPS(rate), Matched: text[loc[2]:loc[3]], Confidence: ConfidenceExact}}, nil
	}
	if info := probeInfo(ctx, f.env, in.Source); info != nil {
		if label := info.FPS(); label != "" {
			return []Candidate{{Slot: media.FPS, Value: label, Confidence: ConfidenceProbeDetail}}, nil
		}
	}
	return nil, nil
}

// FormatFPS renders a frame rate rounded to two decimals: 50 -> "50 FPS".
func FormatFPS(rate float64) string {
	rounded := math.Round(rate*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " FPS"
}

// ReleaseFormat matches the release format table. There is no probe
// fallback.
type ReleaseFormat struct {
	env Env
}

// NewReleaseFormat creates the release format extractor.
func NewReleaseFormat(env Env) *ReleaseFormat {
	return &ReleaseFormat{env: env.withDefaults()}
}

func (r *ReleaseFormat) Name() string { return "release_format" }

// Extract implements Extractor.
func (r *ReleaseFormat) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.ReleaseFormat, r.env.Config.TrustThreshold) {
		return nil, nil
	}
	if hit, ok := r.env.Tables.ReleaseFormats.Match(in.Filename, in.Path); ok {
		return []Candidate{{Slot: media.ReleaseFormat, Value: hit.Canonical, Matched: hit.Text, Confidence: ConfidenceExact}}, nil
	}
	return nil, nil
}

// ReleaseType matches PROPER, REPACK and similar tags. Longer aliases and
// hits in the filename rather than the directories score higher.
type ReleaseType struct {
	env Env
}

// NewReleaseType creates the release type extractor.
func NewReleaseType(env Env) *ReleaseType {
	return &ReleaseType{env: env.withDefaults()}
}

func (r *ReleaseType) Name() string { return "release_type" }

// Extract implements Extractor.
func (r *ReleaseType) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.ReleaseType, r.env.Config.TrustThreshold) {
		return nil, nil
	}
	hit, ok := r.env.Tables.ReleaseTypes.Match(in.Filename)
	inFilename := ok
	if !ok {
		hit, ok = r.env.Tables.ReleaseTypes.Match(in.Path)
	}
	if !ok {
		return nil, nil
	}
	return []Candidate{{Slot: media.ReleaseType, Value: hit.Canonical, Matched: hit.Text, Confidence: releaseTypeConfidence(hit, inFilename)}}, nil
}

func releaseTypeConfidence(hit reftable.Hit, inFilename bool) int {
	confidence := ConfidenceReleaseType
	if len(hit.Alias) > 3 {
		confidence += 5
	}
	if inFilename {
		confidence += 5
	}
	return min(confidence, ConfidenceExact)
}

// Extension accepts the file extension when the allowed and blocked lists
// permit it.
type Extension struct {
	env Env
}

// NewExtension creates the extension extractor.
func NewExtension(env Env) *Extension {
	return &Extension{env: env.withDefaults()}
}

func (e *Extension) Name() string { return "extension" }

// Extract implements Extractor.
func (e *Extension) Extract(_ context.Context, in Input, rec media.Record) ([]Candidate, error) {
	if rec.Trusted(media.Extension, e.env.Config.TrustThreshold) {
		return nil, nil
	}
	ext := media.ExtensionOf(in.Filename)
	if ext == "" || !media.ExtensionAllowed(ext, e.env.Config.AllowedExtensions, e.env.Config.BlockedExtensions) {
		return nil, nil
	}
	return []Candidate{{Slot: media.Extension, Value: ext, Matched: in.Filename[len(in.Filename)-len(ext):], Confidence: ConfidenceExact}}, nil
}
