// Package probe reads technical stream details from media files with ffprobe.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"gopkg.in/vansante/go-ffprobe.v2"
)

// Error codes reported by FFProbe.
const (
	CodeMissingPath   = "MISSING_PATH"
	CodeProbeFailed   = "PROBE_FAILED"
	CodeNoVideoStream = "NO_VIDEO_STREAM"
)

// Error is returned when a file cannot be probed.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Info is the subset of stream details the extractors use.
type Info struct {
	Codec     string
	Width     int
	Height    int
	FrameRate float64
}

// Resolution buckets the frame size into the labels used in release names.
func (i *Info) Resolution() string {
	switch {
	case i.Width <= 0 || i.Height <= 0:
		return ""
	case i.Width >= 3840 && i.Height >= 2160:
		return "4K"
	case i.Width >= 1920 && i.Height >= 1080:
		return "1080p"
	case i.Width >= 1280 && i.Height >= 720:
		return "720p"
	}
	return "SD"
}

// FPS formats the frame rate rounded to two decimals, e.g. "29.97 FPS".
func (i *Info) FPS() string {
	if i.FrameRate <= 0 {
		return ""
	}
	rounded := math.Round(i.FrameRate*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " FPS"
}

// Prober returns stream details for a file.
type Prober interface {
	Probe(ctx context.Context, path string) (*Info, error)
}

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// FFProbe runs ffprobe once per file and remembers the result, including
// failures, for the lifetime of the run. Concurrent calls for the same file
// share one ffprobe invocation.
type FFProbe struct {
	probe   probeFunc
	timeout time.Duration
	cache   *cache.Cache
	group   singleflight.Group
	logger  *slog.Logger
}

type cached struct {
	info *Info
	err  error
}

// New creates an ffprobe-backed prober. A zero timeout means no limit.
func New(timeout time.Duration, logger *slog.Logger) *FFProbe {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FFProbe{
		probe:   ffprobe.ProbeURL,
		timeout: timeout,
		cache:   cache.New(cache.NoExpiration, 0),
		logger:  logger,
	}
}

// Probe returns the first video stream's details for path.
func (p *FFProbe) Probe(ctx context.Context, path string) (*Info, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &Error{Code: CodeMissingPath, Message: "ffprobe requires a non-empty file path"}
	}
	if hit, found := p.cache.Get(path); found {
		if c, ok := hit.(cached); ok {
			return c.info, c.err
		}
	}

	v, _, _ := p.group.Do(path, func() (interface{}, error) {
		info, err := p.run(ctx, path)
		c := cached{info: info, err: err}
		// Cancellation says nothing about the file; let a later call retry.
		if !errors.Is(err, context.Canceled) {
			p.cache.Set(path, c, cache.NoExpiration)
		}
		return c, nil
	})
	c := v.(cached)
	return c.info, c.err
}

func (p *FFProbe) run(ctx context.Context, path string) (*Info, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := p.probe(ctx, path)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		p.logger.Debug("ffprobe failed", "path", path, "error", err)
		return nil, &Error{Code: CodeProbeFailed, Message: fmt.Sprintf("ffprobe failed for %s: %v", path, err)}
	}

	var stream *ffprobe.Stream
	if data != nil {
		stream = data.FirstVideoStream()
	}
	if stream == nil {
		return nil, &Error{Code: CodeNoVideoStream, Message: fmt.Sprintf("no video stream in %s", path)}
	}

	info := &Info{
		Codec:     pickCodecName(stream),
		Width:     stream.Width,
		Height:    stream.Height,
		FrameRate: parseRate(stream.RFrameRate),
	}
	if info.FrameRate == 0 {
		info.FrameRate = parseRate(stream.AvgFrameRate)
	}
	p.logger.Debug("ffprobe finished",
		"path", path,
		"codec", info.Codec,
		"width", info.Width,
		"height", info.Height,
		"fps", info.FrameRate,
		"elapsed", time.Since(start),
	)
	return info, nil
}

func pickCodecName(stream *ffprobe.Stream) string {
	if stream.CodecName != "" {
		return stream.CodecName
	}
	return stream.CodecLongName
}

// parseRate reads ffprobe's "num/den" frame rates. Plain numbers are accepted
// too; anything else is 0.
func parseRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0
	}
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Disabled is a Prober that always reports the probe as unavailable.
type Disabled struct{}

// Probe implements Prober.
func (Disabled) Probe(context.Context, string) (*Info, error) {
	return nil, &Error{Code: CodeProbeFailed, Message: "media probing is disabled"}
}
