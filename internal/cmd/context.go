package cmd

import (
	"io"
	"log/slog"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/logging"
)

// commandContext holds the persistent flag values shared by every command.
type commandContext struct {
	configFlag string
	logLevel   string
	logFormat  string
}

// configDir resolves the configuration directory.
func (c *commandContext) configDir() (string, error) {
	if dir := strings.TrimSpace(c.configFlag); dir != "" {
		return dir, nil
	}
	return config.DefaultDir()
}

// loadConfig reads config.yaml, falling back to defaults when it is unusable.
// The load error is returned alongside the defaults so callers can log it.
func (c *commandContext) loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return config.DefaultConfigIn(dir), err
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger. Flags override the config file.
// Console output goes to w; the log directory, when configured, always gets
// a copy.
func (c *commandContext) newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	format := cfg.Log.Format
	if c.logFormat != "" {
		format = c.logFormat
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: format,
		Dir:    cfg.Log.Dir,
		Output: w,
	})
}
