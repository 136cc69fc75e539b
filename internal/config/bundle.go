package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Bundle is everything loaded from the config dir for one run.
type Bundle struct {
	Dir     string
	Config  *Config
	Global  GlobalOverrides
	Tables  Tables
	Profile *SportProfile
}

// LoadBundle loads the global config, overrides, reference tables and the
// profile for sport. Configuration problems never abort: each one is logged
// and replaced with a default.
func LoadBundle(dir, sport string, logger *slog.Logger) *Bundle {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bundle{Dir: dir}

	cfg, err := Load(dir)
	if err != nil {
		logger.Error("config unusable, using defaults", "path", ConfigPath(dir), "error", err)
		cfg = DefaultConfigIn(dir)
	}
	b.Config = cfg

	global, err := LoadGlobalOverrides(dir)
	if err != nil {
		logger.Warn("global overrides ignored", "error", err)
	}
	b.Global = global

	tables, err := LoadTables(dir)
	if err != nil {
		logger.Warn("reference tables fell back to defaults", "error", err)
	}
	b.Tables = tables

	profile, err := LoadSport(dir, sport)
	if err != nil {
		logger.Warn("sport profile ignored", "sport", sport, "error", err)
	}
	b.Profile = profile

	logger.Debug("configuration loaded",
		"dir", dir,
		"sport", profile.Sport,
		"leagues", profile.League.Len(),
		"wildcards", len(profile.Wildcards),
		"codecs", tables.Codecs.Snapshot().Len(),
		"release_groups", tables.ReleaseGroups.Snapshot().Len(),
	)
	return b
}

// Init creates dir with a default config.yaml, the default reference tables,
// an empty global overrides file and the sports directory. Existing files are
// left untouched.
func Init(dir string) error {
	if err := os.MkdirAll(SportsDir(dir), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(ConfigPath(dir)); os.IsNotExist(err) {
		if err := DefaultConfigIn(dir).Save(dir); err != nil {
			return err
		}
	}
	global := filepath.Join(OverridesDir(dir), globalOverridesName)
	if _, err := os.Stat(global); os.IsNotExist(err) {
		body := []byte("pre_run_filename_substitutions: []\npre_run_filter_out: []\n")
		if err := os.WriteFile(global, body, 0644); err != nil {
			return fmt.Errorf("failed to write global overrides: %w", err)
		}
	}
	return writeDefaultTables(dir)
}
