package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Relocation modes.
const (
	RelocateHardlink = "hardlink"
	RelocateMove     = "move"
)

// Conflict actions applied when a destination file already exists.
const (
	ConflictSkip      = "skip"
	ConflictOverwrite = "overwrite"
	ConflictRename    = "rename"
)

// Automation levels controlling when the user is asked to confirm slots.
const (
	AutomationFullAuto     = "full-auto"
	AutomationPromptLow    = "prompt-on-low-score"
	AutomationPromptAny    = "prompt-on-any"
	AutomationFullManual   = "full-manual"
	configFileName         = "config.yaml"
	appDirName             = ".sports-media-organizer"
	configDirEnv           = "SMO_CONFIG_DIR"
	globalOverridesName    = "global_overrides.yaml"
	overridesDirName       = "overrides"
	sportsDirName          = "sports"
	reportsDirName         = "reports"
	logsDirName            = "logs"
	codecsFileName         = "codecs.yaml"
	resolutionsFileName    = "resolutions.yaml"
	releaseFormatsFileName = "release-formats.yaml"
	releaseTypesFileName   = "release-types.yaml"
	releaseGroupsFileName  = "release-groups.yaml"
)

// Config holds the global settings of the organizer.
type Config struct {
	ConfidenceThreshold    float64            `yaml:"confidence_threshold"`
	TrustThreshold         int                `yaml:"trust_threshold"`
	ConfidenceWeights      map[string]float64 `yaml:"confidence_weights"`
	AllowedExtensions      []string           `yaml:"allowed_extensions"`
	BlockedExtensions      []string           `yaml:"blocked_extensions"`
	SortBySport            bool               `yaml:"sort_by_sport"`
	RelocationMode         string             `yaml:"relocation_mode"`
	ConflictAction         string             `yaml:"conflict_action"`
	AutomationLevel        string             `yaml:"automation_level"`
	Workers                int                `yaml:"workers"`
	UnknownLeagueFolder    string             `yaml:"unknown_league_folder"`
	LowConfidenceFolder    string             `yaml:"low_confidence_folder"`
	LowConfidenceThreshold int                `yaml:"low_confidence_threshold"`
	ReleaseGroup           ReleaseGroupConfig `yaml:"release_group"`
	Codec                  CodecConfig        `yaml:"codec"`
	Quarantine             QuarantineConfig   `yaml:"quarantine"`
	Probe                  ProbeConfig        `yaml:"probe"`
	Log                    LogConfig          `yaml:"log"`
	Reports                ReportsConfig      `yaml:"reports"`
	History                HistoryConfig      `yaml:"history"`
}

// ReleaseGroupConfig controls release-group discovery.
type ReleaseGroupConfig struct {
	AutoAdd       bool `yaml:"auto_add"`
	AppendUnknown bool `yaml:"append_unknown"`
}

// CodecConfig controls codec discovery through the media probe.
type CodecConfig struct {
	AutoAdd bool `yaml:"auto_add"`
}

// QuarantineConfig routes low-confidence files to a manual review folder.
type QuarantineConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Threshold     int      `yaml:"threshold"`
	Folder        string   `yaml:"folder"`
	CriticalSlots []string `yaml:"critical_slots"`
}

// ProbeConfig configures the ffprobe fallback.
type ProbeConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures the diagnostic logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// ReportsConfig configures job and dry-run reports.
type ReportsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// HistoryConfig configures the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultDir returns the configuration directory: $SMO_CONFIG_DIR when set,
// otherwise ~/.sports-media-organizer.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnv)); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, appDirName), nil
}

// ConfigPath returns the path to config.yaml inside dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, configFileName)
}

// Load reads config.yaml from dir. A missing file yields DefaultConfig. Fields
// absent from the file keep their default values.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.resolvePaths(dir)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.fillDefaults()
	cfg.resolvePaths(dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigIn returns DefaultConfig with its paths anchored in dir.
func DefaultConfigIn(dir string) *Config {
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)
	return cfg
}

// fillDefaults replaces zero values that would make the pipeline unusable.
func (cfg *Config) fillDefaults() {
	defaults := DefaultConfig()
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if cfg.TrustThreshold == 0 {
		cfg.TrustThreshold = defaults.TrustThreshold
	}
	if cfg.ConfidenceWeights == nil {
		cfg.ConfidenceWeights = defaults.ConfidenceWeights
	} else {
		for k, v := range defaults.ConfidenceWeights {
			if _, ok := cfg.ConfidenceWeights[k]; !ok {
				cfg.ConfidenceWeights[k] = v
			}
		}
	}
	if cfg.AllowedExtensions == nil {
		cfg.AllowedExtensions = defaults.AllowedExtensions
	}
	if cfg.BlockedExtensions == nil {
		cfg.BlockedExtensions = defaults.BlockedExtensions
	}
	if cfg.RelocationMode == "" {
		cfg.RelocationMode = defaults.RelocationMode
	}
	if cfg.ConflictAction == "" {
		cfg.ConflictAction = defaults.ConflictAction
	}
	if cfg.AutomationLevel == "" {
		cfg.AutomationLevel = defaults.AutomationLevel
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.UnknownLeagueFolder == "" {
		cfg.UnknownLeagueFolder = defaults.UnknownLeagueFolder
	}
	if cfg.LowConfidenceFolder == "" {
		cfg.LowConfidenceFolder = defaults.LowConfidenceFolder
	}
	if cfg.Quarantine.Folder == "" {
		cfg.Quarantine.Folder = defaults.Quarantine.Folder
	}
	if cfg.Quarantine.Threshold == 0 {
		cfg.Quarantine.Threshold = defaults.Quarantine.Threshold
	}
	if cfg.Quarantine.CriticalSlots == nil {
		cfg.Quarantine.CriticalSlots = defaults.Quarantine.CriticalSlots
	}
	if cfg.Probe.Timeout <= 0 {
		cfg.Probe.Timeout = defaults.Probe.Timeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Reports.RetentionDays == 0 {
		cfg.Reports.RetentionDays = defaults.Reports.RetentionDays
	}
}

// resolvePaths anchors unset or relative directories inside the config dir.
func (cfg *Config) resolvePaths(dir string) {
	anchor := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	cfg.Reports.Dir = anchor(cfg.Reports.Dir, reportsDirName)
	cfg.History.Path = anchor(cfg.History.Path, defaultHistoryFile)
	if cfg.Log.Dir != "" {
		cfg.Log.Dir = anchor(cfg.Log.Dir, logsDirName)
	}
}

// Validate checks enumerated fields and numeric ranges.
func (cfg *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{RelocateHardlink, RelocateMove}, cfg.RelocationMode) {
		errs = append(errs, fmt.Errorf("relocation_mode: unsupported value %q", cfg.RelocationMode))
	}
	if !slices.Contains([]string{ConflictSkip, ConflictOverwrite, ConflictRename}, cfg.ConflictAction) {
		errs = append(errs, fmt.Errorf("conflict_action: unsupported value %q", cfg.ConflictAction))
	}
	if !slices.Contains([]string{AutomationFullAuto, AutomationPromptLow, AutomationPromptAny, AutomationFullManual}, cfg.AutomationLevel) {
		errs = append(errs, fmt.Errorf("automation_level: unsupported value %q", cfg.AutomationLevel))
	}
	if cfg.Quarantine.Threshold < 0 || cfg.Quarantine.Threshold > 100 {
		errs = append(errs, fmt.Errorf("quarantine.threshold: %d is outside 0-100", cfg.Quarantine.Threshold))
	}
	if cfg.TrustThreshold < 0 || cfg.TrustThreshold > 100 {
		errs = append(errs, fmt.Errorf("trust_threshold: %d is outside 0-100", cfg.TrustThreshold))
	}
	for k, w := range cfg.ConfidenceWeights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("confidence_weights.%s: negative weight %v", k, w))
		}
	}
	return errors.Join(errs...)
}

// Weight returns the configured weight for a slot key, or 0 when unknown.
func (cfg *Config) Weight(key string) float64 {
	return cfg.ConfidenceWeights[key]
}

// Save writes the configuration to dir/config.yaml.
func (cfg *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *cfg
	out.Reports.Dir = relativeTo(dir, out.Reports.Dir)
	out.History.Path = relativeTo(dir, out.History.Path)
	out.Log.Dir = relativeTo(dir, out.Log.Dir)

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func relativeTo(dir, p string) string {
	if p == "" {
		return ""
	}
	if rel, err := filepath.Rel(dir, p); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p
}
