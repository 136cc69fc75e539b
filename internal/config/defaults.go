package config

import "time"

const (
	defaultConfidenceThreshold    = 0.5
	defaultTrustThreshold         = 90
	defaultRelocationMode         = RelocateHardlink
	defaultConflictAction         = ConflictSkip
	defaultAutomationLevel        = AutomationFullAuto
	defaultWorkers                = 4
	defaultUnknownLeagueFolder    = "unknown_leagues"
	defaultLowConfidenceFolder    = "low_confidence"
	defaultLowConfidenceThreshold = 0
	defaultQuarantineThreshold    = 50
	defaultQuarantineFolder       = "_manual_intervention"
	defaultProbeTimeout           = 30 * time.Second
	defaultLogLevel               = "info"
	defaultLogFormat              = "console"
	defaultReportRetentionDays    = 30
	defaultHistoryFile            = "history.db"
)

// defaultWeights are the per-slot weights of the overall confidence score.
// League, season and date carry the most weight because they decide the
// destination folder.
func defaultWeights() map[string]float64 {
	return map[string]float64{
		"league_name":    3,
		"season_name":    2,
		"air_year":       2,
		"episode_title":  2,
		"event_name":     1,
		"air_month":      1,
		"air_day":        1,
		"episode_part":   1,
		"codec":          1,
		"fps":            1,
		"resolution":     1,
		"release_format": 1,
		"release_type":   1,
		"release_group":  1,
		"extension":      1,
	}
}

// DefaultConfig returns the built-in settings used when no config.yaml exists.
func DefaultConfig() *Config {
	return &Config{
		ConfidenceThreshold:    defaultConfidenceThreshold,
		TrustThreshold:         defaultTrustThreshold,
		ConfidenceWeights:      defaultWeights(),
		AllowedExtensions:      []string{".mkv", ".mp4", ".avi", ".m4v", ".ts"},
		BlockedExtensions:      []string{".nfo", ".txt", ".jpg", ".png", ".srt", ".part", ".!qb"},
		SortBySport:            false,
		RelocationMode:         defaultRelocationMode,
		ConflictAction:         defaultConflictAction,
		AutomationLevel:        defaultAutomationLevel,
		Workers:                defaultWorkers,
		UnknownLeagueFolder:    defaultUnknownLeagueFolder,
		LowConfidenceFolder:    defaultLowConfidenceFolder,
		LowConfidenceThreshold: defaultLowConfidenceThreshold,
		ReleaseGroup: ReleaseGroupConfig{
			AutoAdd:       true,
			AppendUnknown: false,
		},
		Codec: CodecConfig{
			AutoAdd: true,
		},
		Quarantine: QuarantineConfig{
			Enabled:       true,
			Threshold:     defaultQuarantineThreshold,
			Folder:        defaultQuarantineFolder,
			CriticalSlots: []string{"league_name", "air_year", "episode_title"},
		},
		Probe: ProbeConfig{
			Enabled: true,
			Timeout: defaultProbeTimeout,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Reports: ReportsConfig{
			Enabled:       true,
			RetentionDays: defaultReportRetentionDays,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
