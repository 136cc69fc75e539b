package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jordanlambrecht/sports-media-organizer/internal/reftable"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrSportExists is returned by CreateSport when the profile file is present.
var ErrSportExists = errors.New("sport profile already exists")

// SportProfile bundles the per-sport override rules.
type SportProfile struct {
	Sport               string          `yaml:"sport"`
	SingleSeason        bool            `yaml:"single_season"`
	League              *reftable.Table `yaml:"league"`
	Events              *reftable.Table `yaml:"events,omitempty"`
	EventPatterns       []string        `yaml:"event_patterns,omitempty"`
	Wildcards           []WildcardRule  `yaml:"wildcard_matches"`
	Substitutions       []Substitution  `yaml:"pre_run_filename_substitutions,omitempty"`
	Filters             []Filter        `yaml:"pre_run_filter_out,omitempty"`
	RemoveKnownElements []string        `yaml:"remove_known_elements,omitempty"`

	eventRes []*regexp.Regexp
}

// EmptyProfile returns a profile with no rules for sport.
func EmptyProfile(sport string) *SportProfile {
	p := &SportProfile{Sport: sport}
	p.ensureTables()
	return p
}

func (p *SportProfile) ensureTables() {
	if p.League == nil {
		p.League = reftable.New()
	}
	if p.Events == nil {
		p.Events = reftable.New()
	}
}

// compile prepares event patterns. Invalid patterns are reported together.
func (p *SportProfile) compile() error {
	p.ensureTables()
	p.eventRes = p.eventRes[:0]
	var errs []error
	for _, expr := range p.EventPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("event_patterns: %q: %w", expr, err))
			continue
		}
		p.eventRes = append(p.eventRes, re)
	}
	return errors.Join(errs...)
}

// EventRegexps returns the compiled event patterns.
func (p *SportProfile) EventRegexps() []*regexp.Regexp {
	return p.eventRes
}

// MatchWildcard returns the first rule with a trigger found in any of texts.
func (p *SportProfile) MatchWildcard(texts ...string) (*WildcardRule, string, bool) {
	if p == nil {
		return nil, "", false
	}
	for i := range p.Wildcards {
		if trigger, ok := p.Wildcards[i].Matches(texts...); ok {
			return &p.Wildcards[i], trigger, true
		}
	}
	return nil, "", false
}

// SportsDir returns dir/overrides/sports.
func SportsDir(dir string) string {
	return filepath.Join(OverridesDir(dir), sportsDirName)
}

// SportFilename converts a sport name to its profile file name:
// "Ice Hockey" -> "ice_hockey.yaml".
func SportFilename(sport string) string {
	name := strings.ToLower(strings.TrimSpace(sport))
	name = strings.Join(strings.Fields(name), "_")
	return name + ".yaml"
}

// TitleSport normalizes a user-entered sport name for display.
func TitleSport(sport string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(sport), " "))
}

// ParseSportProfile decodes a profile document.
func ParseSportProfile(data []byte) (*SportProfile, error) {
	p := &SportProfile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	if err := p.compile(); err != nil {
		return p, err
	}
	return p, nil
}

// LoadSport reads the profile for sport. A missing file yields an empty
// profile and no error; a malformed one yields an empty profile and the error.
func LoadSport(dir, sport string) (*SportProfile, error) {
	path := filepath.Join(SportsDir(dir), SportFilename(sport))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return EmptyProfile(sport), nil
		}
		return EmptyProfile(sport), fmt.Errorf("failed to read sport profile: %w", err)
	}
	p, err := ParseSportProfile(data)
	if err != nil {
		return EmptyProfile(sport), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if p.Sport == "" {
		p.Sport = sport
	}
	return p, nil
}

// ListSports returns the display names of every profile in the sports dir.
func ListSports(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(SportsDir(dir), "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sport profiles: %w", err)
	}
	sports := make([]string, 0, len(files))
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), ".yaml")
		sports = append(sports, TitleSport(strings.ReplaceAll(stem, "_", " ")))
	}
	sort.Strings(sports)
	return sports, nil
}

// CreateSport writes an empty profile template for sport and returns it.
func CreateSport(dir, sport string) (*SportProfile, error) {
	sport = TitleSport(sport)
	if sport == "" {
		return nil, fmt.Errorf("sport name is empty")
	}
	sportsDir := SportsDir(dir)
	if err := os.MkdirAll(sportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sports directory: %w", err)
	}
	path := filepath.Join(sportsDir, SportFilename(sport))
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrSportExists)
	}

	p := EmptyProfile(sport)
	p.Wildcards = []WildcardRule{}
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sport profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write sport profile: %w", err)
	}
	return p, nil
}
