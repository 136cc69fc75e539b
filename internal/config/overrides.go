package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Substitution replaces the first case-insensitive occurrence of Original
// with Replace before extraction. Rules apply to directory names unless
// IsDirectory is explicitly false.
type Substitution struct {
	Original    string `yaml:"original"`
	Replace     string `yaml:"replace"`
	IsDirectory *bool  `yaml:"is_directory,omitempty"`
}

// AppliesToDirectories reports whether the rule also rewrites directory names.
func (s Substitution) AppliesToDirectories() bool {
	return s.IsDirectory == nil || *s.IsDirectory
}

// Filter is text stripped from names before extraction. A "re:" prefix marks
// a regular expression; anything else is a literal.
type Filter struct {
	Match string `yaml:"match"`
}

// UnmarshalYAML accepts either a bare string or a {match: ...} mapping.
func (f *Filter) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Match = node.Value
		return nil
	}
	type plain Filter
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = Filter(p)
	return nil
}

// StringList decodes from a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected string or list", node.Line)
}

// Reserved wildcard assignment keys with special meaning.
const (
	AssignRemoveFromFilename = "remove_from_filename"
	AssignRemoveFromFilepath = "remove_from_filepath"
	AssignSingleSeason       = "single_season"
)

// Assignments maps slot keys (and reserved directives) to literal values.
// Every scalar is kept as written, so `single_season: true` stays "true".
type Assignments map[string]string

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Assignments) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: set_attr must be a mapping", node.Line)
	}
	out := make(Assignments, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: set_attr.%s must be a scalar", val.Line, key.Value)
		}
		out[strings.ToLower(key.Value)] = val.Value
	}
	*a = out
	return nil
}

// WildcardRule assigns slot values directly when any trigger occurs in the
// filename or path.
type WildcardRule struct {
	StringContains StringList  `yaml:"string_contains"`
	SetAttr        Assignments `yaml:"set_attr"`
}

// Matches reports whether any trigger appears case-insensitively in any of
// texts, returning the trigger that hit.
func (r WildcardRule) Matches(texts ...string) (string, bool) {
	for _, trigger := range r.StringContains {
		t := strings.ToLower(strings.TrimSpace(trigger))
		if t == "" {
			continue
		}
		for _, text := range texts {
			if strings.Contains(strings.ToLower(text), t) {
				return trigger, true
			}
		}
	}
	return "", false
}

// SingleSeason reports whether the rule forces the single-season layout.
func (r WildcardRule) SingleSeason() bool {
	v, ok := r.SetAttr[AssignSingleSeason]
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "no", "0", "off":
		return false
	}
	return true
}

// GlobalOverrides are the substitutions and filters applied to every sport.
type GlobalOverrides struct {
	Substitutions []Substitution `yaml:"pre_run_filename_substitutions"`
	Filters       []Filter       `yaml:"pre_run_filter_out"`
}

// OverridesDir returns dir/overrides.
func OverridesDir(dir string) string {
	return filepath.Join(dir, overridesDirName)
}

// LoadGlobalOverrides reads overrides/global_overrides.yaml. A missing file
// yields empty overrides.
func LoadGlobalOverrides(dir string) (GlobalOverrides, error) {
	var g GlobalOverrides
	data, err := os.ReadFile(filepath.Join(OverridesDir(dir), globalOverridesName))
	if err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return g, fmt.Errorf("failed to read global overrides: %w", err)
	}
	if err := yaml.Unmarshal(data, &g); err != nil {
		return GlobalOverrides{}, fmt.Errorf("failed to parse global overrides: %w", err)
	}
	return g, nil
}
