// Package reftable holds the canonical-name to alias mappings used to
// recognise codecs, resolutions, release formats, release types, release
// groups and leagues in filenames.
package reftable

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one canonical name with the aliases that identify it.
// Qualifier carries an optional label joined onto the canonical name by
// callers that need it (league sub-leagues).
type Entry struct {
	Canonical string
	Aliases   []string
	Qualifier string
}

// Hit describes a successful table lookup.
type Hit struct {
	Canonical string
	Qualifier string
	// Alias is the configured alias that matched.
	Alias string
	// Text is the exact text found in the searched string.
	Text string
}

type matcher struct {
	entry int
	alias string
	re    *regexp.Regexp
}

// Table is an ordered, immutable alias table. The zero value is an empty
// table.
type Table struct {
	entries  []Entry
	matchers []matcher
}

// New builds a table from entries, keeping their order. Duplicate aliases
// within an entry are dropped.
func New(entries ...Entry) *Table {
	t := &Table{}
	for _, e := range entries {
		t.add(e)
	}
	return t
}

func (t *Table) add(e Entry) {
	e.Canonical = strings.TrimSpace(e.Canonical)
	if e.Canonical == "" {
		return
	}
	idx := len(t.entries)
	seen := map[string]struct{}{}
	var aliases []string
	for _, a := range append([]string{e.Canonical}, e.Aliases...) {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if a != e.Canonical {
			aliases = append(aliases, a)
		}
		t.matchers = append(t.matchers, matcher{entry: idx, alias: a, re: AliasPattern(a)})
	}
	e.Aliases = aliases
	t.entries = append(t.entries, e)
}

// AliasPattern compiles a case-insensitive pattern that finds alias as a
// whole token. Any non-alphanumeric character counts as a boundary, so
// underscores and dots separate tokens the way they do in release names.
// Spaces inside a multi-word alias also match dots, dashes and underscores.
func AliasPattern(alias string) *regexp.Regexp {
	words := strings.Fields(alias)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(` + strings.Join(words, `[\s._\-]+`) + `)(?:[^\pL\pN]|$)`)
}

// Entries returns a copy of the table entries in order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{Canonical: e.Canonical, Aliases: append([]string(nil), e.Aliases...), Qualifier: e.Qualifier}
	}
	return out
}

// Len returns the number of canonical entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the entry whose canonical name equals name
// (case-insensitive).
func (t *Table) Lookup(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	for _, e := range t.entries {
		if strings.EqualFold(e.Canonical, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Contains reports whether alias is known under any canonical entry.
func (t *Table) Contains(alias string) bool {
	if t == nil {
		return false
	}
	for _, m := range t.matchers {
		if strings.EqualFold(m.alias, alias) {
			return true
		}
	}
	return false
}

// Match searches texts in order and returns the first alias hit. Entries are
// tried in table order for each text, so earlier texts win over later ones.
func (t *Table) Match(texts ...string) (Hit, bool) {
	if t == nil {
		return Hit{}, false
	}
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, m := range t.matchers {
			sub := m.re.FindStringSubmatch(text)
			if sub == nil {
				continue
			}
			e := t.entries[m.entry]
			return Hit{Canonical: e.Canonical, Qualifier: e.Qualifier, Alias: m.alias, Text: sub[1]}, true
		}
	}
	return Hit{}, false
}

// Exact returns the entry whose canonical name or alias equals token
// (case-insensitive).
func (t *Table) Exact(token string) (Hit, bool) {
	if t == nil {
		return Hit{}, false
	}
	for _, m := range t.matchers {
		if strings.EqualFold(m.alias, token) {
			e := t.entries[m.entry]
			return Hit{Canonical: e.Canonical, Qualifier: e.Qualifier, Alias: m.alias, Text: token}, true
		}
	}
	return Hit{}, false
}

// with returns a copy of t with alias registered under canonical. The second
// result is false when nothing changed.
func (t *Table) with(canonical, alias string) (*Table, bool) {
	canonical = strings.TrimSpace(canonical)
	alias = strings.TrimSpace(alias)
	if canonical == "" {
		return t, false
	}
	if alias == "" {
		alias = canonical
	}
	if t.Contains(alias) {
		return t, false
	}
	entries := t.Entries()
	found := false
	for i := range entries {
		if strings.EqualFold(entries[i].Canonical, canonical) {
			entries[i].Aliases = append(entries[i].Aliases, alias)
			found = true
			break
		}
	}
	if !found {
		e := Entry{Canonical: canonical}
		if alias != canonical {
			e.Aliases = []string{alias}
		}
		entries = append(entries, e)
	}
	return New(entries...), true
}

// UnmarshalYAML decodes a mapping of canonical names to either a list of
// aliases, a single alias, or a mapping with "aliases" and "sub_league".
// Mapping order is preserved.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	*t = Table{}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: alias table must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		e := Entry{Canonical: key.Value}
		switch val.Kind {
		case yaml.SequenceNode:
			if err := val.Decode(&e.Aliases); err != nil {
				return fmt.Errorf("aliases for %q: %w", key.Value, err)
			}
		case yaml.ScalarNode:
			if val.Tag != "!!null" && val.Value != "" {
				e.Aliases = []string{val.Value}
			}
		case yaml.MappingNode:
			var detail struct {
				Aliases   []string `yaml:"aliases"`
				SubLeague string   `yaml:"sub_league"`
			}
			if err := val.Decode(&detail); err != nil {
				return fmt.Errorf("entry %q: %w", key.Value, err)
			}
			e.Aliases = detail.Aliases
			e.Qualifier = detail.SubLeague
		default:
			return fmt.Errorf("line %d: unsupported value for %q", val.Line, key.Value)
		}
		t.add(e)
	}
	return nil
}

// MarshalYAML encodes the table as an ordered mapping with flow-style alias
// lists.
func (t *Table) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range t.entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: e.Canonical}
		var val *yaml.Node
		if e.Qualifier != "" {
			val = &yaml.Node{Kind: yaml.MappingNode}
			val.Content = append(val.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "aliases"}, aliasSeq(e.Aliases),
				&yaml.Node{Kind: yaml.ScalarNode, Value: "sub_league"}, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Qualifier},
			)
		} else {
			val = aliasSeq(e.Aliases)
		}
		root.Content = append(root.Content, key, val)
	}
	return root, nil
}

func aliasSeq(aliases []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, a := range aliases {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: a})
	}
	return seq
}

// Parse decodes a YAML alias table.
func Parse(data []byte) (*Table, error) {
	t := &Table{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return t, nil
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}
