package reftable

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// Store owns a table that may grow while a run is in progress. All writes go
// through Register, which checks and appends under one lock so concurrent
// workers can never add the same alias twice. Reads work on immutable
// snapshots and never block each other.
type Store struct {
	mu    sync.RWMutex
	table *Table
	path  string
	dirty bool
}

// NewStore wraps t. When path is non-empty Persist writes registrations back
// to that YAML file.
func NewStore(t *Table, path string) *Store {
	if t == nil {
		t = New()
	}
	return &Store{table: t, path: path}
}

// LoadStore reads a table from path. A missing file yields an empty store
// bound to path.
func LoadStore(path string, fallback *Table) (*Store, error) {
	t, err := readTable(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(fallback, path), nil
		}
		return NewStore(fallback, path), err
	}
	return NewStore(t, path), nil
}

// Snapshot returns the current immutable table.
func (s *Store) Snapshot() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Match looks texts up in the current snapshot.
func (s *Store) Match(texts ...string) (Hit, bool) {
	return s.Snapshot().Match(texts...)
}

// Contains reports whether alias is already registered.
func (s *Store) Contains(alias string) bool {
	return s.Snapshot().Contains(alias)
}

// Register adds alias under canonical unless the alias is already known.
// It reports whether the table changed.
func (s *Store) Register(canonical, alias string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.table.with(canonical, alias)
	if changed {
		s.table = next
		s.dirty = true
	}
	return changed
}

// Dirty reports whether Register changed the table since the last Persist.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Path returns the backing file, if any.
func (s *Store) Path() string { return s.path }

// Persist merges the in-memory table into the backing file. The file is
// re-read under an exclusive flock so registrations made by another process
// since this store was loaded are kept.
func (s *Store) Persist() error {
	if s == nil || s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	defer func() { _ = lock.Unlock() }()

	merged := s.table
	onDisk, err := readTable(s.path)
	switch {
	case err == nil:
		merged = mergeTables(onDisk, s.table)
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to re-read %s: %w", s.path, err)
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace table: %w", err)
	}

	s.table = merged
	s.dirty = false
	return nil
}

func readTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

// mergeTables returns base with every alias of extra added to it.
func mergeTables(base, extra *Table) *Table {
	out := base
	for _, e := range extra.Entries() {
		out, _ = out.with(e.Canonical, e.Canonical)
		for _, a := range e.Aliases {
			out, _ = out.with(e.Canonical, a)
		}
	}
	return out
}
