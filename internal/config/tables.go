package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jordanlambrecht/sports-media-organizer/internal/reftable"
)

//go:embed defaults/*.yaml
var defaultTables embed.FS

// Tables are the reference tables used by the extractors. Codecs and release
// groups can grow during a run and are therefore stores.
type Tables struct {
	Codecs         *reftable.Store
	Resolutions    *reftable.Table
	ReleaseFormats *reftable.Table
	ReleaseTypes   *reftable.Table
	ReleaseGroups  *reftable.Store
}

// DefaultTable returns one of the embedded tables by file name.
func DefaultTable(name string) *reftable.Table {
	data, err := defaultTables.ReadFile("defaults/" + name)
	if err != nil {
		return reftable.New()
	}
	t, err := reftable.Parse(data)
	if err != nil {
		return reftable.New()
	}
	return t
}

// DefaultTables returns in-memory tables built from the embedded defaults.
// Registrations are not persisted.
func DefaultTables() Tables {
	return Tables{
		Codecs:         reftable.NewStore(DefaultTable(codecsFileName), ""),
		Resolutions:    DefaultTable(resolutionsFileName),
		ReleaseFormats: DefaultTable(releaseFormatsFileName),
		ReleaseTypes:   DefaultTable(releaseTypesFileName),
		ReleaseGroups:  reftable.NewStore(DefaultTable(releaseGroupsFileName), ""),
	}
}

// LoadTables reads every table from dir, falling back to the embedded default
// for any file that is missing or malformed. Problems are returned joined
// but never leave a table nil.
func LoadTables(dir string) (Tables, error) {
	var errs []error
	static := func(name string) *reftable.Table {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("failed to read %s: %w", path, err))
			}
			return DefaultTable(name)
		}
		t, err := reftable.Parse(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to parse %s: %w", path, err))
			return DefaultTable(name)
		}
		return t
	}
	store := func(name string) *reftable.Store {
		s, err := reftable.LoadStore(filepath.Join(dir, name), DefaultTable(name))
		if err != nil {
			errs = append(errs, err)
		}
		return s
	}

	t := Tables{
		Codecs:         store(codecsFileName),
		Resolutions:    static(resolutionsFileName),
		ReleaseFormats: static(releaseFormatsFileName),
		ReleaseTypes:   static(releaseTypesFileName),
		ReleaseGroups:  store(releaseGroupsFileName),
	}
	return t, errors.Join(errs...)
}

// Persist writes back any runtime registrations.
func (t Tables) Persist() error {
	return errors.Join(t.Codecs.Persist(), t.ReleaseGroups.Persist())
}

// writeDefaultTables copies the embedded tables into dir, skipping files that
// already exist.
func writeDefaultTables(dir string) error {
	entries, err := defaultTables.ReadDir("defaults")
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := defaultTables.ReadFile("defaults/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
