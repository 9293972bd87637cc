// Package cache persists the per-project identifier counters between runs.
//
// Two backends share one interface: a YAML file (the default, .aa.cache.yaml)
// and a SQLite database, chosen by the file extension of the cache path.
package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/randalmurphal/aa/internal/ident"
)

// DefaultPath is the cache file used when none is configured.
const DefaultPath = ".aa.cache.yaml"

// Store loads and saves counters for every project.
type Store interface {
	// Load returns the stored counters. A missing or empty store yields empty data.
	Load(ctx context.Context) (*Data, error)
	// Save replaces the stored counters with d.
	Save(ctx context.Context, d *Data) error
	// Exists reports whether anything has been saved yet.
	Exists() bool
	Path() string
	Close() error
}

// Data maps project codes to their counters.
type Data struct {
	Projects map[string]*ident.Counters `yaml:"projects"`
}

// NewData returns empty cache data.
func NewData() *Data {
	return &Data{Projects: make(map[string]*ident.Counters)}
}

// Project returns the counters for code, creating empty ones if absent.
func (d *Data) Project(code string) *ident.Counters {
	if d.Projects == nil {
		d.Projects = make(map[string]*ident.Counters)
	}
	c, ok := d.Projects[code]
	if !ok || c == nil {
		c = ident.NewCounters()
		d.Projects[code] = c
	}
	return c
}

// Codes returns the project codes in sorted order.
func (d *Data) Codes() []string {
	codes := make([]string, 0, len(d.Projects))
	for code := range d.Projects {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// normalize fills nil maps left by decoding ("PRJ: {}" or "PRJ: null").
func (d *Data) normalize() {
	if d.Projects == nil {
		d.Projects = make(map[string]*ident.Counters)
	}
	for code, c := range d.Projects {
		if c == nil {
			d.Projects[code] = ident.NewCounters()
			continue
		}
		if c.Subtasks == nil {
			c.Subtasks = make(map[string]int)
		}
	}
}

// Validate checks every project code and counter set.
func (d *Data) Validate() error {
	for _, code := range d.Codes() {
		if !ident.ValidCode(code) {
			return fmt.Errorf("project code %q must be 2-5 uppercase letters", code)
		}
		c := d.Projects[code]
		if c == nil {
			continue
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("project %s: %w", code, err)
		}
	}
	return nil
}

// Open returns the store for path: SQLite for .db, .sqlite and .sqlite3
// files, YAML for anything else. An empty path selects DefaultPath.
func Open(path string) Store {
	if path == "" {
		path = DefaultPath
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	default:
		return NewYAMLStore(path)
	}
}
