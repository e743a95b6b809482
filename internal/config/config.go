// Package config loads the handful of knobs the storage core itself
// exposes (page size, database path, cache limit) from YAML, for callers
// that want to externalize them instead of constructing Options in Go. The
// SQL parser and REPL that would otherwise consume this remain out of
// scope — this package exists only so that external collaborator has
// something idiomatic to call.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pagedb/sqlt/internal/pager"
)

// Options is the YAML-loadable configuration surface.
type Options struct {
	PageSize      int    `yaml:"page_size"`
	DBPath        string `yaml:"db_path"`
	MaxCachePages int    `yaml:"max_cache_pages"`
}

// Load reads and parses a YAML document at path into Options.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate enforces the same page-size bounds the Pager itself enforces, so
// a caller gets a config-time error instead of an open-time one.
func (o Options) Validate() error {
	// Zero means "use the Pager's default" and skips the page-size checks.
	if o.PageSize != 0 {
		if o.PageSize < pager.MinPageSize || o.PageSize > pager.MaxPageSize {
			return fmt.Errorf("config: page_size %d outside [%d, %d]", o.PageSize, pager.MinPageSize, pager.MaxPageSize)
		}
		if o.PageSize&(o.PageSize-1) != 0 {
			return fmt.Errorf("config: page_size %d is not a power of two", o.PageSize)
		}
	}
	if o.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	return nil
}
