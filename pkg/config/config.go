// Package config loads dirwand settings.
//
// Settings are layered, later layers winning:
//  1. built-in defaults (embedded/defaults.toml)
//  2. the user file, $XDG_CONFIG_HOME/dirwand/config.toml (or .yaml), or
//     an explicit --config path
//  3. WAND_* entries of a .env file in the working directory
//  4. WAND_* environment variables
//
// Command line flags are applied on top by the caller.
package config

import (
	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/ui"
	"github.com/arthur-debert/dirwand/pkg/walker"
)

// Config holds every setting a run can take from configuration.
type Config struct {
	Shell        string `koanf:"shell"`
	Jobs         int    `koanf:"jobs"`
	OnExists     string `koanf:"on_exists"`
	FailFast     bool   `koanf:"fail_fast"`
	CacheEntries int    `koanf:"cache_entries"`
	Format       string `koanf:"format"`
}

// Validate checks values that the type system cannot.
func (c *Config) Validate() error {
	if c.Shell == "" {
		return errors.New(errors.ErrConfigLoad, "shell must not be empty")
	}
	if c.Jobs < 0 {
		return errors.Newf(errors.ErrConfigLoad, "jobs must be 0 or more, got %d", c.Jobs)
	}
	if _, err := walker.ParseExistsPolicy(c.OnExists); err != nil {
		return errors.Wrap(err, errors.ErrConfigLoad, "invalid on_exists")
	}
	if _, err := ui.ParseFormat(c.Format); err != nil {
		return errors.Wrap(err, errors.ErrConfigLoad, "invalid format")
	}
	return nil
}

// ExistsPolicy returns the parsed on_exists setting. Call Validate first.
func (c *Config) ExistsPolicy() walker.ExistsPolicy {
	p, _ := walker.ParseExistsPolicy(c.OnExists)
	return p
}

// OutputFormat returns the parsed format setting. Call Validate first.
func (c *Config) OutputFormat() ui.Format {
	f, _ := ui.ParseFormat(c.Format)
	return f
}
