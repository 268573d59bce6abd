// Package config loads the optional .routemap.yml file from a scanned
// repository's root.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/routelab/routemap/internal/lang"
	"github.com/routelab/routemap/internal/topology"
)

// FileName is the per-repository configuration file.
const FileName = ".routemap.yml"

// Config holds user-overridable scan settings.
type Config struct {
	// ExcludePaths are route paths excluded from ambiguity analysis
	// (health probes and similar intentional duplicates). Compared in
	// normalized form.
	ExcludePaths []string `yaml:"exclude_paths"`

	// Languages restricts extraction to the named languages. Empty means
	// all supported languages.
	Languages []string `yaml:"languages"`

	// FailOn is the minimum severity that makes `routemap check` exit
	// non-zero: "error" (default) or "warning".
	FailOn string `yaml:"fail_on"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{FailOn: string(topology.SeverityError)}
}

// Load reads .routemap.yml from the given directory. A missing or invalid
// file yields the defaults.
func Load(dir string) *Config {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default()
	}
	if cfg.FailOn == "" {
		cfg.FailOn = string(topology.SeverityError)
	}
	return cfg
}

// LanguageEnabled reports whether a language participates in extraction.
func (c *Config) LanguageEnabled(l lang.Language) bool {
	if len(c.Languages) == 0 {
		return true
	}
	for _, name := range c.Languages {
		if lang.Language(name) == l {
			return true
		}
	}
	return false
}

// FailsOn reports whether a diagnostic of the given severity should fail
// the check.
func (c *Config) FailsOn(sev topology.Severity) bool {
	if c.FailOn == string(topology.SeverityWarning) {
		return true
	}
	return sev == topology.SeverityError
}
