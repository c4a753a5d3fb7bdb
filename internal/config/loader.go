package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/clawsec/core/internal/errs"
)

// candidateNames is the per-directory search order (spec §6): the first
// existing file wins.
var candidateNames = []string{"clawsec.yaml", "clawsec.yml", ".clawsec.yaml", ".clawsec.yml"}

// Discover walks upward from startDir to the filesystem root, returning the
// first config file found using candidateNames' preference order within
// each directory. Returns "" if none is found.
func Discover(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		dir = startDir
	}
	for {
		for _, name := range candidateNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads and validates the config file at path. A missing or empty path
// yields Default() with Validate() still applied. Layered config files are
// merged with array-replace semantics: a non-nil slice/map field in an
// overlay entirely replaces the base's value rather than appending to it
// (spec §9 Open Questions decision).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, &errs.ConfigurationError{Resource: path, Detail: err.Error()}
	}
	if len(raw) == 0 {
		return cfg, cfg.Validate()
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, &errs.ConfigurationError{Resource: path, Detail: "invalid YAML: " + err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLayered loads a base config then applies each overlay path in order,
// each overlay unmarshaled directly onto the accumulated struct so that any
// field an overlay sets (including slices) replaces the prior value
// (gopkg.in/yaml.v3's default struct-merge behavior already gives array
// replace rather than append, matching the documented merge semantics).
func LoadLayered(paths ...string) (Config, error) {
	cfg := Default()
	for _, p := range paths {
		if p == "" {
			continue
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return cfg, &errs.ConfigurationError{Resource: p, Detail: err.Error()}
		}
		if len(raw) == 0 {
			continue
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, &errs.ConfigurationError{Resource: p, Detail: "invalid YAML: " + err.Error()}
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
