// Package config loads the downloader's settings from an HCL file with
// environment overrides layered on top. Everything is optional; a missing
// config file just means built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/skytree/skytree/internal/filter"
)

// DefaultPath is the config file picked up from the working directory when
// no explicit path is given.
const DefaultPath = "skytree.hcl"

// Config is the file/environment configuration surface. Command-line flags
// override all of it.
type Config struct {
	Service        string   `hcl:"service,optional"`
	Identifier     string   `hcl:"identifier,optional"`
	Password       string   `hcl:"password,optional"`
	TokensDir      string   `hcl:"tokens_dir,optional"`
	OutputDir      string   `hcl:"output_dir,optional"`
	MaxDepth       int      `hcl:"max_depth,optional"`
	OriginalMedia  bool     `hcl:"original_media,optional"`
	ExtraNoiseKeys []string `hcl:"extra_noise_keys,optional"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service:   "https://bsky.social",
		TokensDir: filepath.Join(os.TempDir(), "skytree"),
		OutputDir: "downloads",
		MaxDepth:  4,
	}
}

// Load reads the config file at path, layering environment overrides on
// top of file values and built-in defaults. An empty path means
// DefaultPath, which is allowed to be absent; an explicit path is not.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	} else if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SKYTREE_SERVICE"); v != "" {
		c.Service = v
	}
	if v := os.Getenv("SKYTREE_ID"); v != "" {
		c.Identifier = v
	}
	if v := os.Getenv("SKYTREE_PASSWD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("SKYTREE_TOKENS_PATH"); v != "" {
		c.TokensDir = v
	}
}

// NoiseKeys returns the full filtering denylist: the built-in noise keys
// plus any configured extras.
func (c Config) NoiseKeys() []string {
	return append(filter.DefaultNoiseKeys(), c.ExtraNoiseKeys...)
}
