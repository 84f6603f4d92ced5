// Package config loads pipeline settings from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the automation pipeline.
type Config struct {
	Provider string `yaml:"provider"` // claude or openai
	Model    string `yaml:"model"`    // provider-specific model override

	Browser BrowserConfig `yaml:"browser"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`

	InputTimeout Duration `yaml:"input_timeout"`
	RunTimeout   Duration `yaml:"run_timeout"`

	VoiceModel string `yaml:"voice_model"`
}

type BrowserConfig struct {
	Width      int      `yaml:"width"`
	Height     int      `yaml:"height"`
	Headless   bool     `yaml:"headless"`
	Timeout    Duration `yaml:"timeout"`
	ProfileDir string   `yaml:"profile_dir"`
}

type CacheConfig struct {
	StructureTTL Duration `yaml:"structure_ttl"`
}

type StoreConfig struct {
	// Path of the SQLite learning database. Empty keeps learnings
	// in memory only.
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: "claude",
		Browser: BrowserConfig{
			Width:    1280,
			Height:   720,
			Headless: true,
			Timeout:  Duration(30 * time.Second),
		},
		Cache:        CacheConfig{StructureTTL: Duration(5 * time.Minute)},
		InputTimeout: Duration(30 * time.Second),
		RunTimeout:   Duration(5 * time.Minute),
	}
}

// Load reads the YAML file at path (skipped when empty or missing), then
// applies environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AUTOPILOT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("AUTOPILOT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("AUTOPILOT_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("AUTOPILOT_PROFILE_DIR"); v != "" {
		c.Browser.ProfileDir = v
	}
	if v := os.Getenv("AUTOPILOT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("AUTOPILOT_RUN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RunTimeout = Duration(d)
		}
	}
}
