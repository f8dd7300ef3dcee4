// CLAUDE:SUMMARY Editor instance configuration: YAML structs, file loading and defaults.
// Package config handles editor configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/irdom/codeblock"
)

// DefaultNamespace prefixes the cache key of every instance.
const DefaultNamespace = "vditor"

// Config is the top-level editor configuration.
type Config struct {
	ID       string        `yaml:"id"`
	CDN      string        `yaml:"cdn"`
	Lang     string        `yaml:"lang"`
	Debounce time.Duration `yaml:"debounce"`
	Counter  CounterConfig `yaml:"counter"`
	Cache    CacheConfig   `yaml:"cache"`
	Preview  PreviewConfig `yaml:"preview"`
	Host     HostConfig    `yaml:"host"`
}

// CounterConfig controls the character counter.
type CounterConfig struct {
	Enable bool `yaml:"enable"`
	Max    int  `yaml:"max"`
}

// CacheConfig controls persistence of the serialized text.
type CacheConfig struct {
	Enable    bool   `yaml:"enable"`
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"` // sqlite file, ":memory:" allowed
	// BusyTimeout is the SQLite busy_timeout in milliseconds.
	BusyTimeout int `yaml:"busy_timeout"`
	// Synchronous is the SQLite synchronous mode: OFF, NORMAL, FULL or EXTRA.
	Synchronous string `yaml:"synchronous"`
}

// PreviewConfig configures the fenced-block renderers.
type PreviewConfig struct {
	Math codeblock.MathOptions      `yaml:"math"`
	Hljs codeblock.HighlightOptions `yaml:"hljs"`
}

// HostConfig describes the embedding environment.
type HostConfig struct {
	// CompositionSensitive hosts must not process changes mid-composition.
	CompositionSensitive bool `yaml:"composition_sensitive"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = 800 * time.Millisecond
	}
	if c.Lang == "" {
		c.Lang = "en_US"
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = DefaultNamespace
	}
	if c.Cache.Enable {
		if c.Cache.Path == "" {
			c.Cache.Path = ":memory:"
		}
		if c.Cache.BusyTimeout == 0 {
			c.Cache.BusyTimeout = 10_000
		}
		if c.Cache.Synchronous == "" {
			c.Cache.Synchronous = "NORMAL"
		}
	}
	if c.Preview.Math.Engine == "" {
		c.Preview.Math.Engine = "KaTeX"
	}
	if c.Preview.Hljs.Style == "" {
		c.Preview.Hljs.Style = "github"
	}
}
