// Package config loads the sseqchart configuration.
//
// Config files are TOML or YAML, chosen by extension (.toml, .yaml, .yml).
// Every field is optional; missing values take the defaults of
// [DefaultConfig]. Command-line flags override config values.
//
// Config file locations (priority order):
//  1. $SSEQCHART_CONFIG
//  2. ./sseqchart.toml or ./sseqchart.yaml
//  3. $XDG_CONFIG_HOME/sseqchart/config.toml
//  4. ~/.config/sseqchart/config.toml
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
)

// Defaults.
const (
	DefaultAddr     = "127.0.0.1:8765"
	DefaultCacheTTL = 24 * time.Hour
	DefaultLogLevel = "info"
)

// Load finds and loads the config file, or returns defaults if none is
// found. The second result is the path that was loaded.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads the config at path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes config data in format "toml" or "yaml" and applies defaults.
func Parse(data []byte, format string) (*Config, error) {
	var cfg Config
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", undecoded[0].String())
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q", format)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path in the format implied by its extension.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	switch formatOf(path) {
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	default:
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "toml"
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Chart.NumGradings == 0 {
		c.Chart.NumGradings = chart.DefaultNumGradings
	}
	if c.Chart.OffsetSize == 0 {
		c.Chart.OffsetSize = chart.DefaultOffsetSize
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(DefaultCacheTTL)
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Chart.NumGradings < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "num_gradings must be at least 2, got %d", c.Chart.NumGradings).WithField("chart.num_gradings")
	}
	if c.Chart.OffsetSize < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "offset_size must not be negative").WithField("chart.offset_size")
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "ttl must not be negative").WithField("cache.ttl")
	}
	return nil
}

// ChartOptions returns chart construction options from the config.
func (c *Config) ChartOptions() chart.Options {
	return chart.Options{NumGradings: c.Chart.NumGradings, OffsetSize: c.Chart.OffsetSize}
}
