package config

import (
	"time"

	"github.com/charmbracelet/log"
)

// Config is the sseqchart configuration file.
type Config struct {
	Chart  ChartConfig  `toml:"chart" yaml:"chart"`
	Server ServerConfig `toml:"server" yaml:"server"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Store  StoreConfig  `toml:"store" yaml:"store"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// ChartConfig sets defaults for charts created from scratch.
type ChartConfig struct {
	NumGradings int     `toml:"num_gradings" yaml:"num_gradings"`
	OffsetSize  float64 `toml:"offset_size" yaml:"offset_size"`
}

// ServerConfig configures `sseqchart serve`.
type ServerConfig struct {
	Addr    string `toml:"addr" yaml:"addr"`
	Metrics bool   `toml:"metrics" yaml:"metrics"`
	// Snapshot is a chart snapshot loaded at startup.
	Snapshot string `toml:"snapshot" yaml:"snapshot"`
}

// CacheConfig selects the artifact cache. RedisAddr takes precedence over Dir.
type CacheConfig struct {
	Dir       string   `toml:"dir" yaml:"dir"`
	RedisAddr string   `toml:"redis_addr" yaml:"redis_addr"`
	TTL       Duration `toml:"ttl" yaml:"ttl"`
}

// StoreConfig selects the snapshot store. MongoURI takes precedence over Dir.
type StoreConfig struct {
	Dir        string `toml:"dir" yaml:"dir"`
	MongoURI   string `toml:"mongo_uri" yaml:"mongo_uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// ParsedLevel returns the configured level, or info when it does not parse.
func (l LogConfig) ParsedLevel() log.Level {
	lvl, err := log.ParseLevel(l.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Duration is a time.Duration written as "24h" or "90m" in config files.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
