package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "SSEQCHART_CONFIG"
	// ConfigFileName is the config file looked up in the working directory.
	ConfigFileName = "sseqchart.toml"
	// ConfigDirName is the config directory name under XDG.
	ConfigDirName = "sseqchart"
)

// FindConfigPath searches for a config file in priority order:
//  1. $SSEQCHART_CONFIG
//  2. ./sseqchart.toml, then ./sseqchart.yaml
//  3. $XDG_CONFIG_HOME/sseqchart/config.{toml,yaml}
//  4. ~/.config/sseqchart/config.{toml,yaml}
//
// Returns empty string if no config file is found.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}

	for _, name := range []string{ConfigFileName, "sseqchart.yaml"} {
		if fileExists(name) {
			if abs, err := filepath.Abs(name); err == nil {
				return abs
			}
			return name
		}
	}

	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, ConfigDirName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	for _, dir := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			if path := filepath.Join(dir, name); fileExists(path) {
				return path
			}
		}
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDirName, "config.toml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.toml")
	}
	return ConfigFileName
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
